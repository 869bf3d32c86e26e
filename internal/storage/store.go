package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/dilasim/internal/bench"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type SweepMetadata struct {
	ID                string    `json:"id"`
	Label             string    `json:"label"`
	Timestamp         time.Time `json:"timestamp"`
	Particles         int       `json:"particles"`
	Steps             int       `json:"steps"`
	Samples           int       `json:"samples"`
	Dt                float64   `json:"dt"`
	Seed              uint32    `json:"seed"`
	Backend           string    `json:"backend"`
	BaselineRuntime   float64   `json:"baseline_runtime_ms"`
	BaselineActivePct float64   `json:"baseline_active_pct"`
	Rows              int       `json:"rows"`
}

var rowHeader = []string{"sensitivity", "runtime_ms", "speedup", "rmse", "estimated_active_pct", "measured_active_pct"}

// Save writes the sweep's metadata.json and rows.csv under a fresh run
// directory and returns its id.
func (s *Store) Save(label string, report *bench.Report) (string, error) {
	if label == "" {
		label = "sweep"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", label, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := SweepMetadata{
		ID:                runID,
		Label:             label,
		Timestamp:         now,
		Particles:         report.Particles,
		Steps:             report.Steps,
		Samples:           report.Samples,
		Dt:                report.Dt,
		Seed:              report.Seed,
		Backend:           report.Backend,
		BaselineRuntime:   millis(report.Baseline.Runtime),
		BaselineActivePct: report.Baseline.MeasuredActivePct,
		Rows:              len(report.Rows),
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "rows.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(rowHeader); err != nil {
		return "", err
	}

	for _, row := range report.Rows {
		record := []string{
			formatFloat(row.Sensitivity),
			formatFloat(millis(row.Runtime)),
			formatFloat(row.Speedup),
			formatFloat(row.RMSE),
			formatFloat(row.EstimatedActivePct),
			formatFloat(row.MeasuredActivePct),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every saved sweep, oldest first.
func (s *Store) List() ([]SweepMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]SweepMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*SweepMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta SweepMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadRows(runID string) ([]bench.Row, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "rows.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(rowHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]bench.Row, 0, len(records))
	for i := 1; i < len(records); i++ {
		vals := make([]float64, len(rowHeader))
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("rows.csv line %d column %s: %w", i+1, rowHeader[j], err)
			}
			vals[j] = v
		}
		rows = append(rows, bench.Row{
			Sensitivity:        vals[0],
			Runtime:            time.Duration(vals[1] * float64(time.Millisecond)),
			Speedup:            vals[2],
			RMSE:               vals[3],
			EstimatedActivePct: vals[4],
			MeasuredActivePct:  vals[5],
		})
	}

	return rows, nil
}

// LoadReport rebuilds a report from a saved sweep.
func (s *Store) LoadReport(runID string) (*bench.Report, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.LoadRows(runID)
	if err != nil {
		return nil, err
	}

	return &bench.Report{
		Particles: meta.Particles,
		Steps:     meta.Steps,
		Samples:   meta.Samples,
		Dt:        meta.Dt,
		Seed:      meta.Seed,
		Backend:   meta.Backend,
		Baseline: bench.Baseline{
			Runtime:           time.Duration(meta.BaselineRuntime * float64(time.Millisecond)),
			MeasuredActivePct: meta.BaselineActivePct,
		},
		Rows: rows,
	}, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
