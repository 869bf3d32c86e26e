// Package ledger keeps a queryable SQLite history of sensitivity sweeps so
// speedup and error can be compared across runs and machines.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/san-kum/dilasim/internal/bench"
	_ "modernc.org/sqlite"
)

type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. ":memory:" gives a private
// in-memory ledger.
func Open(ctx context.Context, path string) (*Ledger, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

type Sweep struct {
	ID                string
	Label             string
	RecordedAt        time.Time
	Particles         int
	Steps             int
	Samples           int
	Dt                float64
	Seed              uint32
	Backend           string
	Baseline          time.Duration
	BaselineActivePct float64
}

// Entry is one sweep row joined with the sweep it belongs to.
type Entry struct {
	SweepID    string
	RecordedAt time.Time
	Particles  int
	Backend    string
	Row        bench.Row
}

// Record stores a sweep and all of its rows in one transaction.
func (l *Ledger) Record(ctx context.Context, id, label string, r *bench.Report) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweeps (id, label, recorded_at, particles, steps, samples, dt, seed, backend, baseline_ns, baseline_active_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, label, time.Now().UnixNano(), r.Particles, r.Steps, r.Samples, r.Dt, int64(r.Seed),
		r.Backend, int64(r.Baseline.Runtime), r.Baseline.MeasuredActivePct)
	if err != nil {
		return fmt.Errorf("failed to insert sweep %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_rows (sweep_id, position, sensitivity, runtime_ns, speedup, rmse, estimated_active_pct, measured_active_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range r.Rows {
		if _, err := stmt.ExecContext(ctx, id, i, row.Sensitivity, int64(row.Runtime),
			row.Speedup, row.RMSE, row.EstimatedActivePct, row.MeasuredActivePct); err != nil {
			return fmt.Errorf("failed to insert row %d of %s: %w", i, id, err)
		}
	}

	return tx.Commit()
}

// Sweeps returns the most recent sweeps, newest first. limit <= 0 returns
// all of them.
func (l *Ledger) Sweeps(ctx context.Context, limit int) ([]Sweep, error) {
	query := `SELECT id, label, recorded_at, particles, steps, samples, dt, seed, backend, baseline_ns, baseline_active_pct
		FROM sweeps ORDER BY recorded_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sweep
	for rows.Next() {
		var s Sweep
		var recorded, baseline, seed int64
		if err := rows.Scan(&s.ID, &s.Label, &recorded, &s.Particles, &s.Steps, &s.Samples,
			&s.Dt, &seed, &s.Backend, &baseline, &s.BaselineActivePct); err != nil {
			return nil, err
		}
		s.RecordedAt = time.Unix(0, recorded)
		s.Seed = uint32(seed)
		s.Baseline = time.Duration(baseline)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Rows returns the rows of one sweep in the order they were swept.
func (l *Ledger) Rows(ctx context.Context, sweepID string) ([]bench.Row, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT sensitivity, runtime_ns, speedup, rmse, estimated_active_pct, measured_active_pct
		FROM sweep_rows WHERE sweep_id = ? ORDER BY position`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bench.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// History returns every recorded row at the given sensitivity, oldest first.
func (l *Ledger) History(ctx context.Context, sensitivity float64) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT s.id, s.recorded_at, s.particles, s.backend,
		       r.sensitivity, r.runtime_ns, r.speedup, r.rmse, r.estimated_active_pct, r.measured_active_pct
		FROM sweep_rows r JOIN sweeps s ON s.id = r.sweep_id
		WHERE r.sensitivity = ?
		ORDER BY s.recorded_at, s.id`, sensitivity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var recorded, runtime int64
		if err := rows.Scan(&e.SweepID, &recorded, &e.Particles, &e.Backend,
			&e.Row.Sensitivity, &runtime, &e.Row.Speedup, &e.Row.RMSE,
			&e.Row.EstimatedActivePct, &e.Row.MeasuredActivePct); err != nil {
			return nil, err
		}
		e.RecordedAt = time.Unix(0, recorded)
		e.Row.Runtime = time.Duration(runtime)
		out = append(out, e)
	}
	return out, rows.Err()
}

// BestSpeedup returns the fastest recorded row with RMSE at most maxRMSE.
func (l *Ledger) BestSpeedup(ctx context.Context, maxRMSE float64) (Entry, bool, error) {
	var e Entry
	var recorded, runtime int64
	err := l.db.QueryRowContext(ctx, `
		SELECT s.id, s.recorded_at, s.particles, s.backend,
		       r.sensitivity, r.runtime_ns, r.speedup, r.rmse, r.estimated_active_pct, r.measured_active_pct
		FROM sweep_rows r JOIN sweeps s ON s.id = r.sweep_id
		WHERE r.rmse <= ?
		ORDER BY r.speedup DESC LIMIT 1`, maxRMSE).Scan(
		&e.SweepID, &recorded, &e.Particles, &e.Backend,
		&e.Row.Sensitivity, &runtime, &e.Row.Speedup, &e.Row.RMSE,
		&e.Row.EstimatedActivePct, &e.Row.MeasuredActivePct)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.RecordedAt = time.Unix(0, recorded)
	e.Row.Runtime = time.Duration(runtime)
	return e, true, nil
}

func scanRow(rows *sql.Rows) (bench.Row, error) {
	var row bench.Row
	var runtime int64
	err := rows.Scan(&row.Sensitivity, &runtime, &row.Speedup, &row.RMSE,
		&row.EstimatedActivePct, &row.MeasuredActivePct)
	row.Runtime = time.Duration(runtime)
	return row, err
}
