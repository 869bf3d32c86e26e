package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/san-kum/dilasim/internal/bench"
	"github.com/san-kum/dilasim/internal/cloud"
	"github.com/san-kum/dilasim/internal/compute"
	"github.com/san-kum/dilasim/internal/config"
	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/ledger"
	"github.com/san-kum/dilasim/internal/metrics"
	"github.com/san-kum/dilasim/internal/report"
	"github.com/san-kum/dilasim/internal/sim"
	"github.com/san-kum/dilasim/internal/storage"
	"github.com/san-kum/dilasim/internal/tui"
	"github.com/spf13/cobra"
)

// setup resolves the configuration and builds the initial cloud and the
// simulator every run-like command needs.
func setup(cmd *cobra.Command) (*config.Config, []dynamo.Particle, dynamo.RunConfig, *sim.Simulator, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, dynamo.RunConfig{}, nil, err
	}
	rc, err := cfg.RunConfig()
	if err != nil {
		return nil, nil, dynamo.RunConfig{}, nil, err
	}

	initial, err := cloud.Generate(cfg.Cloud)
	if err != nil {
		return nil, nil, dynamo.RunConfig{}, nil, err
	}

	backend, err := compute.New(cfg.Run.Backend, cfg.Run.Workers)
	if err != nil {
		return nil, nil, dynamo.RunConfig{}, nil, err
	}

	logger := newLogger(cfg.LogLevel)
	return cfg, initial, rc, sim.New(backend, logger), nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	_, initial, rc, s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	activity := metrics.NewActiveFractionHistory()
	energy := metrics.NewKineticEnergy()
	drift := metrics.NewDrift()
	s.AddMetric(activity)
	s.AddMetric(energy)
	s.AddMetric(drift)

	result, err := s.Run(ctx, initial, rc)
	if err != nil {
		return err
	}
	history := append([]float64(nil), activity.History()...)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "mode\t%s\n", rc.Mode)
	if rc.Mode == dynamo.ModeAdaptive {
		fmt.Fprintf(w, "sensitivity\t%g\n", rc.Sensitivity)
	}
	fmt.Fprintf(w, "particles\t%d\n", len(result.Particles))
	fmt.Fprintf(w, "steps\t%d\n", result.Steps)
	fmt.Fprintf(w, "backend\t%s\n", result.Backend)
	fmt.Fprintf(w, "runtime\t%s\n", result.Elapsed)
	fmt.Fprintf(w, "active (measured)\t%.1f%%\n", 100*result.ActiveFraction())
	fmt.Fprintf(w, "active (last step)\t%d/%d\n", metrics.ActiveCount(result.Particles), len(result.Particles))
	fmt.Fprintf(w, "kinetic energy\t%.4g\n", energy.Last())
	fmt.Fprintf(w, "spread drift\t%.4g\n", result.Metrics[drift.Name()])
	fmt.Fprintf(w, "centroid\t%.3f %.3f %.3f\n", centroid(result.Particles)...)

	if compare && rc.Mode == dynamo.ModeAdaptive {
		plain := rc
		plain.Mode = dynamo.ModePlain
		baseline, err := s.Run(ctx, initial, plain)
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		row, err := bench.CompareRuns(rc.Sensitivity, baseline, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "baseline runtime\t%s\n", baseline.Elapsed)
		fmt.Fprintf(w, "speedup\t%.2fx\n", row.Speedup)
		fmt.Fprintf(w, "rmse\t%.4f\n", row.RMSE)
		fmt.Fprintf(w, "active (est.)\t%.1f%%\n", row.EstimatedActivePct)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if chart := report.ActivityChart(history); chart != "" {
		fmt.Println()
		fmt.Print(chart)
	}
	return nil
}

func centroid(ps []dynamo.Particle) []any {
	c := metrics.Centroid(ps)
	return []any{c[0], c[1], c[2]}
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, initial, rc, s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	h := bench.New(s, newLogger(cfg.LogLevel))
	h.Repeats = max(cfg.Sweep.Repeats, 1)

	sens := cfg.Sweep.Sensitivities
	if len(sens) == 0 {
		sens = bench.DefaultSensitivities
	}

	rep, err := h.Sweep(ctx, initial, rc, sens)
	if err != nil {
		return err
	}

	if err := printReport(rep, cfg.Sweep.MaxRMSE); err != nil {
		return err
	}

	st := storage.New(sweepDir())
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(label, rep)
	if err != nil {
		return fmt.Errorf("save sweep: %w", err)
	}

	if err := recordSweep(ctx, id, label, rep); err != nil {
		return err
	}

	fmt.Printf("\nsaved: %s\n", id)
	return nil
}

func recordSweep(ctx context.Context, id, label string, rep *bench.Report) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	// The sweep is already complete; record it even if interrupted.
	ctx = context.WithoutCancel(ctx)

	l, err := ledger.Open(ctx, ledgerPath())
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.Record(ctx, id, label, rep); err != nil {
		return fmt.Errorf("record sweep: %w", err)
	}
	return nil
}

func printReport(rep *bench.Report, budget float64) error {
	if err := report.WriteSummary(os.Stdout, rep); err != nil {
		return err
	}
	if err := report.WriteTable(os.Stdout, rep); err != nil {
		return err
	}
	fmt.Println()
	if err := report.WriteBest(os.Stdout, rep, budget); err != nil {
		return err
	}
	if charts := report.SweepCharts(rep); charts != "" {
		fmt.Println()
		fmt.Print(charts)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, initial, rc, s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := tui.NewModel(s, initial, rc, cfg.StepsPerFrame)
	if err != nil {
		return err
	}
	result, err := tui.Run(m)
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Printf("%d steps in %s, %.1f%% active\n", result.Steps, result.Elapsed, 100*result.ActiveFraction())
	}
	return nil
}

func listSweeps(cmd *cobra.Command, args []string) error {
	st := storage.New(sweepDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no sweeps found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPARTICLES\tSTEPS\tBACKEND\tBASELINE\tROWS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%.1fms\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Steps,
			run.Backend,
			run.BaselineRuntime,
			run.Rows,
		)
	}

	return w.Flush()
}

func showSweep(cmd *cobra.Command, args []string) error {
	st := storage.New(sweepDir())
	rep, err := st.LoadReport(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("sweep: %s\n\n", args[0])
	return printReport(rep, maxRMSE)
}

func showHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if _, err := os.Stat(ledgerPath()); os.IsNotExist(err) {
		fmt.Println("no sweeps recorded")
		return nil
	}

	l, err := ledger.Open(ctx, ledgerPath())
	if err != nil {
		return err
	}
	defer l.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if historySens >= 0 {
		entries, err := l.History(ctx, historySens)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("no rows recorded at sensitivity %g\n", historySens)
			return nil
		}
		fmt.Fprintln(w, "SWEEP\tTIME\tPARTICLES\tBACKEND\tSPEEDUP\tRMSE\tACTIVE (measured)")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2fx\t%.4f\t%.1f%%\n",
				e.SweepID,
				e.RecordedAt.Format("2006-01-02 15:04:05"),
				e.Particles,
				e.Backend,
				e.Row.Speedup,
				e.Row.RMSE,
				e.Row.MeasuredActivePct,
			)
		}
		return w.Flush()
	}

	sweeps, err := l.Sweeps(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(sweeps) == 0 {
		fmt.Println("no sweeps recorded")
		return nil
	}
	fmt.Fprintln(w, "SWEEP\tLABEL\tTIME\tPARTICLES\tSTEPS\tBACKEND\tBASELINE")
	for _, s := range sweeps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			s.ID,
			s.Label,
			s.RecordedAt.Format("2006-01-02 15:04:05"),
			s.Particles,
			s.Steps,
			s.Backend,
			s.Baseline.Round(time.Millisecond),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok, err := l.BestSpeedup(ctx, maxRMSE); err != nil {
		return err
	} else if ok {
		fmt.Printf("\nbest recorded within rmse %g: %.2fx at sensitivity %g (%s)\n",
			maxRMSE, best.Row.Speedup, best.Row.Sensitivity, best.SweepID)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tCLOUD\tPARTICLES\tSTEPS")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", name, cfg.Cloud.Kind, cfg.Cloud.Particles, cfg.Run.Steps)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
