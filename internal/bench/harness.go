package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/metrics"
	"github.com/san-kum/dilasim/internal/sim"
)

// DefaultSensitivities is the stock sweep, most aggressive first.
var DefaultSensitivities = []float64{100, 50, 25, 10, 5, 1}

type Harness struct {
	sim    *sim.Simulator
	logger *slog.Logger
	// Repeats times each configuration this many times and keeps the fastest.
	Repeats int
}

func New(s *sim.Simulator, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{sim: s, logger: logger, Repeats: 1}
}

// Sweep runs the plain baseline and then every sensitivity in adaptive mode,
// one configuration at a time, each from its own copy of initial. ctx is
// checked between configurations only.
func (h *Harness) Sweep(ctx context.Context, initial []dynamo.Particle, base dynamo.RunConfig, sensitivities []float64) (*Report, error) {
	report := &Report{
		Particles: len(initial),
		Steps:     base.Steps,
		Samples:   base.Samples,
		Dt:        base.Dt,
		Seed:      base.Seed,
		Backend:   h.sim.Backend(),
		Rows:      make([]Row, 0, len(sensitivities)),
	}

	plain := base
	plain.Mode = dynamo.ModePlain
	baseline, err := h.run(ctx, initial, plain)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	report.Baseline = Baseline{
		Runtime:           baseline.Elapsed,
		MeasuredActivePct: 100 * baseline.ActiveFraction(),
	}
	h.logger.Info("baseline complete", "runtime", baseline.Elapsed, "particles", len(initial), "steps", base.Steps)

	for _, s := range sensitivities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg := base
		cfg.Mode = dynamo.ModeAdaptive
		cfg.Sensitivity = s

		res, err := h.run(ctx, initial, cfg)
		if err != nil {
			return nil, fmt.Errorf("sensitivity %g: %w", s, err)
		}

		row, err := CompareRuns(s, baseline, res)
		if err != nil {
			return nil, fmt.Errorf("sensitivity %g: %w", s, err)
		}
		report.Rows = append(report.Rows, row)

		h.logger.Info("sweep row",
			"sensitivity", s,
			"runtime", row.Runtime,
			"speedup", row.Speedup,
			"rmse", row.RMSE,
			"active_pct", row.MeasuredActivePct)
	}

	return report, nil
}

func (h *Harness) run(ctx context.Context, initial []dynamo.Particle, cfg dynamo.RunConfig) (*sim.Result, error) {
	repeats := h.Repeats
	if repeats < 1 {
		repeats = 1
	}

	var best *sim.Result
	for i := 0; i < repeats; i++ {
		res, err := h.sim.Run(ctx, initial, cfg)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Elapsed < best.Elapsed {
			best = res
		}
	}
	return best, nil
}

// CompareRuns derives one report row from a finished adaptive run and the
// baseline. Both runs must cover the same particles.
func CompareRuns(sensitivity float64, baseline, run *sim.Result) (Row, error) {
	rmse, err := metrics.RMSE(run.Particles, baseline.Particles)
	if err != nil {
		return Row{}, err
	}

	speedup := Speedup(baseline.Elapsed, run.Elapsed)
	return Row{
		Sensitivity:        sensitivity,
		Runtime:            run.Elapsed,
		Speedup:            speedup,
		RMSE:               rmse,
		EstimatedActivePct: EstimatedActivePct(speedup),
		MeasuredActivePct:  100 * run.ActiveFraction(),
	}, nil
}

// Speedup is baseline/run. A zero duration on either side yields 1.
func Speedup(baseline, run time.Duration) float64 {
	if baseline <= 0 || run <= 0 {
		return 1
	}
	return float64(baseline) / float64(run)
}

// EstimatedActivePct is the throughput proxy 100/speedup. It is not a count
// of active flags; see Row.MeasuredActivePct for that.
func EstimatedActivePct(speedup float64) float64 {
	if speedup <= 0 {
		return 100
	}
	return 100 / speedup
}
