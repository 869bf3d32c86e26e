// Package bench sweeps the wake threshold and measures what sleeping costs
// in accuracy and buys in throughput.
//
// A sweep is one plain-mode baseline followed by one adaptive run per
// sensitivity, all from the same initial particles and seed:
//
//	h := bench.New(simulator, logger)
//	report, err := h.Sweep(ctx, initial, cfg, bench.DefaultSensitivities)
//
// Each [Row] carries the runtime, speedup over the baseline, positional RMSE
// against the baseline's final state, the throughput estimate 100/speedup
// and the measured share of particle-steps that integrated.
package bench
