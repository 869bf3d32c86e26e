package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/san-kum/dilasim/internal/bench"
)

// WriteSummary prints the run parameters and the plain-mode baseline.
func WriteSummary(w io.Writer, r *bench.Report) error {
	lines := []struct{ label, value string }{
		{"particles", fmt.Sprintf("%d", r.Particles)},
		{"steps", fmt.Sprintf("%d", r.Steps)},
		{"samples", fmt.Sprintf("%d", r.Samples)},
		{"dt", fmt.Sprintf("%g", r.Dt)},
		{"seed", fmt.Sprintf("%d", r.Seed)},
		{"backend", r.Backend},
		{"baseline", formatDuration(r.Baseline.Runtime)},
	}

	if _, err := fmt.Fprintln(w, TitleStyle.Render("dilation sweep")); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "  %s %s\n", MetricLabel.Render(fmt.Sprintf("%-9s", l.label)), MetricValue.Render(l.value)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteTable prints one line per swept sensitivity. The estimated column is
// derived from speedup and is labelled as such.
func WriteTable(w io.Writer, r *bench.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SENSITIVITY\tRUNTIME\tSPEEDUP\tRMSE\tACTIVE (est.)\tACTIVE (measured)")
	fmt.Fprintf(tw, "baseline\t%s\t1.00x\t0\t100.0%%\t%.1f%%\n",
		formatDuration(r.Baseline.Runtime), r.Baseline.MeasuredActivePct)

	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%g\t%s\t%.2fx\t%.4f\t%.1f%%\t%.1f%%\n",
			row.Sensitivity,
			formatDuration(row.Runtime),
			row.Speedup,
			row.RMSE,
			row.EstimatedActivePct,
			row.MeasuredActivePct,
		)
	}
	return tw.Flush()
}

// WriteBest prints the fastest row within the error budget.
func WriteBest(w io.Writer, r *bench.Report, maxRMSE float64) error {
	best, ok := r.Best(maxRMSE)
	if !ok {
		_, err := fmt.Fprintln(w, WarnStyle.Render(fmt.Sprintf("no sensitivity kept rmse <= %g", maxRMSE)))
		return err
	}
	_, err := fmt.Fprintln(w, BestStyle.Render(fmt.Sprintf(
		"best within rmse %g: sensitivity %g, %.2fx faster, rmse %.4f",
		maxRMSE, best.Sensitivity, best.Speedup, best.RMSE)))
	return err
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(100 * time.Microsecond).String()
}
