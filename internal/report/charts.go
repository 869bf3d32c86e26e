package report

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dilasim/internal/bench"
)

const (
	chartWidth  = 60
	chartHeight = 10
)

// SweepCharts plots RMSE and speedup across the swept sensitivities in
// report order. It returns an empty string when there are no rows.
func SweepCharts(r *bench.Report) string {
	if len(r.Rows) == 0 {
		return ""
	}
	sens, speedup, rmse, _ := r.Series()
	span := fmt.Sprintf("sensitivity %g .. %g", sens[0], sens[len(sens)-1])

	rmseGraph := asciigraph.Plot(rmse,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption("rmse vs "+span),
	)
	speedGraph := asciigraph.Plot(speedup,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption("speedup vs "+span),
	)
	return rmseGraph + "\n\n" + speedGraph + "\n"
}

// ActivityChart plots the per-step active fraction of a single run as a
// percentage.
func ActivityChart(history []float64) string {
	if len(history) == 0 {
		return ""
	}
	pct := make([]float64, len(history))
	for i, f := range history {
		pct[i] = 100 * f
	}
	return asciigraph.Plot(pct,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption("active % per step"),
	) + "\n"
}
