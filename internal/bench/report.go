package bench

import (
	"math"
	"time"
)

type Baseline struct {
	Runtime           time.Duration `json:"runtime_ns"`
	MeasuredActivePct float64       `json:"measured_active_pct"`
}

// Row is one swept sensitivity. EstimatedActivePct is the 100/speedup proxy;
// MeasuredActivePct counts active flags.
type Row struct {
	Sensitivity        float64       `json:"sensitivity"`
	Runtime            time.Duration `json:"runtime_ns"`
	Speedup            float64       `json:"speedup"`
	RMSE               float64       `json:"rmse"`
	EstimatedActivePct float64       `json:"estimated_active_pct"`
	MeasuredActivePct  float64       `json:"measured_active_pct"`
}

type Report struct {
	Particles int      `json:"particles"`
	Steps     int      `json:"steps"`
	Samples   int      `json:"samples"`
	Dt        float64  `json:"dt"`
	Seed      uint32   `json:"seed"`
	Backend   string   `json:"backend"`
	Baseline  Baseline `json:"baseline"`
	Rows      []Row    `json:"rows"`
}

// Best returns the fastest row whose RMSE does not exceed maxRMSE.
func (r *Report) Best(maxRMSE float64) (Row, bool) {
	best := Row{Speedup: math.Inf(-1)}
	found := false
	for _, row := range r.Rows {
		if row.RMSE <= maxRMSE && row.Speedup > best.Speedup {
			best = row
			found = true
		}
	}
	return best, found
}

// Series splits the rows into parallel slices for plotting.
func (r *Report) Series() (sensitivity, speedup, rmse, measured []float64) {
	for _, row := range r.Rows {
		sensitivity = append(sensitivity, row.Sensitivity)
		speedup = append(speedup, row.Speedup)
		rmse = append(rmse, row.RMSE)
		measured = append(measured, row.MeasuredActivePct)
	}
	return
}
