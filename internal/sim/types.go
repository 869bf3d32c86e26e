package sim

import (
	"time"

	"github.com/san-kum/dilasim/internal/dynamo"
)

// Metric accumulates a scalar over the steps of one run.
type Metric interface {
	Name() string
	Observe(ps []dynamo.Particle, step, active int)
	Value() float64
	Reset()
}

// Observer sees the store after every step. It must not retain ps.
type Observer interface {
	OnStep(ps []dynamo.Particle, step, active int)
}

type Result struct {
	Particles   []dynamo.Particle
	Steps       int
	ActiveSteps int
	Elapsed     time.Duration
	Backend     string
	Metrics     map[string]float64
}

// ActiveFraction is the measured share of particle-steps that integrated.
func (r *Result) ActiveFraction() float64 {
	total := len(r.Particles) * r.Steps
	if total == 0 {
		return 0
	}
	return float64(r.ActiveSteps) / float64(total)
}
