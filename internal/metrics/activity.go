package metrics

import "github.com/san-kum/dilasim/internal/dynamo"

// ActiveFraction is the measured share of particle-steps that integrated:
// the sum of active flags over all particles and steps divided by N × steps.
type ActiveFraction struct {
	name    string
	active  int
	total   int
	history []float64
	keep    bool
}

func NewActiveFraction() *ActiveFraction {
	return &ActiveFraction{name: "active_fraction"}
}

// NewActiveFractionHistory also records the per-step fraction.
func NewActiveFractionHistory() *ActiveFraction {
	return &ActiveFraction{name: "active_fraction", keep: true}
}

func (a *ActiveFraction) Name() string { return a.name }

func (a *ActiveFraction) Observe(ps []dynamo.Particle, step, active int) {
	a.active += active
	a.total += len(ps)
	if a.keep && len(ps) > 0 {
		a.history = append(a.history, float64(active)/float64(len(ps)))
	}
}

func (a *ActiveFraction) Value() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.active) / float64(a.total)
}

func (a *ActiveFraction) History() []float64 { return a.history }

func (a *ActiveFraction) Reset() {
	a.active = 0
	a.total = 0
	a.history = a.history[:0]
}
