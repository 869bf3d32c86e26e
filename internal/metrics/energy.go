package metrics

import "github.com/san-kum/dilasim/internal/dynamo"

// KineticEnergy averages the per-particle kinetic energy ½|v|² over every
// observed step. Mass is ignored to match the force law.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
	last    float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(ps []dynamo.Particle, step, active int) {
	if len(ps) == 0 {
		return
	}
	ke := 0.0
	for _, p := range ps {
		ke += 0.5 * p.Vel.Dot(p.Vel)
	}
	k.last = ke / float64(len(ps))
	k.total += k.last
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

// Last is the mean kinetic energy at the most recent step.
func (k *KineticEnergy) Last() float64 { return k.last }

func (k *KineticEnergy) Reset() {
	k.samples = 0
	k.total = 0
	k.last = 0
}

// Drift tracks the largest spread change relative to the first observed step.
type Drift struct {
	name    string
	initial float64
	max     float64
	samples int
}

func NewDrift() *Drift {
	return &Drift{name: "spread_drift"}
}

func (d *Drift) Name() string { return d.name }

func (d *Drift) Observe(ps []dynamo.Particle, step, active int) {
	s := Spread(ps)
	if d.samples == 0 {
		d.initial = s
	}
	d.samples++
	if d.initial == 0 {
		return
	}
	rel := (s - d.initial) / d.initial
	if rel < 0 {
		rel = -rel
	}
	if rel > d.max {
		d.max = rel
	}
}

func (d *Drift) Value() float64 { return d.max }

func (d *Drift) Reset() {
	d.initial = 0
	d.max = 0
	d.samples = 0
}
