package kernel

import "github.com/san-kum/dilasim/internal/dynamo"

// Factor returns the dilation factor for this step. It only ever looks at the
// tension just computed, so a particle wakes on the step its tension crosses
// the threshold.
func Factor(tension float64, cfg dynamo.StepConfig) float64 {
	if cfg.Mode != dynamo.ModeAdaptive {
		return 1.0
	}
	if tension < cfg.Sensitivity {
		return cfg.Constants.SleepFactor
	}
	return 1.0
}

// Dilate advances the particle's time debt and integrates its motion when
// the debt reaches 1.0. It reports whether the particle moved.
func Dilate(p *dynamo.Particle, tension float64, force dynamo.Vec3, cfg dynamo.StepConfig) bool {
	p.TimeDebt += Factor(tension, cfg)

	if p.TimeDebt < 1.0 {
		p.Active = 0
		return false
	}

	p.TimeDebt -= 1.0
	p.Active = 1

	p.Vel = p.Vel.Scale(cfg.Constants.Damping)
	p.Vel = p.Vel.Add(force.Scale(cfg.Dt))
	p.Pos = p.Pos.Add(p.Vel.Scale(cfg.Dt))
	return true
}

// Process runs one particle's full invocation: estimate against the pre-step
// snapshot, then schedule into dst. src and dst must not alias.
func Process(i int, src, dst []dynamo.Particle, cfg dynamo.StepConfig) bool {
	force, tension := Estimate(i, src, cfg)
	dst[i] = src[i]
	return Dilate(&dst[i], tension, force, cfg)
}
