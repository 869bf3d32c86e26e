package kernel

import (
	"math"

	"github.com/san-kum/dilasim/internal/dynamo"
)

// Estimate approximates the net force on src[i] and its tension from
// cfg.Samples pseudo-randomly chosen neighbours. Same-type neighbours attract
// and never raise tension; different-type neighbours repel and add
// TensionScale/r² each. In adaptive mode tension is averaged over the samples.
func Estimate(i int, src []dynamo.Particle, cfg dynamo.StepConfig) (dynamo.Vec3, float64) {
	var force dynamo.Vec3
	tension := 0.0

	n := len(src)
	if n == 0 || cfg.Samples <= 0 {
		return force, tension
	}

	k := cfg.Constants
	p := src[i]

	for trial := 0; trial < cfg.Samples; trial++ {
		j := Sample(i, cfg.TimeSeed, trial, n)
		if j == i {
			continue
		}
		o := src[j]

		d := o.Pos.Sub(p.Pos)
		dist2 := d.Dot(d)
		r2 := dist2 + k.Softening
		if r2 <= 0 {
			continue
		}

		sign := 1.0
		if math.Abs(p.Type-o.Type) >= k.TypeEpsilon {
			sign = -1.0
			tension += k.TensionScale / r2
		}

		if dist2 > 0 {
			mag := k.G * k.K * sign / r2
			force = force.Add(d.Scale(mag / math.Sqrt(dist2)))
		}
	}

	if cfg.Mode == dynamo.ModeAdaptive {
		tension /= float64(cfg.Samples)
	}

	return force, tension
}
