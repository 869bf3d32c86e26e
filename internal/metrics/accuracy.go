package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/dilasim/internal/dynamo"
)

// RMSE is the root-mean-square positional distance between matching indices
// of two particle sets. It is symmetric and zero for identical sets.
func RMSE(a, b []dynamo.Particle) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", dynamo.ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	sum := 0.0
	for i := range a {
		d := a[i].Pos.Sub(b[i].Pos)
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(a))), nil
}

// Centroid is the unweighted mean position.
func Centroid(ps []dynamo.Particle) dynamo.Vec3 {
	var c dynamo.Vec3
	if len(ps) == 0 {
		return c
	}
	for _, p := range ps {
		c = c.Add(p.Pos)
	}
	return c.Scale(1 / float64(len(ps)))
}

// Spread is the RMS distance of the particles from their centroid.
func Spread(ps []dynamo.Particle) float64 {
	if len(ps) == 0 {
		return 0
	}
	c := Centroid(ps)
	sum := 0.0
	for _, p := range ps {
		d := p.Pos.Sub(c)
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(ps)))
}

// ActiveCount counts particles whose active flag is set.
func ActiveCount(ps []dynamo.Particle) int {
	n := 0
	for _, p := range ps {
		if p.IsActive() {
			n++
		}
	}
	return n
}
