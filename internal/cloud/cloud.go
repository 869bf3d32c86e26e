// Package cloud generates initial particle sets.
//
// Every generator is deterministic for a given seed so the harness can rebuild
// an identical starting store for each configuration of a sweep.
package cloud

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/san-kum/dilasim/internal/dynamo"
)

const (
	TypeA = 0.0
	TypeB = 1.0
)

type Spec struct {
	Kind      string  `yaml:"kind"`
	Particles int     `yaml:"particles"`
	Radius    float64 `yaml:"radius"`
	// Separation is the distance between cluster centres for Clusters.
	Separation float64 `yaml:"separation"`
	Seed       int64   `yaml:"seed"`
}

func DefaultSpec() Spec {
	return Spec{
		Kind:       "sphere",
		Particles:  10000,
		Radius:     300,
		Separation: 200,
		Seed:       42,
	}
}

type generator func(Spec) []dynamo.Particle

var generators = map[string]generator{
	"sphere":   Sphere,
	"clusters": Clusters,
	"shell":    Shell,
}

// Generate builds the particle set described by spec.
func Generate(spec Spec) ([]dynamo.Particle, error) {
	gen, ok := generators[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown cloud kind: %s (available: %v)", spec.Kind, Kinds())
	}
	if spec.Particles < 0 {
		return nil, fmt.Errorf("particle count must be non-negative, got %d", spec.Particles)
	}
	return gen(spec), nil
}

func Kinds() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sphere scatters particles through a ball of spec.Radius, at rest, with a
// coin-flip type. Radii are drawn as R·√u, which concentrates the cloud
// towards the core.
func Sphere(spec Spec) []dynamo.Particle {
	rng := rand.New(rand.NewSource(spec.Seed))
	ps := make([]dynamo.Particle, spec.Particles)

	for i := range ps {
		r := spec.Radius * math.Sqrt(rng.Float64())
		theta := rng.Float64() * 2 * math.Pi
		phi := rng.Float64() * math.Pi

		ps[i] = dynamo.Particle{
			Pos:  sphericalToCartesian(r, theta, phi),
			Mass: 1,
			Type: coinType(rng),
		}
	}
	return ps
}

// Clusters places two same-type balls side by side along x so the only
// contested region is where they meet.
func Clusters(spec Spec) []dynamo.Particle {
	rng := rand.New(rand.NewSource(spec.Seed))
	ps := make([]dynamo.Particle, spec.Particles)
	half := spec.Separation / 2

	for i := range ps {
		typ, cx := TypeA, -half
		if i%2 == 1 {
			typ, cx = TypeB, half
		}

		r := spec.Radius / 2 * math.Cbrt(rng.Float64())
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(2*rng.Float64() - 1)

		pos := sphericalToCartesian(r, theta, phi)
		pos[0] += cx

		ps[i] = dynamo.Particle{Pos: pos, Mass: 1, Type: typ}
	}
	return ps
}

// Shell puts every particle on the surface of a sphere with a small tangential
// velocity.
func Shell(spec Spec) []dynamo.Particle {
	rng := rand.New(rand.NewSource(spec.Seed))
	ps := make([]dynamo.Particle, spec.Particles)

	for i := range ps {
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(2*rng.Float64() - 1)
		pos := sphericalToCartesian(spec.Radius, theta, phi)

		ps[i] = dynamo.Particle{
			Pos:  pos,
			Vel:  dynamo.Vec3{-math.Sin(theta), math.Cos(theta), 0}.Scale(0.5),
			Mass: 1,
			Type: coinType(rng),
		}
	}
	return ps
}

func sphericalToCartesian(r, theta, phi float64) dynamo.Vec3 {
	sp, cp := math.Sincos(phi)
	st, ct := math.Sincos(theta)
	return dynamo.Vec3{r * sp * ct, r * sp * st, r * cp}
}

func coinType(rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		return TypeA
	}
	return TypeB
}
