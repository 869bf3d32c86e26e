package dynamo

import (
	"fmt"
	"math"
	"runtime"
)

type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec3) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Particle is one simulated body. Mass is carried but the force law does not
// read it.
type Particle struct {
	Pos      Vec3
	Vel      Vec3
	Mass     float64
	Type     float64
	TimeDebt float64
	Active   float64
}

func (p Particle) IsActive() bool { return p.Active > 0.5 }

// Clone returns an independent copy of a particle set.
func Clone(ps []Particle) []Particle {
	c := make([]Particle, len(ps))
	copy(c, ps)
	return c
}

type Mode int

const (
	ModePlain Mode = iota
	ModeAdaptive
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "plain", "newton", "":
		return ModePlain, nil
	case "adaptive", "dilated":
		return ModeAdaptive, nil
	default:
		return ModePlain, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Constants parameterize the force law and the scheduler.
type Constants struct {
	G            float64 `yaml:"g"`
	K            float64 `yaml:"k"`
	Softening    float64 `yaml:"softening"`
	Damping      float64 `yaml:"damping"`
	SleepFactor  float64 `yaml:"sleep_factor"`
	TensionScale float64 `yaml:"tension_scale"`
	TypeEpsilon  float64 `yaml:"type_epsilon"`
}

// DefaultConstants sizes TensionScale so that averaged tension in a
// radius-300 cloud spans roughly 1 to 100, the range of the stock sweep.
func DefaultConstants() Constants {
	return Constants{
		G:            1.0,
		K:            1.0,
		Softening:    0.1,
		Damping:      0.99,
		SleepFactor:  0.02,
		TensionScale: 1e6,
		TypeEpsilon:  0.1,
	}
}

// StepConfig is the per-step uniform block handed to the kernel. Only
// TimeSeed differs between steps of one run.
type StepConfig struct {
	Dt          float64
	Mode        Mode
	Sensitivity float64
	Samples     int
	TimeSeed    uint32
	Constants   Constants
}

type RunConfig struct {
	Steps       int
	Seed        uint32
	Dt          float64
	Mode        Mode
	Sensitivity float64
	Samples     int
	Workers     int
	Constants   Constants
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Steps:     200,
		Seed:      1,
		Dt:        0.1,
		Mode:      ModePlain,
		Samples:   16,
		Workers:   runtime.NumCPU(),
		Constants: DefaultConstants(),
	}
}

// Step returns the uniform block for step i. The time seed advances by one
// per step so every step draws a fresh sampling pattern.
func (c RunConfig) Step(i int) StepConfig {
	return StepConfig{
		Dt:          c.Dt,
		Mode:        c.Mode,
		Sensitivity: c.Sensitivity,
		Samples:     c.Samples,
		TimeSeed:    c.Seed + uint32(i),
		Constants:   c.Constants,
	}
}

func (c RunConfig) Validate() error {
	if c.Dt <= 0 || math.IsNaN(c.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidConfig, c.Steps)
	}
	if c.Samples < 0 {
		return fmt.Errorf("%w: samples must be non-negative, got %d", ErrInvalidConfig, c.Samples)
	}
	if c.Mode != ModePlain && c.Mode != ModeAdaptive {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Mode)
	}
	if c.Mode == ModeAdaptive && math.IsNaN(c.Sensitivity) {
		return fmt.Errorf("%w: sensitivity is NaN", ErrInvalidConfig)
	}
	k := c.Constants
	if k.SleepFactor <= 0 || k.SleepFactor > 1 {
		return fmt.Errorf("%w: sleep factor must be in (0, 1], got %f", ErrInvalidConfig, k.SleepFactor)
	}
	if k.Softening < 0 {
		return fmt.Errorf("%w: softening must be non-negative, got %f", ErrInvalidConfig, k.Softening)
	}
	return nil
}
