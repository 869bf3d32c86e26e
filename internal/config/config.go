package config

import (
	"fmt"
	"os"

	"github.com/san-kum/dilasim/internal/bench"
	"github.com/san-kum/dilasim/internal/cloud"
	"github.com/san-kum/dilasim/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt            = 0.1
	DefaultSteps         = 200
	DefaultSamples       = 16
	DefaultSeed          = 1
	DefaultParticles     = 10000
	DefaultRadius        = 300.0
	DefaultStepsPerFrame = 5
	DefaultBackend       = "cpu"
)

type Config struct {
	Cloud         cloud.Spec       `yaml:"cloud"`
	Run           RunSection       `yaml:"run"`
	Constants     dynamo.Constants `yaml:"constants"`
	Sweep         SweepSection     `yaml:"sweep"`
	StepsPerFrame int              `yaml:"steps_per_frame"`
	LogLevel      string           `yaml:"log_level"`
}

type RunSection struct {
	Steps       int     `yaml:"steps"`
	Seed        uint32  `yaml:"seed"`
	Dt          float64 `yaml:"dt"`
	Mode        string  `yaml:"mode"`
	Sensitivity float64 `yaml:"sensitivity"`
	Samples     int     `yaml:"samples"`
	Workers     int     `yaml:"workers"`
	Backend     string  `yaml:"backend"`
}

type SweepSection struct {
	Sensitivities []float64 `yaml:"sensitivities"`
	Repeats       int       `yaml:"repeats"`
	MaxRMSE       float64   `yaml:"max_rmse"`
}

func DefaultConfig() *Config {
	spec := cloud.DefaultSpec()
	spec.Particles = DefaultParticles
	spec.Radius = DefaultRadius

	return &Config{
		Cloud: spec,
		Run: RunSection{
			Steps:       DefaultSteps,
			Seed:        DefaultSeed,
			Dt:          DefaultDt,
			Mode:        dynamo.ModeAdaptive.String(),
			Sensitivity: 10,
			Samples:     DefaultSamples,
			Backend:     DefaultBackend,
		},
		Constants: dynamo.DefaultConstants(),
		Sweep: SweepSection{
			Sensitivities: append([]float64(nil), bench.DefaultSensitivities...),
			Repeats:       1,
			MaxRMSE:       1.0,
		},
		StepsPerFrame: DefaultStepsPerFrame,
		LogLevel:      "info",
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base. Keys absent from the file keep base's
// values.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RunConfig converts the run and constants sections into the kernel's run
// configuration.
func (c *Config) RunConfig() (dynamo.RunConfig, error) {
	mode, err := dynamo.ParseMode(c.Run.Mode)
	if err != nil {
		return dynamo.RunConfig{}, err
	}
	rc := dynamo.RunConfig{
		Steps:       c.Run.Steps,
		Seed:        c.Run.Seed,
		Dt:          c.Run.Dt,
		Mode:        mode,
		Sensitivity: c.Run.Sensitivity,
		Samples:     c.Run.Samples,
		Workers:     c.Run.Workers,
		Constants:   c.Constants,
	}
	return rc, nil
}

func (c *Config) Validate() error {
	rc, err := c.RunConfig()
	if err != nil {
		return err
	}
	if err := rc.Validate(); err != nil {
		return err
	}
	if c.Cloud.Particles < 0 {
		return fmt.Errorf("%w: particle count must be non-negative, got %d", dynamo.ErrInvalidConfig, c.Cloud.Particles)
	}
	if c.StepsPerFrame < 1 {
		return fmt.Errorf("%w: steps_per_frame must be at least 1, got %d", dynamo.ErrInvalidConfig, c.StepsPerFrame)
	}
	return nil
}
