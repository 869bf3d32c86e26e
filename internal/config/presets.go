package config

import (
	"sort"

	"github.com/san-kum/dilasim/internal/cloud"
)

var Presets = map[string]func(*Config){
	"small": func(c *Config) {
		c.Cloud = cloud.Spec{Kind: "sphere", Particles: 2000, Radius: 300, Seed: 42}
		c.Run.Steps = 200
	},
	"galaxy": func(c *Config) {
		c.Cloud = cloud.Spec{Kind: "sphere", Particles: 100000, Radius: 300, Seed: 42}
		c.Run.Steps = 750
		c.StepsPerFrame = 5
	},
	"clusters": func(c *Config) {
		c.Cloud = cloud.Spec{Kind: "clusters", Particles: 8000, Radius: 300, Separation: 250, Seed: 7}
		c.Run.Steps = 300
	},
	"shell": func(c *Config) {
		c.Cloud = cloud.Spec{Kind: "shell", Particles: 5000, Radius: 200, Seed: 3}
		c.Run.Steps = 300
	},
}

// GetPreset returns the default configuration with the named preset applied,
// or nil if no such preset exists.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
