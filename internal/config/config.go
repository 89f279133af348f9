package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultG           = 1.0
	DefaultDt          = 1e-3
	DefaultDuration    = 100.0
	DefaultTolerance   = 1e-9
	DefaultMinDistance = 0.01
	DefaultSampleEvery = 100
	DefaultIntegrator  = "leapfrog"
)

// Config describes a simulation scenario: the global parameters and the
// initial body set. The first body is the primary; later bodies may be
// placed either by explicit state vectors or by orbital elements relative
// to the primary.
type Config struct {
	Name        string       `yaml:"name"`
	G           float64      `yaml:"g"`
	Integrator  string       `yaml:"integrator"`
	Dt          float64      `yaml:"dt"`
	Duration    float64      `yaml:"duration"`
	Tolerance   float64      `yaml:"tolerance"`
	MinDistance float64      `yaml:"min_distance"`
	Softening   float64      `yaml:"softening"`
	Merge       bool         `yaml:"merge"`
	SampleEvery int          `yaml:"sample_every"`
	Bodies      []BodyConfig `yaml:"bodies"`
}

// BodyConfig is one body in a scenario. Pos/Vel take precedence over the
// orbital-element placement when present.
type BodyConfig struct {
	ID   string      `yaml:"id"`
	Mass float64     `yaml:"mass"`
	A    float64     `yaml:"a"`
	E    float64     `yaml:"e"`
	Nu   float64     `yaml:"nu"`
	Pos  *[3]float64 `yaml:"pos,omitempty"`
	Vel  *[3]float64 `yaml:"vel,omitempty"`
}

// HasState reports whether the body is placed by explicit state vectors
// rather than orbital elements.
func (b BodyConfig) HasState() bool {
	return b.Pos != nil || b.Vel != nil
}

// Default returns the two-planet close-encounter scenario: a unit-mass
// star with two planets on nearby orbits that will eventually cross.
func Default() *Config {
	return &Config{
		Name:        "two-planets",
		G:           DefaultG,
		Integrator:  DefaultIntegrator,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Tolerance:   DefaultTolerance,
		MinDistance: DefaultMinDistance,
		Merge:       true,
		SampleEvery: DefaultSampleEvery,
		Bodies: []BodyConfig{
			{ID: "star", Mass: 1.0},
			{ID: "p1", Mass: 1e-3, A: 1.0},
			{ID: "p2", Mass: 5e-3, A: 1.25},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if len(c.Bodies) == 0 {
		return fmt.Errorf("scenario needs at least one body")
	}
	seen := make(map[string]struct{}, len(c.Bodies))
	for i, b := range c.Bodies {
		if b.ID == "" {
			return fmt.Errorf("body %d has no identifier", i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate body identifier: %s", b.ID)
		}
		seen[b.ID] = struct{}{}
		if b.Mass <= 0 {
			return fmt.Errorf("body %s: mass must be positive, got %g", b.ID, b.Mass)
		}
		if i > 0 && !b.HasState() && b.A <= 0 {
			return fmt.Errorf("body %s: needs either pos/vel or a positive semi-major axis", b.ID)
		}
	}
	return nil
}
