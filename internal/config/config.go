package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/force"
	"github.com/san-kum/orbitekf/internal/propagate"
	"github.com/san-kum/orbitekf/internal/stm"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 10.0
	DefaultDuration  = 5400.0
	DefaultTolerance = 1e-9
	DefaultMaxDt     = 300.0
	DefaultMinDt     = 1e-6

	EarthRadius = 6378.137      // km
	EarthMu     = 398600.4418   // km³/s²
	EarthJ2     = 1.08262668e-3 // unitless
	MoonMu      = 4902.800066   // km³/s²
	MoonRange   = 384400.0      // km
)

// DefaultAgents tracks sensitivity to the three position components.
var DefaultAgents = []string{"X", "Y", "Z"}

type Config struct {
	Name        string            `yaml:"name"`
	Integrator  string            `yaml:"integrator"`
	Dt          float64           `yaml:"dt"`
	Duration    float64           `yaml:"duration"`
	Adaptive    bool              `yaml:"adaptive"`
	Tolerance   float64           `yaml:"tolerance"`
	MaxDt       float64           `yaml:"max_dt"`
	MinDt       float64           `yaml:"min_dt"`
	Debug       bool              `yaml:"debug"`
	Agents      []string          `yaml:"agents"`
	InitState   InitStateConfig   `yaml:"init_state"`
	Gravity     []GravityConfig   `yaml:"gravity"`
	ThirdBodies []ThirdBodyConfig `yaml:"third_bodies"`
}

type InitStateConfig struct {
	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity"`
}

type GravityConfig struct {
	Name   string  `yaml:"name"`
	Radius float64 `yaml:"radius"`
	Mu     float64 `yaml:"mu"`
	J2     float64 `yaml:"j2"`
}

type ThirdBodyConfig struct {
	Name     string     `yaml:"name"`
	Mu       float64    `yaml:"mu"`
	Position [3]float64 `yaml:"position"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "leo",
		Integrator: "rk4",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Tolerance:  DefaultTolerance,
		MaxDt:      DefaultMaxDt,
		MinDt:      DefaultMinDt,
		Agents:     append([]string(nil), DefaultAgents...),
		InitState: InitStateConfig{
			Position: [3]float64{7000, 0, 0},
			Velocity: [3]float64{0, 7.546049108166282, 0},
		},
		Gravity: []GravityConfig{
			{Name: "earth", Radius: EarthRadius, Mu: EarthMu, J2: EarthJ2},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

// Validate checks the scenario before any model is built.
func (c *Config) Validate() error {
	var errs []error
	if c.Dt <= 0 {
		errs = append(errs, fmt.Errorf("dt must be positive, got %g", c.Dt))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %g", c.Duration))
	}
	if c.Adaptive && c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive for adaptive stepping, got %g", c.Tolerance))
	}
	for _, g := range c.Gravity {
		if g.Radius <= 0 {
			errs = append(errs, fmt.Errorf("gravity %q: radius must be positive, got %g", g.Name, g.Radius))
		}
	}
	for _, b := range c.ThirdBodies {
		if b.Mu <= 0 {
			errs = append(errs, fmt.Errorf("third body %q: mu must be positive, got %g", b.Name, b.Mu))
		}
		if b.Position == [3]float64{} {
			errs = append(errs, fmt.Errorf("%w: third body %q", dynamo.ErrSingularPosition, b.Name))
		} else if b.Position == c.InitState.Position {
			errs = append(errs, fmt.Errorf("%w: third body %q coincides with the initial position", dynamo.ErrSingularPosition, b.Name))
		}
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if _, dup := seen[a]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate agent %q", dynamo.ErrLayoutMismatch, a))
		}
		seen[a] = struct{}{}
	}
	if c.InitState.Position == [3]float64{} {
		errs = append(errs, fmt.Errorf("%w: initial position", dynamo.ErrSingularPosition))
	}
	return errors.Join(errs...)
}

// Models builds the force models in declaration order: gravity bodies
// first, then third bodies.
func (c *Config) Models() []force.Model {
	models := make([]force.Model, 0, len(c.Gravity)+len(c.ThirdBodies))
	for _, g := range c.Gravity {
		models = append(models, force.NewGravity(g.Name, g.Radius, g.Mu, g.J2))
	}
	for _, b := range c.ThirdBodies {
		models = append(models, force.NewThirdBody(b.Name, b.Mu, b.Position))
	}
	return models
}

// InitialState returns the epoch state with the STM set to identity.
func (c *Config) InitialState() dynamo.State {
	return stm.NewState(c.InitState.Position, c.InitState.Velocity, len(c.Agents))
}

// CentralMu is μ of the first gravity body, used by the energy metrics.
func (c *Config) CentralMu() float64 {
	if len(c.Gravity) == 0 {
		return 0
	}
	return c.Gravity[0].Mu
}

func (c *Config) Propagation() propagate.Config {
	return propagate.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		Tolerance:     c.Tolerance,
		MaxDt:         c.MaxDt,
		MinDt:         c.MinDt,
		Adaptive:      c.Adaptive,
		ValidateState: true,
	}
}
