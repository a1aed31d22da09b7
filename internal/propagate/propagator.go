// Package propagate drives an integrator over a dynamo.System and records
// the trajectory of the augmented state.
package propagate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
)

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            10.0,
		Duration:      5400.0,
		Tolerance:     1e-9,
		MaxDt:         300.0,
		MinDt:         1e-6,
		Adaptive:      false,
		ValidateState: true,
	}
}

type Result struct {
	States     []dynamo.State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Rejected   int
}

// Final returns the last recorded state.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

type Propagator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *slog.Logger
}

type Option func(*Propagator)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Propagator) { p.logger = logger }
}

func WithMetrics(metrics ...dynamo.Metric) Option {
	return func(p *Propagator) { p.metrics = append(p.metrics, metrics...) }
}

func WithObservers(observers ...dynamo.Observer) Option {
	return func(p *Propagator) { p.observers = append(p.observers, observers...) }
}

func New(dyn dynamo.System, integrator dynamo.Integrator, opts ...Option) *Propagator {
	p := &Propagator{
		dyn:        dyn,
		integrator: integrator,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Propagator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive {
		if cfg.Tolerance <= 0 {
			return errors.New("tolerance must be positive for adaptive stepping")
		}
		if _, ok := p.integrator.(dynamo.AdaptiveIntegrator); !ok {
			return fmt.Errorf("integrator %T does not support adaptive stepping", p.integrator)
		}
	}
	return nil
}

// Run integrates x0 from t=0 to cfg.Duration. The layout of x0 is checked
// against the system before the first step; a failed step ends the run and
// returns the trajectory so far together with a *dynamo.SimulationError.
func (p *Propagator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := p.validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := p.dyn.Validate(len(x0)); err != nil {
		return nil, err
	}

	steps := int(math.Ceil(cfg.Duration / cfg.Dt))
	result := &Result{
		States:  make([]dynamo.State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range p.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	p.record(result, x, t)

	p.logger.Info("propagation started",
		slog.Int("state_dim", len(x0)),
		slog.Float64("duration", cfg.Duration),
		slog.Float64("dt", cfg.Dt),
		slog.Bool("adaptive", cfg.Adaptive))

	// end absorbs rounding accumulated in t
	end := cfg.Duration * (1 - 1e-12)
	for step := 0; t < end; step++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		h := math.Min(dt, cfg.Duration-t)

		var newX dynamo.State
		var err error
		if cfg.Adaptive {
			newX, h, dt, err = p.adaptiveStep(x, t, h, cfg, result)
		} else {
			newX, err = p.integrator.Step(p.dyn, x, t, h)
		}
		if err != nil {
			return result, &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: err}
		}

		if cfg.ValidateState && !newX.IsValid() {
			return result, &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		x = newX
		t += h
		result.StepsTaken++
		p.record(result, x, t)
	}

	for _, m := range p.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	p.logger.Info("propagation finished",
		slog.Int("steps", result.StepsTaken),
		slog.Int("rejected", result.Rejected),
		slog.Float64("t", t))

	return result, nil
}

func (p *Propagator) record(result *Result, x dynamo.State, t float64) {
	for _, m := range p.metrics {
		m.Observe(x, t)
	}
	for _, obs := range p.observers {
		obs.OnStep(x, t)
	}
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
}

// adaptiveStep retries with smaller steps until one is accepted. It returns
// the new state, the step actually taken and the suggested next step.
func (p *Propagator) adaptiveStep(x dynamo.State, t, h float64, cfg Config, result *Result) (dynamo.State, float64, float64, error) {
	adaptive := p.integrator.(dynamo.AdaptiveIntegrator)

	for {
		newX, next, err := adaptive.StepAdaptive(p.dyn, x, t, h, cfg.Tolerance)
		if err != nil {
			return nil, 0, 0, err
		}
		if newX != nil {
			if cfg.MaxDt > 0 {
				next = math.Min(next, cfg.MaxDt)
			}
			return newX, h, next, nil
		}
		result.Rejected++
		if next < cfg.MinDt {
			return nil, 0, 0, fmt.Errorf("%w: %g < %g", dynamo.ErrStepTooSmall, next, cfg.MinDt)
		}
		h = next
	}
}
