// Package experiment turns a scenario configuration into a wired
// propagation: force models, the EKF derivative assembler, an integrator
// and the default metrics.
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/orbitekf/internal/config"
	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/ekf"
	"github.com/san-kum/orbitekf/internal/metrics"
	"github.com/san-kum/orbitekf/internal/propagate"
)

type Experiment struct {
	cfg        *config.Config
	dyn        *ekf.Dynamics
	integrator dynamo.Integrator
	logger     *slog.Logger
}

// New validates cfg and builds every component. Layout problems surface
// here, before any evaluation.
func New(cfg *config.Config, registry *Registry, logger *slog.Logger) (*Experiment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
	}

	integ, err := registry.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	var opts []ekf.Option
	if cfg.Debug {
		opts = append(opts, ekf.WithDiagnostics(logger))
	}
	dyn := ekf.New(cfg.Models(), cfg.Agents, opts...)
	if err := dyn.Validate(len(cfg.InitialState())); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
	}

	return &Experiment{
		cfg:        cfg,
		dyn:        dyn,
		integrator: integ,
		logger:     logger.With(slog.String("scenario", cfg.Name)),
	}, nil
}

func (e *Experiment) Dynamics() *ekf.Dynamics { return e.dyn }

// Run propagates the scenario with the default metrics. Extra options, such
// as observers, are applied after the defaults.
func (e *Experiment) Run(ctx context.Context, opts ...propagate.Option) (*propagate.Result, error) {
	opts = append([]propagate.Option{
		propagate.WithLogger(e.logger),
		propagate.WithMetrics(metrics.Defaults(e.cfg.CentralMu())...),
	}, opts...)
	p := propagate.New(e.dyn, e.integrator, opts...)
	return p.Run(ctx, e.cfg.InitialState(), e.cfg.Propagation())
}

// Job packages the experiment for an ensemble run.
func (e *Experiment) Job() propagate.Job {
	return propagate.Job{
		Name:       e.cfg.Name,
		Dyn:        e.dyn,
		Integrator: e.integrator,
		X0:         e.cfg.InitialState(),
		Config:     e.cfg.Propagation(),
		Metrics:    metrics.Defaults(e.cfg.CentralMu()),
	}
}

// Derive evaluates the state derivative once at the initial state.
func (e *Experiment) Derive(t float64) (dynamo.State, dynamo.State, error) {
	x0 := e.cfg.InitialState()
	dxdt, err := e.dyn.Evaluate(x0, t)
	if err != nil {
		return nil, nil, err
	}
	return x0, dxdt, nil
}
