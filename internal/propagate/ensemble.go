package propagate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Job is one independent propagation. Jobs must not share a System or an
// Integrator instance: integrators keep scratch buffers.
type Job struct {
	Name       string
	Dyn        dynamo.System
	Integrator dynamo.Integrator
	X0         dynamo.State
	Config     Config
	Metrics    []dynamo.Metric
}

type Ensemble struct {
	jobs    []Job
	workers int
	logger  *slog.Logger
}

func NewEnsemble(jobs []Job, workers int, logger *slog.Logger) *Ensemble {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensemble{jobs: jobs, workers: workers, logger: logger}
}

// Run propagates every job and returns results in job order. The first
// failure cancels the remaining jobs.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.jobs))

	g, ctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}

	for i, job := range e.jobs {
		g.Go(func() error {
			p := New(job.Dyn, job.Integrator,
				WithLogger(e.logger.With(slog.String("job", job.Name))),
				WithMetrics(job.Metrics...))
			res, err := p.Run(ctx, job.X0, job.Config)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
