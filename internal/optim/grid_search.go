// Package optim sweeps scenario stepping parameters and ranks the runs by
// a metric.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/orbitekf/internal/config"
	"github.com/san-kum/orbitekf/internal/experiment"
)

// Point is one evaluated parameter combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Steps  int
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Apply sets a named stepping parameter on cfg.
func Apply(cfg *config.Config, name string, value float64) error {
	switch name {
	case "dt":
		cfg.Dt = value
	case "duration":
		cfg.Duration = value
	case "tolerance":
		cfg.Tolerance = value
	case "max_dt":
		cfg.MaxDt = value
	default:
		return fmt.Errorf("unknown parameter %q (want dt, duration, tolerance or max_dt)", name)
	}
	return nil
}

// Search runs every combination and returns all points, sorted by metric
// value, with failed runs last. The best point is the first one without an
// error; if every run failed Search returns the first failure.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
) ([]Point, error) {
	var points []Point
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, registry, metricName, &points); err != nil {
		return nil, err
	}

	sort.SliceStable(points, func(i, j int) bool {
		if (points[i].Err == nil) != (points[j].Err == nil) {
			return points[i].Err == nil
		}
		return points[i].Value < points[j].Value
	})

	if points[0].Err != nil {
		return points, points[0].Err
	}
	return points, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		*points = append(*points, g.evaluate(ctx, current, base, registry, metricName))
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, registry, metricName, points); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config, registry *experiment.Registry, metricName string) Point {
	p := Point{Params: params, Value: math.Inf(1)}

	cfg := *base
	for name, val := range params {
		if err := Apply(&cfg, name, val); err != nil {
			p.Err = err
			return p
		}
	}

	exp, err := experiment.New(&cfg, registry, nil)
	if err != nil {
		p.Err = err
		return p
	}
	result, err := exp.Run(ctx)
	if err != nil {
		p.Err = err
		return p
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		p.Err = fmt.Errorf("run has no metric %q", metricName)
		return p
	}
	p.Value = val
	p.Steps = result.StepsTaken
	return p
}
