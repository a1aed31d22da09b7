// Package automation runs scripted batches of scenarios described in YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/san-kum/orbitekf/internal/config"
	"github.com/san-kum/orbitekf/internal/experiment"
	"github.com/san-kum/orbitekf/internal/propagate"
	"gopkg.in/yaml.v3"
)

// Batch is a scripted set of propagations.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Workers     int         `yaml:"workers"`
	Steps       []BatchStep `yaml:"steps"`

	dir string
}

// BatchStep selects a scenario by preset name or by scenario file and
// optionally overrides its stepping.
type BatchStep struct {
	Preset     string  `yaml:"preset"`
	Config     string  `yaml:"config"`
	Integrator string  `yaml:"integrator"`
	Duration   float64 `yaml:"duration"`
	Dt         float64 `yaml:"dt"`
	SaveAs     string  `yaml:"save_as"`
}

// LoadBatch loads a batch from a YAML file. Scenario file paths inside it
// are resolved relative to the batch file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("batch %s: %w", path, err)
	}
	if len(batch.Steps) == 0 {
		return nil, fmt.Errorf("batch %s: no steps", path)
	}
	batch.dir = filepath.Dir(path)

	return &batch, nil
}

// Scenarios resolves every step into a scenario configuration.
func (b *Batch) Scenarios() ([]*config.Config, error) {
	cfgs := make([]*config.Config, 0, len(b.Steps))
	var errs []error

	for i, step := range b.Steps {
		cfg, err := b.resolve(step)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			continue
		}
		cfgs = append(cfgs, cfg)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (b *Batch) resolve(step BatchStep) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case step.Preset != "" && step.Config != "":
		return nil, errors.New("preset and config are mutually exclusive")
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.dir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", step.Preset)
		}
	default:
		return nil, errors.New("either preset or config is required")
	}

	if step.Integrator != "" {
		cfg.Integrator = step.Integrator
	}
	if step.Dt > 0 {
		cfg.Dt = step.Dt
	}
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	}
	return cfg, nil
}

// RunBatch builds every step and propagates them as one ensemble. Results
// are returned in step order alongside the resolved scenarios.
func RunBatch(ctx context.Context, batch *Batch, registry *experiment.Registry, logger *slog.Logger) ([]*config.Config, []*propagate.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfgs, err := batch.Scenarios()
	if err != nil {
		return nil, nil, err
	}

	jobs := make([]propagate.Job, 0, len(cfgs))
	for i, cfg := range cfgs {
		exp, err := experiment.New(cfg, registry, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		jobs = append(jobs, exp.Job())
	}

	logger.Info("batch started", slog.String("batch", batch.Name), slog.Int("steps", len(jobs)))
	results, err := propagate.NewEnsemble(jobs, batch.Workers, logger).Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfgs, results, nil
}
