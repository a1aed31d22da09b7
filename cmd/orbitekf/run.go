package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/orbitekf/internal/config"
	"github.com/san-kum/orbitekf/internal/experiment"
	"github.com/san-kum/orbitekf/internal/propagate"
	"github.com/san-kum/orbitekf/internal/stm"
	"github.com/san-kum/orbitekf/internal/storage"
	"github.com/san-kum/orbitekf/internal/tui"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// loadScenario resolves a preset name or --config file and applies the
// command-line overrides.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		name := "leo"
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown scenario: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Lookup("dt") != nil && flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Lookup("time") != nil && flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Lookup("integrator") != nil && flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func metadataFor(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Scenario:   cfg.Name,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Adaptive:   cfg.Adaptive,
		Agents:     cfg.Agents,
		CentralMu:  cfg.CentralMu(),
	}
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field(name, "%.6e", m[name])
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	logger := slog.Default()
	if live {
		// log records would tear the live view
		logger = slog.New(slog.DiscardHandler)
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	var result *propagate.Result
	if live {
		feed := tui.NewFeed(cfg.CentralMu(), time.Second/time.Duration(max(frameRate, 1)))
		result, err = tui.Run(ctx, cfg.Name, cfg.Agents, cfg.Duration, feed,
			func(ctx context.Context) (*propagate.Result, error) {
				return exp.Run(ctx, propagate.WithObservers(feed))
			})
	} else {
		heading(fmt.Sprintf("propagating %s", cfg.Name))
		result, err = exp.Run(ctx)
	}
	stopped := errors.Is(err, context.Canceled) && result != nil
	if err != nil && !stopped {
		return err
	}
	elapsed := time.Since(start)
	if stopped {
		fmt.Println(warnStyle.Render(fmt.Sprintf("stopped at t=%.1f s, saving partial run", result.Times[len(result.Times)-1])))
	}

	runID, err := st.Save(metadataFor(cfg), result)
	if err != nil {
		return err
	}

	field("run id", "%s", runID)
	field("completed in", "%v", elapsed)
	field("steps", "%d (%d rejected)", result.StepsTaken, result.Rejected)
	final := result.Final()
	field("final position", "%.3f %.3f %.3f km", final[0], final[1], final[2])
	fmt.Println()
	heading("metrics")
	printMetrics(result.Metrics)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	cfgs := make([]*config.Config, 0, len(args))
	jobs := make([]propagate.Job, 0, len(args))
	for _, name := range args {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown scenario: %s (available: %v)", name, config.ListPresets())
		}
		if cmd.Flags().Changed("time") {
			cfg.Duration = duration
		}
		cfg.Debug = debug

		exp, err := experiment.New(cfg, registry, slog.Default())
		if err != nil {
			return err
		}
		cfgs = append(cfgs, cfg)
		jobs = append(jobs, exp.Job())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	heading(fmt.Sprintf("propagating %d scenarios", len(jobs)))
	start := time.Now()
	results, err := propagate.NewEnsemble(jobs, workers, slog.Default()).Run(ctx)
	if err != nil {
		return err
	}
	field("completed in", "%v", time.Since(start))

	for i, result := range results {
		runID, err := st.Save(metadataFor(cfgs[i]), result)
		if err != nil {
			return err
		}
		fmt.Println()
		heading(cfgs[i].Name)
		field("run id", "%s", runID)
		field("steps", "%d (%d rejected)", result.StepsTaken, result.Rejected)
		printMetrics(result.Metrics)
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args[:1])
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	heading(fmt.Sprintf("comparing integrators for %s (dt=%g, duration=%gs)", cfg.Name, cfg.Dt, cfg.Duration))
	fmt.Printf("%-12s  %-14s  %-12s  %-12s  %-10s\n", "integrator", "final_r_km", "energy_drift", "stm_det", "time_ms")
	fmt.Println(strings.Repeat("-", 68))

	for _, name := range args[1:] {
		run := *cfg
		run.Integrator = name
		// adaptive stepping only exists for rk45
		run.Adaptive = cfg.Adaptive && name == "rk45"

		exp, err := experiment.New(&run, registry, slog.Default())
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		final := result.Final()
		fmt.Printf("%-12s  %14.6f  %12.2e  %12.2e  %10.2f\n", name,
			floats.Norm(final.Position(), 2),
			result.Metrics["energy_drift"], result.Metrics["stm_det_drift"],
			float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func deriveOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	x, dxdt, err := exp.Derive(evalTime)
	if err != nil {
		return err
	}

	agents := exp.Dynamics().Agents()
	n := len(agents)

	heading(fmt.Sprintf("derivative of %s at t=%g", cfg.Name, evalTime))
	field("agents", "%s", strings.Join(agents, " "))
	field("velocity", "%.6f %.6f %.6f km/s", dxdt[0], dxdt[1], dxdt[2])
	field("acceleration", "%.6e %.6e %.6e km/s²", dxdt[3], dxdt[4], dxdt[5])
	if n == 0 {
		return nil
	}

	fmt.Println()
	heading("state transition matrix")
	fmt.Printf("%v\n\n", mat.Formatted(stm.ToMatrix(stm.Block(x, n), n), mat.Squeeze()))
	heading("state transition matrix derivative")
	fmt.Printf("%.6e\n", mat.Formatted(stm.ToMatrix(stm.Block(dxdt, n), n), mat.Squeeze()))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	heading("scenarios")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		bodies := make([]string, 0, len(p.Gravity)+len(p.ThirdBodies))
		for _, g := range p.Gravity {
			bodies = append(bodies, g.Name)
		}
		for _, b := range p.ThirdBodies {
			bodies = append(bodies, b.Name)
		}
		field(name, "%s, %d agents, %s", p.Integrator, len(p.Agents), strings.Join(bodies, "+"))
	}
	return nil
}
