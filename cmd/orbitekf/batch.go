package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/san-kum/orbitekf/internal/automation"
	"github.com/san-kum/orbitekf/internal/experiment"
	"github.com/san-kum/orbitekf/internal/optim"
	"github.com/san-kum/orbitekf/internal/storage"
	"github.com/spf13/cobra"
)

var (
	sweepParams []string
	sweepMetric string
)

func runBatch(cmd *cobra.Command, args []string) error {
	batch, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	heading(fmt.Sprintf("batch %s (%d steps)", batch.Name, len(batch.Steps)))
	cfgs, results, err := automation.RunBatch(ctx, batch, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	for i, result := range results {
		runID, err := st.Save(metadataFor(cfgs[i]), result)
		if err != nil {
			return err
		}
		field(cfgs[i].Name, "%s, %d steps, energy drift %.3e", runID, result.StepsTaken, result.Metrics["energy_drift"])
	}
	return nil
}

// parseParam reads "name=v1,v2,...".
func parseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("bad --param %q, want name=v1,v2", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad --param %q: %w", s, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]float64
	for _, p := range sweepParams {
		name, values, err := parseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	heading(fmt.Sprintf("sweeping %s by %s", cfg.Name, sweepMetric))
	points, err := search.Search(ctx, cfg, experiment.NewRegistry(), sweepMetric)
	for _, p := range points {
		label := make([]string, 0, len(names))
		for _, name := range names {
			label = append(label, fmt.Sprintf("%s=%g", name, p.Params[name]))
		}
		if p.Err != nil {
			field(strings.Join(label, " "), "%s", warnStyle.Render(p.Err.Error()))
			continue
		}
		field(strings.Join(label, " "), "%.6e (%d steps)", p.Value, p.Steps)
	}
	return err
}
