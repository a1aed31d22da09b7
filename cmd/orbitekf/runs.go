package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/orbitekf/internal/analysis"
	"github.com/san-kum/orbitekf/internal/export"
	"github.com/san-kum/orbitekf/internal/stm"
	"github.com/san-kum/orbitekf/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

// spectrumSamples is the resampled length fed to the FFT.
const spectrumSamples = 1024

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tINTEG\tAGENTS\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0fs\t%gs\t%s\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			len(run.Agents),
			run.Steps,
		)
	}

	return w.Flush()
}

// column extracts state element idx from every row.
func column(states [][]float64, idx int) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		if idx < len(s) {
			out[i] = s[idx]
		}
	}
	return out
}

func radii(states [][]float64) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = floats.Norm(s[0:3], 2)
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	heading(fmt.Sprintf("run %s", meta.ID))
	field("scenario", "%s", meta.Scenario)
	field("samples", "%d", len(states))
	fmt.Println()

	series := []struct {
		caption string
		data    []float64
	}{
		{"x (km)", column(states, 0)},
		{"y (km)", column(states, 1)},
		{"z (km)", column(states, 2)},
		{"radius (km)", radii(states)},
	}

	if plotSTM {
		n := len(meta.Agents)
		for i, agent := range meta.Agents {
			series = append(series, struct {
				caption string
				data    []float64
			}{fmt.Sprintf("phi %s,%s", agent, agent), column(states, stm.Offset+i+i*n)})
		}
	}

	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) < 2 {
		return fmt.Errorf("not enough samples to analyze")
	}

	grid, xs := analysis.Resample(times, column(states, 0), spectrumSamples)
	step := grid[1] - grid[0]
	ps := analysis.PowerSpectrum(xs)

	heading(fmt.Sprintf("spectral analysis: %s", meta.ID))
	fmt.Println(asciigraph.Plot(ps[:len(ps)/4],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("amplitude spectrum of x"),
	))
	fmt.Println()

	period := analysis.DominantPeriod(xs, step)
	if period == 0 {
		field("dominant period", "none")
	} else {
		field("dominant period", "%.1f s", period)
		if period > meta.Duration/2 {
			fmt.Println(warnStyle.Render("  run covers less than two periods; resolution is coarse"))
		}
	}

	kepler, err := keplerPeriod(meta, states[0])
	if err != nil {
		field("kepler period", "n/a (%v)", err)
		return nil
	}
	field("kepler period", "%.1f s", kepler)
	return nil
}

var errNoCentralBody = errors.New("run has no central body")

// keplerPeriod uses the μ recorded with the run, so scenarios loaded from
// files or renamed in a batch are analyzed against their own central body.
func keplerPeriod(meta *storage.RunMetadata, x0 []float64) (float64, error) {
	if meta.CentralMu <= 0 {
		return 0, errNoCentralBody
	}
	return analysis.KeplerPeriod(x0, meta.CentralMu)
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(w, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(w, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	axes := map[string][2]int{"xy": {0, 1}, "xz": {0, 2}, "yz": {1, 2}}
	ax, ok := axes[plane]
	if !ok {
		return fmt.Errorf("unknown plane %q (want xy, xz or yz)", plane)
	}

	states, _, err := storage.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}

	opts := export.DefaultSVGOptions()
	opts.BodyRadius = bodyRadius

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := export.TrajectorySVG(w, column(states, ax[0]), column(states, ax[1]), opts); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}
