package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	debug      bool
	configFile string
	dt         float64
	duration   float64
	integrator string
	workers    int
	evalTime   float64
	plotSTM    bool
	outFile    string
	plane      string
	bodyRadius float64
	live       bool
	frameRate  int
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orbitekf",
		Short: "orbit propagation with state transition matrix",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".orbitekf", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging and derivative diagnostics")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "propagate a preset or --config scenario and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show the propagation in a live terminal view")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "live view frame rate")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scenario...]",
		Short: "propagate several presets concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "concurrent propagations (0 = unlimited)")
	ensembleCmd.Flags().Float64Var(&duration, "time", 0, "override duration in seconds")

	compareCmd := &cobra.Command{
		Use:   "compare [scenario] [integrator...]",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().Float64Var(&dt, "dt", 0, "override timestep in seconds")
	compareCmd.Flags().Float64Var(&duration, "time", 0, "override duration in seconds")

	deriveCmd := &cobra.Command{
		Use:   "derive [scenario]",
		Short: "evaluate the state derivative once at the initial state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  deriveOnce,
	}
	deriveCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	deriveCmd.Flags().Float64Var(&evalTime, "t", 0, "evaluation time")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot position, radius and optionally the STM diagonal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&plotSTM, "stm", false, "also plot the STM diagonal")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectral period of X(t) against the Kepler period",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		RunE:  listPresets,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the run's state table to stdout or --out",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write the run as JSON to stdout or --out",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the orbit projected on a plane as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file")
	exportSVGCmd.Flags().StringVar(&plane, "plane", "xy", "projection plane: xy, xz or yz")
	exportSVGCmd.Flags().Float64Var(&bodyRadius, "body-radius", 6378.137, "central body radius, 0 to omit")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a YAML batch of scenarios and store every run",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "grid-sweep stepping parameters and rank runs by a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), overrides the preset")
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", []string{"dt=5,10,30,60"}, "parameter grid as name=v1,v2 (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "energy_drift", "metric to minimise")

	rootCmd.AddCommand(runCmd, ensembleCmd, batchCmd, sweepCmd, compareCmd, deriveCmd, listCmd, plotCmd, analyzeCmd, presetsCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), overrides the preset")
	cmd.Flags().Float64Var(&dt, "dt", 0, "override timestep in seconds")
	cmd.Flags().Float64Var(&duration, "time", 0, "override duration in seconds")
	cmd.Flags().StringVar(&integrator, "integrator", "", "override integrator")
}

func heading(s string) {
	fmt.Println(titleStyle.Render(s))
}

func field(name string, format string, args ...any) {
	fmt.Printf("  %s %s\n", labelStyle.Render(name+":"), valueStyle.Render(fmt.Sprintf(format, args...)))
}
