package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/san-kum/dilasim/internal/cloud"
	"github.com/san-kum/dilasim/internal/compute"
	"github.com/san-kum/dilasim/internal/config"
	"github.com/san-kum/dilasim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string

	particles     int
	cloudKind     string
	steps         int
	dt            float64
	samples       int
	seed          uint32
	workers       int
	mode          string
	sensitivity   float64
	sensitivities []float64
	backendName   string
	repeats       int
	maxRMSE       float64
	stepsPerFrame int

	label        string
	compare      bool
	historySens  float64
	historyLimit int
)

// main registers the dilasim commands and exits with status 1 if the chosen
// command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "dilasim",
		Short:         "time-dilated n-body simulation and benchmark",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dilasim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&mode, "mode", "adaptive", "integration mode (plain, adaptive)")
	runCmd.Flags().Float64Var(&sensitivity, "sensitivity", 10, "tension below which a particle sleeps")
	runCmd.Flags().BoolVar(&compare, "compare", false, "also run the plain baseline and report rmse")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "sweep sensitivities against the plain baseline",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	addRunFlags(benchCmd)
	benchCmd.Flags().Float64SliceVar(&sensitivities, "sensitivities", nil, "sensitivities to sweep")
	benchCmd.Flags().IntVar(&repeats, "repeats", 1, "time each configuration n times, keep the fastest")
	benchCmd.Flags().Float64Var(&maxRMSE, "max-rmse", 1.0, "error budget for the best-row summary")
	benchCmd.Flags().StringVar(&label, "label", "sweep", "label for the saved sweep")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run a simulation live in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	addRunFlags(watchCmd)
	watchCmd.Flags().StringVar(&mode, "mode", "adaptive", "integration mode (plain, adaptive)")
	watchCmd.Flags().Float64Var(&sensitivity, "sensitivity", 10, "tension below which a particle sleeps")
	watchCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", config.DefaultStepsPerFrame, "steps per rendered frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved sweeps",
		Args:  cobra.NoArgs,
		RunE:  listSweeps,
	}

	showCmd := &cobra.Command{
		Use:   "show [sweep_id]",
		Short: "print a saved sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  showSweep,
	}
	showCmd.Flags().Float64Var(&maxRMSE, "max-rmse", 1.0, "error budget for the best-row summary")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "query the sweep ledger",
		Args:  cobra.NoArgs,
		RunE:  showHistory,
	}
	historyCmd.Flags().Float64Var(&historySens, "sensitivity", -1, "show every recorded row at this sensitivity")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of sweeps to list")
	historyCmd.Flags().Float64Var(&maxRMSE, "max-rmse", 1.0, "error budget for the best recorded row")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the resolved configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	addRunFlags(initCmd)

	rootCmd.AddCommand(runCmd, benchCmd, watchCmd, listCmd, showCmd, historyCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "particle count")
	cmd.Flags().StringVar(&cloudKind, "cloud", "sphere", fmt.Sprintf("initial cloud %v", cloud.Kinds()))
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "neighbour samples per particle per step")
	cmd.Flags().Uint32Var(&seed, "seed", config.DefaultSeed, "sampling seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = one per cpu)")
	cmd.Flags().StringVar(&backendName, "backend", config.DefaultBackend, fmt.Sprintf("compute backend %v", compute.ListBackends()))
}

// resolveConfig layers defaults, then the preset, then the config file, then
// any flags the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		var err error
		cfg, err = config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("particles") {
		cfg.Cloud.Particles = particles
	}
	if flags.Changed("cloud") {
		cfg.Cloud.Kind = cloudKind
	}
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if flags.Changed("samples") {
		cfg.Run.Samples = samples
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = workers
	}
	if flags.Changed("backend") {
		cfg.Run.Backend = backendName
	}
	if flags.Changed("mode") {
		cfg.Run.Mode = mode
	}
	if flags.Changed("sensitivity") {
		cfg.Run.Sensitivity = sensitivity
	}
	if flags.Changed("sensitivities") {
		cfg.Sweep.Sensitivities = sensitivities
	}
	if flags.Changed("repeats") {
		cfg.Sweep.Repeats = repeats
	}
	if flags.Changed("max-rmse") {
		cfg.Sweep.MaxRMSE = maxRMSE
	}
	if flags.Changed("steps-per-frame") {
		cfg.StepsPerFrame = stepsPerFrame
	}
	if cmd.Root().PersistentFlags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	return logging.ForFile(level, os.Stderr)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func sweepDir() string  { return filepath.Join(dataDir, "sweeps") }
func ledgerPath() string { return filepath.Join(dataDir, "ledger.db") }
