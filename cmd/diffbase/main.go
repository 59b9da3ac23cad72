package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/diffbase/internal/command"
	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/export"
	"github.com/san-kum/diffbase/internal/hw"
	"github.com/san-kum/diffbase/internal/manager"
	"github.com/san-kum/diffbase/internal/metrics"
	"github.com/san-kum/diffbase/internal/odom"
	"github.com/san-kum/diffbase/internal/sim"
	"github.com/san-kum/diffbase/internal/storage"
	"github.com/san-kum/diffbase/internal/viz"
)

// firstFrameTimeout bounds the wait for the board's first encoder frame.
const firstFrameTimeout = 5 * time.Second

var (
	dataDir    string
	configFile string
	dt         float64
	duration   float64
	tau        float64
	integrator string
	logLevel   string
	port       string
	baud       int
	dummy      bool
	columns    string
	outFile    string
	format     string
	noSave     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "diffbase",
		Short:        "differential drive base controller",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".diffbase", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scripted simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().Float64Var(&tau, "tau", config.DefaultTimeConstant, "wheel motor time constant")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "drive the simulated base live; without a preset, teleop from the keyboard",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}

	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "run the controller against the wheel board, reading \"<linear> <angular>\" lines from stdin",
		Args:  cobra.NoArgs,
		RunE:  runDrive,
	}
	driveCmd.Flags().StringVar(&port, "port", "", "serial device")
	driveCmd.Flags().IntVar(&baud, "baud", config.DefaultBaud, "serial baud rate")
	driveCmd.Flags().BoolVar(&dummy, "dummy", false, "use dummy joints instead of the board")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&columns, "columns", "linear,issued_linear,desired_linear", "comma separated sample columns")

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a run to a file: trajectory svg, velocity png or html",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&format, "format", "f", "svg", "svg, png or html")
	renderCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <run_id>.<format>)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenarios",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [preset]",
		Short: "print the effective configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printConfig,
	}

	rootCmd.AddCommand(runCmd, liveCmd, driveCmd, listCmd, plotCmd, exportCmd, renderCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the configuration from a preset argument, the config
// file, or the defaults, in that order.
func loadConfig(args []string) (*config.Config, string, error) {
	if len(args) > 0 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset %q (have %s)", args[0], strings.Join(config.ListPresets(), ", "))
		}
		return cfg, args[0], nil
	}
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		return cfg, "custom", nil
	}
	return config.DefaultConfig(), "default", nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := cfg.Level
	if logLevel != "" {
		level = logLevel
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, scenario, err := loadConfig(args)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("tau") {
		cfg.Plant.TimeConstant = tau
	}
	if flags.Changed("integrator") {
		cfg.Plant.Integrator = integrator
	}

	logger := newLogger(cfg.Log)
	s, err := sim.New(cfg, sim.WithLogger(logger))
	if err != nil {
		return err
	}
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := s.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	final := result.Final()
	fmt.Printf("scenario: %s\n", scenario)
	fmt.Printf("steps: %d (%s)\n", result.StepsTaken, elapsed.Round(time.Millisecond))
	fmt.Printf("odometry: x=%.4f y=%.4f theta=%.4f\n", final.Pose.X, final.Pose.Y, final.Pose.Theta)
	fmt.Printf("true:     x=%.4f y=%.4f theta=%.4f\n", final.TruePose.X, final.TruePose.Y, final.TruePose.Theta)
	if len(result.Errors) > 0 {
		fmt.Printf("failed ticks: %d (first: %v)\n", len(result.Errors), result.Errors[0])
	}
	fmt.Println()

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6f\n", name, result.Metrics[name])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(scenario, cfg, result)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, scenario, err := loadConfig(args)
	if err != nil {
		return err
	}
	manual := len(args) == 0
	if manual {
		scenario = "teleop"
	}
	return viz.RunLive(cfg, scenario, manual)
}

func runDrive(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Serial.Port = port
	}
	if cmd.Flags().Changed("baud") {
		cfg.Serial.Baud = baud
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var joints hw.Lookup
	if dummy {
		joints = hw.Set{
			cfg.Base.LeftJoint:  hw.NewDummy(cfg.Base.LeftJoint, logger),
			cfg.Base.RightJoint: hw.NewDummy(cfg.Base.RightJoint, logger),
		}
	} else {
		board, err := hw.OpenBoard(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.ReadTimeout, logger)
		if err != nil {
			return err
		}
		board.Start(ctx)
		logger.Info("waiting for wheel feedback", "port", cfg.Serial.Port)
		if err := board.WaitFirstFrame(ctx, firstFrameTimeout); err != nil {
			return err
		}
		joints = board.Joints(cfg.Base.LeftJoint, cfg.Base.RightJoint)
	}

	mgr := manager.New(joints, nil, manager.Deps{
		Publisher: &odom.LogPublisher{Logger: logger, Every: time.Second},
		Logger:    logger,
	})
	if err := mgr.Load(cfg); err != nil {
		return err
	}
	target := cfg.Controllers[0].Name

	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			lin, ang, err := command.ParseLine(line)
			if err != nil {
				logger.Warn("bad command line", "err", err)
				continue
			}
			if err := mgr.Send(target, lin, ang, time.Now()); err != nil {
				logger.Error("send failed", "err", err)
			}
		}
	}()

	logger.Info("driving", "controller", target, "rate", cfg.Rate, "dummy", dummy)
	if err := mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tINTEG\tTAU\tFAILED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%.3f\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.TimeConstant,
			run.FailedTicks,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(samples))

	names := strings.Split(columns, ",")
	series := make([][]float64, 0, len(names))
	for i, name := range names {
		names[i] = strings.TrimSpace(name)
		data, err := storage.Series(samples, names[i])
		if err != nil {
			return err
		}
		series = append(series, data)
	}

	fmt.Println(viz.PlotSeries(series, names, "vs time", 80, 10))
	fmt.Println()
	fmt.Println("trajectory (line: true, dots: odometry)")
	fmt.Print(viz.Trajectory(samples, 60, 20))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := storage.ExportJSON(out, *meta, samples); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported %d samples to %s\n", len(samples), outFile)
	}
	return nil
}

// renderRun writes the run's trajectory as SVG, or its velocities as a PNG
// figure or an interactive HTML page.
func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	samples, err := storage.New(dataDir).LoadSamples(runID)
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = runID + "." + format
	}
	switch format {
	case "png":
		err = export.VelocityPNG(path, samples)
	case "svg", "html":
		var f *os.File
		f, err = os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if format == "svg" {
			err = export.TrajectorySVG(f, samples, 800, 600)
		} else {
			err = export.VelocityHTML(f, runID, samples)
		}
	default:
		return fmt.Errorf("unknown format %q (have svg, png, html)", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("rendered %s\n", path)
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
