package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/san-kum/m1oa/internal/config"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	ticks      int
	scenario   string
	record     int
	segments   int
	telemetry  bool
	broker     string
	axisName   string
	frameRate  int
	perFrame   int
	outFile    string
	fromFile   string
	metricName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "m1oa",
		Short:         "segment outer-actuator force control cell",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".m1oa", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(
		runCommand(),
		listCommand(),
		plotCommand(),
		exportJSONCommand(),
		analyzeCommand(),
		matrixCommand(),
		benchCommand(),
		liveCommand(),
		presetsCommand(),
		snapshotCommand(),
		bodeCommand(),
		tuneCommand(),
		sweepCommand(),
		batchCommand(),
		monteCarloCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05",
		}),
	))
	return nil
}

// loadConfig starts from the preset (or the defaults), lets the config file
// replace it, then applies the command-line overrides that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Lookup("ticks") != nil && flags.Changed("ticks") {
		cfg.Run.Ticks = ticks
	}
	if flags.Lookup("scenario") != nil && flags.Changed("scenario") {
		cfg.Run.Scenario = scenario
	}
	if flags.Lookup("record") != nil && flags.Changed("record") {
		cfg.Run.Record = record
	}
	if flags.Lookup("segments") != nil && flags.Changed("segments") {
		cfg.Run.Segments = segments
	}
	if flags.Lookup("telemetry") != nil && flags.Changed("telemetry") {
		cfg.Telemetry.Enabled = telemetry
	}
	if flags.Lookup("broker") != nil && flags.Changed("broker") {
		cfg.Telemetry.Broker = broker
	}

	return cfg, cfg.Validate()
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&ticks, "ticks", config.DefaultTicks, "number of control ticks")
	cmd.Flags().StringVar(&scenario, "scenario", config.DefaultScenario, "input scenario, e.g. step:fx=1,at=50")
	cmd.Flags().IntVar(&record, "record", 1, "keep every n-th tick in the trace (0 keeps none)")
}
