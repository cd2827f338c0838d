package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	_ "esghandlers/pkg/cmip6"
	"esghandlers/pkg/config"
	_ "esghandlers/pkg/geomip"
	"esghandlers/pkg/handler"
	"esghandlers/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	verbose    bool
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "esghandlers",
		Short: "ESGF publisher project handlers",
		Long: `Validate climate data files and extract their dataset context with the
project handlers of the ESGF publisher (CMIP6, GeoMIP).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "esg.ini path (default $ESGINI or $ESGINI_DIR/esg.ini)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		validateCmd(),
		contextCmd(),
		pidConfigCmd(),
		pidPrefixCmd(),
		citationURLCmd(),
		handlersCmd(),
		serveCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			v := version
			if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
				v = info.Main.Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "esghandlers %s\n", v)
		},
	}
}

func handlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List the registered project handlers",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range handler.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}

// loadConfig reads the --config file, or the default esg.ini when present.
// A missing default file is not an error: handlers then run on defaults.
func loadConfig(logger *zap.Logger) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.GetConfigPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			logger.Debug("No esg.ini found, using defaults", zap.String("path", path))
			return nil, nil
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// handlerOptions builds the options shared by every command. cfg may be nil.
func handlerOptions(cfg *config.Config, rt *config.RuntimeConfig, logger *zap.Logger, m *metrics.Metrics) handler.Options {
	opts := handler.Options{
		Logger:           logger,
		Metrics:          m,
		Offline:          rt.Offline,
		ValidatorCommand: rt.ValidatorCommand,
	}
	if cfg != nil {
		opts.Config = cfg
	}
	return opts
}
