// Package cli wires the thermal dashboard commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-thermal/internal/config"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

var (
	cfgFile   string
	logLevel  string
	outputFmt string
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "thermal-dash",
	Short: "AIDA64 temperature dashboard",
	Long: `thermal-dash reads AIDA64 CSV sensor logs and serves the latest
temperatures, per-sensor aggregates and threshold statuses over HTTP,
websocket and gRPC. It can also inspect a log file offline or show a
live terminal view.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $MIRADOR_THERMAL_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override logging.level (debug, info, warn, error)")
}

// loadConfig reads the configuration and builds the logger it describes.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON), nil
}
