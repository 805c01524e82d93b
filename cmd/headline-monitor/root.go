package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"headline-monitor/monitor"
)

var version = "dev"

var (
	configPath string
	stateDir   string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "headline-monitor",
	Short: "Watch a live-news page and notify on genuinely new headlines",
	Long: `headline-monitor polls a live-news page, drops headlines it has seen
before, and sends the rest to Telegram. State survives restarts: headlines
published while the monitor was down are still delivered, nothing is
delivered twice.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML or TOML config file")
	pf.StringVar(&stateDir, "state-dir", "", "directory holding the state databases (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json (overrides config)")
}

// loadConfig layers defaults, the config file, the environment and finally
// flags the user actually set.
func loadConfig(cmd *cobra.Command) (*monitor.Config, error) {
	cfg, err := monitor.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("state-dir") {
		cfg.State.Dir = stateDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *monitor.Config) (zerolog.Logger, error) {
	return monitor.NewLogger(cfg.Log, cmd.ErrOrStderr())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
