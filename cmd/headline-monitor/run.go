package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	runDashboardAddr  string
	runNoDashboard    bool
	runExcludeResults bool
	runDryRun         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor loop and the dashboard until interrupted",
	RunE:  runMonitor,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runDashboardAddr, "dashboard-addr", "", "dashboard listen address (overrides config)")
	f.BoolVar(&runNoDashboard, "no-dashboard", false, "do not serve the dashboard")
	f.BoolVar(&runExcludeResults, "exclude-results", false, "archive results headlines without sending them")
	f.BoolVar(&runDryRun, "dry-run", false, "log headlines instead of sending them")
	rootCmd.AddCommand(runCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dashboard-addr") {
		cfg.Dashboard.Addr = runDashboardAddr
	}
	if cmd.Flags().Changed("exclude-results") {
		cfg.Filters.ExcludeResults = runExcludeResults
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger, runDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info().
		Str("source", cfg.Source.URL).
		Dur("interval", cfg.Schedule.Interval.Std()).
		Bool("exclude_results", cfg.Filters.ExcludeResults).
		Str("state_dir", cfg.State.Dir).
		Msg("headline monitor starting")

	dashErr := make(chan error, 1)
	if !runNoDashboard && cfg.Dashboard.Addr != "" {
		d, err := a.dashboard()
		if err != nil {
			return err
		}
		go func() { dashErr <- d.Serve(ctx, cfg.Dashboard.Addr) }()
	} else {
		close(dashErr)
	}

	runErr := a.runner.Run(ctx)
	stop()
	if err := <-dashErr; err != nil {
		logger.Error().Err(err).Msg("dashboard stopped")
	}
	return runErr
}
