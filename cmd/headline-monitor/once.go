package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var (
	onceDryRun bool
	onceJSON   bool
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single fetch-classify-notify cycle and exit",
	RunE:  runOnce,
}

func init() {
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "log headlines instead of sending them")
	onceCmd.Flags().BoolVar(&onceJSON, "json", false, "print the cycle result as JSON")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	a, err := buildApp(ctx, cfg, logger, onceDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.runner.RunCycle(ctx)
	if err := a.engine.Flush(ctx); err != nil {
		logger.Error().Err(err).Msg("state not fully flushed")
	}

	if onceJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		cmd.Printf("cycle %s: fetched=%d notified=%d notify_failed=%d filtered=%d archive_only=%d discarded=%d\n",
			res.ID, res.Fetched, res.Notified, res.NotifyFailed, res.Filtered, res.ArchiveOnly, res.Discarded)
	}
	return res.Err
}
