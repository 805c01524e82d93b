package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"headline-monitor/monitor"
)

var importFrom string

var importCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import the JSON state files of the previous monitor",
	Long: `Reads headlines_seen.json, headlines_database.json, error_log.json and
last_check_timestamp.json from --from and loads them into the state
databases. Run it once, before the first "run", with the monitor stopped.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", ".", "directory holding the legacy JSON files")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	state, openErrs := monitor.OpenState(ctx, cfg.State, loc)
	defer state.Close()
	if len(openErrs) > 0 {
		return errors.Join(openErrs...)
	}

	rep, err := monitor.ImportLegacy(ctx, importFrom, state.LegacyTargets(), loc, time.Now())
	if err != nil {
		return err
	}
	logger.Info().
		Int("fingerprints", rep.Fingerprints).
		Int("headlines", rep.Headlines).
		Int("errors", rep.Errors).
		Time("checkpoint", rep.Checkpoint).
		Strs("skipped", rep.Skipped).
		Msg("legacy state imported")
	cmd.Printf("imported %d fingerprints, %d headlines, %d errors", rep.Fingerprints, rep.Headlines, rep.Errors)
	if !rep.Checkpoint.IsZero() {
		cmd.Printf(", checkpoint %s", rep.Checkpoint.Format(time.RFC3339))
	}
	if len(rep.Skipped) > 0 {
		cmd.Printf(" (missing: %s)", strings.Join(rep.Skipped, ", "))
	}
	cmd.Println()
	return nil
}
