package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"headline-monitor/monitor"
)

var (
	queryLimit int
	queryJSON  bool
)

var headlinesCmd = &cobra.Command{
	Use:   "headlines",
	Short: "Print the most recent archived headlines, newest first",
	RunE:  runHeadlines,
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Print the most recent journaled failures, newest first",
	RunE:  runErrors,
}

func init() {
	for _, c := range []*cobra.Command{headlinesCmd, errorsCmd} {
		c.Flags().IntVarP(&queryLimit, "limit", "n", 20, "maximum number of entries")
		c.Flags().BoolVar(&queryJSON, "json", false, "print JSON instead of a table")
		rootCmd.AddCommand(c)
	}
}

func runHeadlines(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	items, err := monitor.ReadArchive(commandContext(cmd), cfg.State.Dir, queryLimit, loc)
	if err != nil {
		return err
	}
	if queryJSON {
		return printJSON(cmd.OutOrStdout(), items)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OCCURRED\tCATEGORY\tHEADLINE")
	for _, h := range items {
		when := h.OccurredAt.Format("2006-01-02 15:04")
		if h.TimestampDegraded {
			when += "?"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", when, dash(h.Category), h.RawText)
	}
	return w.Flush()
}

func runErrors(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	items, err := monitor.ReadJournal(commandContext(cmd), cfg.State.Dir, queryLimit, loc)
	if err != nil {
		return err
	}
	if queryJSON {
		return printJSON(cmd.OutOrStdout(), items)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tCATEGORY\tMESSAGE\tDETAIL")
	for _, e := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.OccurredAt.Format("2006-01-02 15:04:05"), e.Category, e.Message, dash(e.Detail))
	}
	return w.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
