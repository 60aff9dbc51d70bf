package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strata/internal/core/errors"
	"strata/internal/data/history"
	"strata/internal/ui/report"
)

func newHistoryCommand(global *globalOptions) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the history database",
		Long: `Show recent analysis runs, newest first, with the change in errors and
warnings against the previous run. Runs are recorded when [history] enabled = true
in strata.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLogs := configureLogging(global, false)
			defer closeLogs()

			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New(errors.CodeValidationError, "run history is disabled; set [history] enabled = true in strata.toml")
			}
			store, err := history.Open(cfg.HistoryPath(), cfg.History.BusyTimeout)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), cfg.Root, limit)
			if err != nil {
				return err
			}
			return writeHistory(global, format, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, tsv)")
	return cmd
}

func writeHistory(global *globalOptions, format string, runs []history.Run) error {
	switch strings.ToLower(format) {
	case "", "text":
		fmt.Fprint(global.stdout, report.RenderHistoryText(runs))
		return nil
	case "json":
		data, err := report.RenderHistoryJSON(runs)
		if err != nil {
			return err
		}
		fmt.Fprintln(global.stdout, string(data))
		return nil
	case "tsv":
		data, err := report.RenderHistoryTSV(runs)
		if err != nil {
			return err
		}
		_, err = global.stdout.Write(data)
		return err
	}
	return errors.Newf(errors.CodeValidationError, "unknown history format %q (want text, json or tsv)", format)
}
