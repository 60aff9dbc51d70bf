package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBaselineCommand(global *globalOptions) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Record all current issues in the baseline file",
		Long: `Analyse the whole project and write every issue to the baseline file, so that
later runs only report new issues. Parse errors are never baselined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLogs := configureLogging(global, false)
			defer closeLogs()

			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("level") {
				if cfg.Level, err = parseLevel(level); err != nil {
					return err
				}
			}
			if err := validate(cfg); err != nil {
				return err
			}

			app, err := initializeApp(cfg, global.factory)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			res, entries, err := app.GenerateBaseline(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(global.stdout, "Baseline with %d entries (%d issues) written to %s\n",
				entries, res.Unfiltered.Len(), cfg.BaselinePath())
			return nil
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "", "Rule level 0..10 or max (default: from config)")
	return cmd
}
