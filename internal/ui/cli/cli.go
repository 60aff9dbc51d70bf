// Package cli implements the strata command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"strata/internal/shared/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
	logFormat  string
	stdout     io.Writer
	stderr     io.Writer
	factory    appFactory
}

// exitError carries a process exit status without printing anything further.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Run executes the command line and returns the process exit status.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr, coreAppFactory{})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory appFactory) int {
	root := newRootCommand(&globalOptions{stdout: stdout, stderr: stderr, factory: factory})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 2
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "strata",
		Short: "Static analysis for PHP projects",
		Long: `strata checks PHP code for type errors, undefined symbols and other mistakes
without running it. Rules are grouped into levels 0 to 10; each level adds the
checks of the previous ones.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("strata {{.Version}}\n")

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to strata.toml (default: search upwards from the working directory)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newAnalyseCommand(opts),
		newWatchCommand(opts),
		newRulesCommand(opts),
		newHistoryCommand(opts),
		newBaselineCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

func newVersionCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(opts.stdout, "strata %s (%s)\n", version.Version, version.Commit)
			return nil
		},
	}
}
