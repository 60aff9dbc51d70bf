package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	coreapp "strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/core/ports"
	"strata/internal/shared/util"
	"strata/internal/ui/report"
	"strata/internal/ui/report/formats"
)

type analyseOptions struct {
	level            string
	reportMaybes     bool
	format           string
	output           string
	generateBaseline bool
	noBaseline       bool
	parallel         int
}

func newAnalyseCommand(global *globalOptions) *cobra.Command {
	opts := &analyseOptions{}
	cmd := &cobra.Command{
		Use:     "analyse [paths...]",
		Aliases: []string{"analyze"},
		Short:   "Analyse the project or the given paths",
		Long: `Analyse PHP files and report issues enabled at the configured level.

Without arguments the paths from strata.toml are analysed. The exit status is 1
when errors remain after ignore rules and the baseline are applied.

Examples:
  strata analyse
  strata analyse --level max src/Controller
  strata analyse --format sarif --output strata.sarif
  strata analyse --generate-baseline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyse(cmd, global, opts, args)
		},
	}

	addAnalyseFlags(cmd.Flags(), opts)
	return cmd
}

func addAnalyseFlags(f *pflag.FlagSet, opts *analyseOptions) {
	f.StringVarP(&opts.level, "level", "l", "", "Rule level 0..10 or max (default: from config)")
	f.BoolVar(&opts.reportMaybes, "report-maybes", false, "Report issues that only hold on some paths (level 7 and above)")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format (text, json, sarif)")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.BoolVar(&opts.generateBaseline, "generate-baseline", false, "Write all current issues to the baseline file")
	f.BoolVar(&opts.noBaseline, "no-baseline", false, "Report baselined issues too")
	f.IntVarP(&opts.parallel, "parallel", "j", 0, "Number of files processed concurrently (default: from config or CPU count)")
}

// applyAnalyseFlags copies explicitly set flags over cfg.
func applyAnalyseFlags(cmd *cobra.Command, opts *analyseOptions, cfg *config.Config) error {
	if cmd.Flags().Changed("level") {
		level, err := parseLevel(opts.level)
		if err != nil {
			return err
		}
		cfg.Level = level
	}
	if cmd.Flags().Changed("report-maybes") {
		cfg.Options.ReportMaybes = opts.reportMaybes
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = opts.parallel
	}
	return validate(cfg)
}

func runAnalyse(cmd *cobra.Command, global *globalOptions, opts *analyseOptions, args []string) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.generateBaseline && len(args) > 0 {
		return fmt.Errorf("--generate-baseline analyses the whole project and takes no paths")
	}

	closeLogs := configureLogging(global, false)
	defer closeLogs()

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if err := applyAnalyseFlags(cmd, opts, cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	flush := setupTracing(ctx, cfg)
	defer flush()

	app, err := initializeApp(cfg, global.factory)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	var res *coreapp.Result
	if opts.generateBaseline {
		var entries int
		res, entries, err = app.GenerateBaseline(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(global.stderr, "Baseline with %d entries written to %s\n", entries, cfg.BaselinePath())
	} else {
		paths, err := absPaths(args)
		if err != nil {
			return err
		}
		res, err = app.Analyse(ctx, ports.AnalyseRequest{Paths: paths, NoBaseline: opts.noBaseline})
		if err != nil {
			return err
		}
	}

	if err := writeReport(global.stdout, opts.output, format, report.FromResult(res, app.Registry())); err != nil {
		return err
	}
	slog.Debug("report written", "format", format, "output", opts.output)

	if opts.generateBaseline {
		return nil
	}
	if res.Issues.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

func writeReport(stdout io.Writer, output string, format report.Format, in formats.Input) error {
	if output == "" {
		return report.Write(stdout, format, in)
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, format, in); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
