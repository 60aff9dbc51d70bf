package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	coreapp "strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/ui/report"
)

type watchOptions struct {
	ui           bool
	level        string
	reportMaybes bool
	format       string
	metricsAddr  string
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyse the project whenever a source file changes",
		Long: `Analyse the project, then re-run the whole analysis each time a PHP file under
the configured paths changes. Bursts of changes are debounced and re-runs are
rate limited as configured in [watch]. Edits to strata.toml are picked up
without restarting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, global, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.ui, "ui", false, "Browse issues in an interactive terminal UI")
	f.StringVarP(&opts.level, "level", "l", "", "Rule level 0..10 or max (default: from config)")
	f.BoolVar(&opts.reportMaybes, "report-maybes", false, "Report issues that only hold on some paths (level 7 and above)")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format of each run without --ui (text, json, sarif)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address (default: from config)")
	return cmd
}

// applyWatchFlags copies explicitly set flags over cfg. It runs again on every
// configuration reload so flags keep precedence over the file.
func applyWatchFlags(cmd *cobra.Command, opts *watchOptions, cfg *config.Config) error {
	config.ApplyEnvOverrides(cfg)
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
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	return validate(cfg)
}

func runWatch(cmd *cobra.Command, global *globalOptions, opts *watchOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	closeLogs := configureLogging(global, opts.ui)
	defer closeLogs()

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if err := applyWatchFlags(cmd, opts, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush := setupTracing(ctx, cfg)
	defer flush()

	app, err := initializeApp(cfg, global.factory)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	stopServer, err := startObservability(cfg.Observability.MetricsAddr, app)
	if err != nil {
		return fmt.Errorf("start observability server: %w", err)
	}
	defer stopServer()

	if cfg.Source != "" {
		cw := config.NewWatcher(cfg.Source, func(next *config.Config) {
			if err := applyWatchFlags(cmd, opts, next); err != nil {
				slog.Warn("ignoring reloaded config", "error", err)
				return
			}
			if err := app.Reload(next); err != nil {
				slog.Warn("ignoring reloaded config", "error", err)
				return
			}
			go app.HandleChanges(ctx, []string{next.Source})
		}, slog.Default())
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "path", cfg.Source, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	if opts.ui {
		return runUI(ctx, app, cfg.Root)
	}

	app.SetResultHandler(func(res *coreapp.Result) {
		if err := report.Write(global.stdout, format, report.FromResult(res, app.Registry())); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	})
	return app.Watch(ctx)
}
