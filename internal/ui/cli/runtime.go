package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/shared/observability"
)

// loadConfig reads the configuration named by --config, or the nearest strata.toml,
// and applies STRATA_* environment overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("detect working directory: %w", err)
	}
	cfg, err := config.LoadOrDefault(opts.configPath, cwd)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, nil
}

// validate re-checks cfg after flag and environment overrides.
func validate(cfg *config.Config) error {
	if errs := config.Validate(cfg); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// parseLevel accepts 0..10 or "max".
func parseLevel(raw string) (int, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "max" {
		return config.MaxLevel, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > config.MaxLevel {
		return 0, errors.AddContext(
			errors.Newf(errors.CodeValidationError, "level must be 0..%d or max, got %q", config.MaxLevel, raw),
			errors.CtxKey, "level")
	}
	return n, nil
}

// absPaths resolves command line paths against the working directory.
func absPaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

func configureLogging(opts *globalOptions, uiMode bool) func() {
	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}

	var output io.Writer = opts.stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(opts.stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(opts.stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(opts.stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(output, handlerOpts)
	if strings.EqualFold(opts.logFormat, "json") {
		handler = slog.NewJSONHandler(output, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "strata", "strata.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "strata", "strata.log")
	}

	return "strata.log"
}

// setupTracing starts the OTLP exporter when an endpoint is configured. The returned
// function flushes it.
func setupTracing(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		slog.Warn("tracing disabled", "endpoint", cfg.Observability.OTLPEndpoint, "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}
