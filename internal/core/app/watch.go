package app

import (
	"context"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/core/watcher"
)

// Watch analyses the project, then re-analyses the whole batch whenever a source file
// changes, until ctx is cancelled. Failed re-runs are logged and watching continues.
func (a *App) Watch(ctx context.Context) error {
	if _, err := a.Analyse(ctx, ports.AnalyseRequest{}); err != nil {
		return err
	}

	cfg := a.currentConfig()
	w, err := watcher.New(watcher.Options{
		Root:        cfg.Root,
		Extensions:  cfg.Extensions,
		Exclude:     cfg.Exclude,
		Debounce:    cfg.Watch.Debounce,
		MinInterval: cfg.Watch.MinInterval,
		Burst:       cfg.Watch.Burst,
		Logger:      a.logger,
	}, func(paths []string) { a.HandleChanges(ctx, paths) })
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(ctx, cfg.AnalysedPaths()); err != nil {
		return err
	}
	a.logger.Info("watching for changes", "paths", cfg.Paths, "debounce", cfg.Watch.Debounce)
	<-ctx.Done()
	return nil
}

// HandleChanges re-runs the analysis after paths changed.
func (a *App) HandleChanges(ctx context.Context, paths []string) {
	if ctx.Err() != nil {
		return
	}
	a.logger.Info("detected changes", "count", len(paths))
	if _, err := a.Analyse(ctx, ports.AnalyseRequest{}); err != nil {
		a.logger.Error("re-run failed", "error", err)
	}
}

// Reload swaps in a new configuration for subsequent runs. The watched paths and
// filters of a running Watch are kept.
func (a *App) Reload(cfg *config.Config) error {
	if cfg == nil {
		return errors.New(errors.CodeValidationError, "config is required")
	}
	if cfg.Level < 0 || cfg.Level > config.MaxLevel {
		return errors.AddContext(errors.Newf(errors.CodeValidationError, "level %d out of range", cfg.Level), errors.CtxLevel, cfg.Level)
	}
	ignores, err := compileIgnores(cfg.Ignore)
	if err != nil {
		return err
	}
	a.runMu.Lock()
	a.Config = cfg
	a.ignores = ignores
	a.runMu.Unlock()
	a.logger.Info("configuration reloaded", "level", cfg.Level, "source", cfg.Source)
	return nil
}

func (a *App) currentConfig() *config.Config {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.Config
}
