// Package app runs whole-project analyses: it discovers PHP files, parses them, builds
// the symbol table, runs the checks enabled at the configured level, and filters the
// findings through ignore rules and the baseline.
package app

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/data/history"
	"strata/internal/engine/checks"
	"strata/internal/engine/issue"
	"strata/internal/engine/parser"
	"strata/internal/shared/observability"
)

// Result is the outcome of one run. Issues are sorted by file, line and column and no
// longer contain ignored or baselined findings.
type Result struct {
	RunID     string
	Level     int
	Files     int
	// Scanned counts collect-only files whose declarations were used but not checked.
	Scanned   int
	Issues    *issue.Collection
	Duration  time.Duration
	Baselined int
	Ignored   int
	StartedAt time.Time
	// Unfiltered holds the findings before the baseline was applied, for baseline
	// generation.
	Unfiltered *issue.Collection
}

// Dependencies are the collaborators of an App. Nil fields get production defaults,
// except History, which stays disabled.
type Dependencies struct {
	Parser   ports.SourceParser
	Registry *checks.Registry
	History  ports.HistoryStore
	Logger   *slog.Logger
}

type App struct {
	Config   *config.Config
	parser   ports.SourceParser
	registry *checks.Registry
	history  ports.HistoryStore
	logger   *slog.Logger
	ignores  *ignoreSet

	// runMu serializes runs and configuration reloads.
	runMu sync.Mutex

	mu         sync.RWMutex
	lastResult *Result
	onResult   func(*Result)
}

// New builds an App from cfg, opening the history store when it is enabled.
func New(cfg *config.Config) (*App, error) {
	deps := Dependencies{}
	if cfg != nil && cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath(), cfg.History.BusyTimeout)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxOperation, "open_history")
		}
		deps.History = store
	}
	return NewWithDependencies(cfg, deps)
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if cfg.Level < 0 || cfg.Level > config.MaxLevel {
		return nil, errors.AddContext(errors.Newf(errors.CodeValidationError, "level %d out of range", cfg.Level), errors.CtxLevel, cfg.Level)
	}
	ignores, err := compileIgnores(cfg.Ignore)
	if err != nil {
		return nil, err
	}
	if deps.Parser == nil {
		deps.Parser = parser.New()
	}
	if deps.Registry == nil {
		deps.Registry = checks.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &App{
		Config:   cfg,
		parser:   deps.Parser,
		registry: deps.Registry,
		history:  deps.History,
		logger:   deps.Logger,
		ignores:  ignores,
	}, nil
}

// Registry is the check registry runs are executed with.
func (a *App) Registry() *checks.Registry { return a.registry }

// History is the run history store, nil when history is disabled.
func (a *App) History() ports.HistoryStore { return a.history }

// SetResultHandler registers a callback invoked after every completed run.
func (a *App) SetResultHandler(handler func(*Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onResult = handler
}

// LastResult is the most recent completed run, nil before the first.
func (a *App) LastResult() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResult
}

func (a *App) workers() int {
	if a.Config.Parallel > 0 {
		return a.Config.Parallel
	}
	return runtime.NumCPU()
}

func (a *App) checkOptions() checks.Options {
	o := a.Config.Options
	return checks.Options{
		ReportMaybes:              o.ReportMaybes,
		CheckNullables:            o.CheckNullables,
		CheckExplicitMixed:        o.CheckExplicitMixed,
		CheckImplicitMixed:        o.CheckImplicitMixed,
		CheckUnionTypes:           o.CheckUnionTypes,
		TreatPhpDocTypesAsCertain: o.TreatPhpDocTypesAsCertain,
		CheckMissingTypehints:     o.CheckMissingTypehints,
		StrictTypesDefault:        o.StrictTypesDefault,
	}
}

// Analyse runs the whole pipeline once.
func (a *App) Analyse(ctx context.Context, req ports.AnalyseRequest) (*Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	ctx, span := observability.Tracer.Start(ctx, "app.Analyse")
	defer span.End()

	started := time.Now()
	res := &Result{RunID: uuid.NewString(), Level: a.Config.Level, StartedAt: started}
	logger := a.logger.With("run_id", res.RunID)

	fullRun := len(req.Paths) == 0
	roots := req.Paths
	if fullRun {
		roots = a.Config.AnalysedPaths()
	}
	files, err := Discover(a.Config.Root, roots, a.Config.Exclude, a.Config.Extensions)
	if err != nil {
		observability.RunsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return nil, errors.AddContext(err, errors.CtxOperation, "discover")
	}
	scanned, err := CollectOnlySources(a.Config, files, !fullRun)
	if err != nil {
		observability.RunsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return nil, errors.AddContext(err, errors.CtxOperation, "discover")
	}
	logger.Debug("discovered files", "count", len(files), "collect_only", len(scanned))

	found, err := a.run(ctx, append(files, scanned...))
	if err != nil {
		observability.RunsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return nil, err
	}
	res.Files = len(files)
	res.Scanned = len(scanned)

	res.Ignored = a.ignores.apply(found)
	if fullRun && a.Config.ReportUnmatchedIgnoredErrors {
		found.Extend(a.ignores.unmatched(a.configDisplayPath()))
	}
	found.Sort()
	res.Unfiltered = issue.NewCollection(found.Items()...)

	if !req.NoBaseline {
		bl, err := LoadBaseline(a.Config.BaselinePath())
		switch {
		case err == nil:
			res.Baselined = bl.Apply(found)
		case errors.IsCode(err, errors.CodeNotFound):
		default:
			observability.RunsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
	}

	res.Issues = found
	res.Duration = time.Since(started)
	a.observe(res)
	a.recordHistory(ctx, res)

	logger.Info("analysis complete",
		"files", res.Files,
		"errors", found.ErrorCount(),
		"warnings", found.WarningCount(),
		"ignored", res.Ignored,
		"baselined", res.Baselined,
		"duration", res.Duration)

	a.mu.Lock()
	a.lastResult = res
	handler := a.onResult
	a.mu.Unlock()
	if handler != nil {
		handler(res)
	}
	return res, nil
}

func (a *App) observe(res *Result) {
	outcome := "clean"
	if res.Issues.HasErrors() {
		outcome = "errors"
	}
	observability.RunsTotal.WithLabelValues(outcome).Inc()
	observability.FilesAnalysed.Add(float64(res.Files))
	observability.LastRunIssues.Set(float64(res.Issues.Len()))
	for _, iss := range res.Issues.Items() {
		observability.IssuesReported.WithLabelValues(iss.ID, iss.Severity.String()).Inc()
	}
}

func (a *App) recordHistory(ctx context.Context, res *Result) {
	if a.history == nil {
		return
	}
	run := history.Run{
		ID:         res.RunID,
		ProjectKey: a.Config.Root,
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
		Level:      res.Level,
		Files:      res.Files,
		Errors:     res.Issues.ErrorCount(),
		Warnings:   res.Issues.WarningCount(),
		Ignored:    res.Ignored,
		Baselined:  res.Baselined,
		Counts:     res.Issues.CountByID(),
	}
	if err := a.history.SaveRun(ctx, run); err != nil {
		observability.HistoryWriteErrors.Inc()
		a.logger.Warn("failed to record run history", "run_id", res.RunID, "error", err)
		return
	}
	if keep := a.Config.History.Retain; keep > 0 {
		if _, err := a.history.Prune(ctx, a.Config.Root, keep); err != nil {
			a.logger.Warn("failed to prune run history", "error", err)
		}
	}
}

// GenerateBaseline runs a full analysis without the existing baseline and writes every
// remaining finding to the baseline file. It returns the number of entries written.
func (a *App) GenerateBaseline(ctx context.Context) (*Result, int, error) {
	res, err := a.Analyse(ctx, ports.AnalyseRequest{NoBaseline: true})
	if err != nil {
		return nil, 0, err
	}
	bl := GenerateBaseline(res.Unfiltered)
	if err := bl.Save(a.Config.BaselinePath()); err != nil {
		return res, 0, err
	}
	a.logger.Info("baseline written", "path", a.Config.BaselinePath(), "entries", len(bl.Entries), "issues", res.Unfiltered.Len())
	return res, len(bl.Entries), nil
}

func (a *App) configDisplayPath() string {
	if a.Config.Source == "" {
		return config.FileName
	}
	return displayPath(a.Config.Root, a.Config.Source)
}

// Close releases the history store.
func (a *App) Close(context.Context) error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}
