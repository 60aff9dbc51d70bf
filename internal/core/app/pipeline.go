package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"strata/internal/core/errors"
	"strata/internal/engine/ast"
	"strata/internal/engine/checks"
	"strata/internal/engine/issue"
	"strata/internal/engine/symbols"
	"strata/internal/shared/observability"
)

// ParseErrorID identifies files that could not be read or contain syntax errors.
const ParseErrorID = "parse.error"

type parsedFile struct {
	file        *ast.File
	issues      []issue.Issue
	collectOnly bool
}

// checkable reports whether the file is analysed and parsed cleanly. Files with syntax
// errors still contribute their declarations to the symbol table.
func (p parsedFile) checkable() bool {
	return !p.collectOnly && p.file != nil && len(p.file.Errors) == 0
}

// run executes the three phases over files and returns every finding in path order.
func (a *App) run(ctx context.Context, files []SourceFile) (*issue.Collection, error) {
	parsed, err := a.parsePhase(ctx, files)
	if err != nil {
		return nil, err
	}
	table, err := a.collectPhase(ctx, parsed)
	if err != nil {
		return nil, err
	}
	perFile, err := a.checkPhase(ctx, parsed, table)
	if err != nil {
		return nil, err
	}

	out := issue.NewCollection()
	for i := range parsed {
		out.Extend(parsed[i].issues)
		out.Extend(perFile[i])
	}
	return out, nil
}

type leaser interface{ Leased() int }

func (a *App) parsePhase(ctx context.Context, files []SourceFile) ([]parsedFile, error) {
	ctx, span := observability.Tracer.Start(ctx, "phase.parse")
	defer span.End()
	span.SetAttributes(attribute.Int("files", len(files)))
	start := time.Now()
	defer func() { observability.PhaseDuration.WithLabelValues("parse").Observe(time.Since(start).Seconds()) }()

	out := make([]parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = a.parseOne(f)
			if l, ok := a.parser.(leaser); ok {
				observability.ParsersLeased.Set(float64(l.Leased()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "parse phase"), errors.CtxOperation, "parse")
	}
	return out, nil
}

func (a *App) parseOne(f SourceFile) parsedFile {
	started := time.Now()
	defer func() { observability.ParseDuration.Observe(time.Since(started).Seconds()) }()

	if f.CollectOnly {
		return a.parseCollectOnly(f)
	}
	content, err := os.ReadFile(f.Path)
	if err != nil {
		a.logger.Warn("failed to read source file", "path", f.Display, "error", err)
		return parsedFile{issues: []issue.Issue{
			issue.Error(ParseErrorID, f.Display, 0, 0, fmt.Sprintf("Could not read file: %v", err)),
		}}
	}
	file, err := a.parser.ParseFile(f.Display, content)
	if err != nil {
		a.logger.Warn("failed to parse source file", "path", f.Display, "error", err)
		return parsedFile{issues: []issue.Issue{
			issue.Error(ParseErrorID, f.Display, 0, 0, fmt.Sprintf("Could not parse file: %v", err)),
		}}
	}
	p := parsedFile{file: file}
	for _, se := range file.Errors {
		p.issues = append(p.issues, issue.Error(ParseErrorID, f.Display, se.Line, se.Column, se.Message).
			WithTip("The file is not checked until its syntax errors are fixed."))
	}
	if len(file.Errors) > 0 {
		a.logger.Debug("syntax errors", "path", f.Display, "count", len(file.Errors))
	}
	return p
}

// parseCollectOnly parses a file for its declarations only. Problems are logged, never
// reported: the file is not part of the analysed code.
func (a *App) parseCollectOnly(f SourceFile) parsedFile {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		a.logger.Debug("skipping unreadable collect-only file", "path", f.Display, "error", err)
		return parsedFile{collectOnly: true}
	}
	file, err := a.parser.ParseFile(f.Display, content)
	if err != nil {
		a.logger.Debug("skipping unparseable collect-only file", "path", f.Display, "error", err)
		return parsedFile{collectOnly: true}
	}
	return parsedFile{file: file, collectOnly: true}
}

// collectPhase gathers declarations in parallel and merges them in path order, so the
// last file wins on duplicates regardless of scheduling.
func (a *App) collectPhase(ctx context.Context, parsed []parsedFile) (*symbols.Table, error) {
	ctx, span := observability.Tracer.Start(ctx, "phase.collect")
	defer span.End()
	start := time.Now()
	defer func() { observability.PhaseDuration.WithLabelValues("collect").Observe(time.Since(start).Seconds()) }()

	collected := make([]*symbols.FileSymbols, len(parsed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())
	for i := range parsed {
		if parsed[i].file == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			collected[i] = symbols.Collect(parsed[i].file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "collect phase"), errors.CtxOperation, "collect")
	}

	table := symbols.NewTableWithBuiltins()
	for _, fs := range collected {
		if fs == nil {
			continue
		}
		if err := table.Merge(fs); err != nil {
			return nil, errors.AddContext(err, errors.CtxPath, fs.Path)
		}
	}
	table.Freeze()

	stats := table.Stats()
	observability.SymbolsCollected.WithLabelValues("class").Set(float64(stats.Classes))
	observability.SymbolsCollected.WithLabelValues("function").Set(float64(stats.Functions))
	observability.SymbolsCollected.WithLabelValues("constant").Set(float64(stats.Constants))
	span.SetAttributes(
		attribute.Int("classes", stats.Classes),
		attribute.Int("functions", stats.Functions),
		attribute.Int("constants", stats.Constants),
	)
	return table, nil
}

func (a *App) checkPhase(ctx context.Context, parsed []parsedFile, table *symbols.Table) ([][]issue.Issue, error) {
	ctx, span := observability.Tracer.Start(ctx, "phase.check")
	defer span.End()
	span.SetAttributes(attribute.Int("level", a.Config.Level))
	start := time.Now()
	defer func() { observability.PhaseDuration.WithLabelValues("check").Observe(time.Since(start).Seconds()) }()

	cctx := checks.NewContext(table, a.Config.Level, a.checkOptions())
	out := make([][]issue.Issue, len(parsed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())
	for i := range parsed {
		if !parsed[i].checkable() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = a.registry.Run(parsed[i].file, cctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "check phase"), errors.CtxOperation, "check")
	}
	return out, nil
}
