// Package ports declares the collaborators the analysis pipeline is driven through,
// so that tests and alternative front ends can substitute them.
package ports

import (
	"context"
	"time"

	"strata/internal/data/history"
	"strata/internal/engine/ast"
)

// SourceParser turns file content into a syntax tree. Syntax errors are recorded on the
// returned file; an error return means nothing could be parsed.
type SourceParser interface {
	ParseFile(path string, content []byte) (*ast.File, error)
}

// HistoryStore persists run summaries for trend reporting.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) error
	Recent(ctx context.Context, project string, limit int) ([]history.Run, error)
	Trend(ctx context.Context, project, identifier string, since time.Time) ([]history.TrendPoint, error)
	Prune(ctx context.Context, project string, keep int) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// AnalyseRequest narrows a run. Empty Paths analyses the configured paths.
type AnalyseRequest struct {
	Paths []string
	// NoBaseline reports issues the baseline would otherwise suppress.
	NoBaseline bool
}
