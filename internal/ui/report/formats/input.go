// Package formats renders analysis results. Writers present issues exactly as the
// engine reported them and never re-derive severities.
package formats

import (
	"time"

	"strata/internal/engine/issue"
)

// Input is everything a writer may show about one run.
type Input struct {
	RunID     string
	Level     int
	Files     int
	Duration  time.Duration
	Ignored   int
	Baselined int
	Issues    *issue.Collection
	// Rules maps identifiers to descriptions for formats that list rules.
	Rules map[string]string
}

func (in Input) items() []issue.Issue {
	if in.Issues == nil {
		return nil
	}
	return in.Issues.Items()
}

// fileOrder returns the files with issues in the order they first appear, and the
// issues that name no file.
func fileOrder(items []issue.Issue) (files []string, general []issue.Issue) {
	seen := make(map[string]bool)
	for _, it := range items {
		if it.File == "" {
			general = append(general, it)
			continue
		}
		if !seen[it.File] {
			seen[it.File] = true
			files = append(files, it.File)
		}
	}
	return files, general
}
