package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"strata/internal/data/history"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

// RenderHistoryTSV lists runs newest first, one per line.
func RenderHistoryTSV(runs []history.Run) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("RunID\tStartedAt\tLevel\tFiles\tErrors\tWarnings\tIgnored\tBaselined\tDurationMs\tDeltaErrors\tDeltaWarnings\n")
	for i, run := range runs {
		var d history.Delta
		if i+1 < len(runs) {
			d = history.Compare(runs[i+1], run)
		}
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Level,
			run.Files,
			run.Errors,
			run.Warnings,
			run.Ignored,
			run.Baselined,
			run.Duration.Milliseconds(),
			d.Errors,
			d.Warnings,
		))
	}

	return []byte(buf.String()), nil
}

type historyEntry struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMs int64          `json:"duration_ms"`
	Level      int            `json:"level"`
	Files      int            `json:"files"`
	Errors     int            `json:"errors"`
	Warnings   int            `json:"warnings"`
	Ignored    int            `json:"ignored"`
	Baselined  int            `json:"baselined"`
	Counts     map[string]int `json:"counts"`
	Changed    map[string]int `json:"changed,omitempty"`
}

func RenderHistoryJSON(runs []history.Run) ([]byte, error) {
	out := make([]historyEntry, 0, len(runs))
	for i, run := range runs {
		e := historyEntry{
			RunID:      run.ID,
			StartedAt:  run.StartedAt.UTC(),
			DurationMs: run.Duration.Milliseconds(),
			Level:      run.Level,
			Files:      run.Files,
			Errors:     run.Errors,
			Warnings:   run.Warnings,
			Ignored:    run.Ignored,
			Baselined:  run.Baselined,
			Counts:     run.Counts,
		}
		if e.Counts == nil {
			e.Counts = map[string]int{}
		}
		if i+1 < len(runs) {
			if d := history.Compare(runs[i+1], run); len(d.Changed) > 0 {
				e.Changed = d.Changed
			}
		}
		out = append(out, e)
	}
	return json.MarshalIndent(out, "", "  ")
}

// RenderHistoryText shows runs newest first with the change against the previous run
// and the identifiers that moved most.
func RenderHistoryText(runs []history.Run) string {
	if len(runs) == 0 {
		return "No runs recorded yet.\n"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %-5s %6s %7s %8s  %s", "started", "level", "files", "errors", "warnings", "change")))
	b.WriteString("\n")
	for i, run := range runs {
		change := ""
		if i+1 < len(runs) {
			d := history.Compare(runs[i+1], run)
			change = renderDelta(d)
		}
		fmt.Fprintf(&b, "%-20s %-5d %6d %7d %8d  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Level, run.Files, run.Errors, run.Warnings, change)
	}
	return b.String()
}

func renderDelta(d history.Delta) string {
	parts := []string{signed(d.Errors, "errors"), signed(d.Warnings, "warnings")}
	if movers := d.Movers(); len(movers) > 0 {
		if len(movers) > 3 {
			movers = movers[:3]
		}
		parts = append(parts, strings.Join(movers, ", "))
	}
	return strings.Join(parts, " ")
}

func signed(n int, what string) string {
	switch {
	case n > 0:
		return upStyle.Render(fmt.Sprintf("+%d %s", n, what))
	case n < 0:
		return downStyle.Render(fmt.Sprintf("%d %s", n, what))
	}
	return fmt.Sprintf("±0 %s", what)
}
