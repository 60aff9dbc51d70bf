package cli

import (
	"fmt"
	"strings"

	"strata/internal/data/history"
)

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | enter details | esc back | j/k issue cursor | o open source | t history | q quit"
	if m.mode == panelIssues {
		keys = "Keys: tab panel | / filter | enter/o open source | t history | q quit"
	}
	return statusStyle.Render(keys)
}

func renderFilePanel(m model) string {
	summary := m.fileList.View()
	details := renderFileSummary(m)
	if m.hasFileDetails {
		details = renderFileDetails(m)
	}
	return summary + "\n\n" + details
}

func renderFileSummary(m model) string {
	selected, ok := m.fileList.SelectedItem().(fileItem)
	if !ok {
		return statusStyle.Render("No files with issues.")
	}
	return strings.Join([]string{
		"Selected File",
		fmt.Sprintf("  Path: %s", selected.summary.path),
		fmt.Sprintf("  Errors: %d", selected.summary.errors),
		fmt.Sprintf("  Warnings: %d", selected.summary.warnings),
		"  Press enter to list its issues.",
	}, "\n")
}

func renderFileDetails(m model) string {
	issues := m.fileIssues(m.detailFile)
	lines := []string{fmt.Sprintf("File Detail: %s (%d issues)", m.detailFile, len(issues))}
	for i, iss := range issues {
		prefix := "   "
		if i == m.selectedIssueIndex {
			prefix = " ->"
		}
		lines = append(lines, fmt.Sprintf("%s %4d  %s  %s", prefix, iss.Line, iss.ID, iss.Message))
	}
	if len(issues) == 0 {
		lines = append(lines, "   none")
	}
	lines = append(lines, "  Press esc to exit details, o to jump to the highlighted issue.")
	return strings.Join(lines, "\n")
}

func renderTrendOverlay(runs []history.Run) string {
	if len(runs) < 2 {
		return statusStyle.Render("History unavailable (enable [history] in strata.toml to record runs).")
	}
	last, prev := runs[0], runs[1]
	d := history.Compare(prev, last)
	lines := []string{
		"History",
		fmt.Sprintf("  Runs shown: %d | Last: %s", len(runs), last.StartedAt.Local().Format("15:04:05")),
		fmt.Sprintf("  Errors: %d (%+d) | Warnings: %d (%+d)", last.Errors, d.Errors, last.Warnings, d.Warnings),
	}
	movers := d.Movers()
	if len(movers) > 5 {
		movers = movers[:5]
	}
	for _, id := range movers {
		lines = append(lines, fmt.Sprintf("  %+4d %s", d.Changed[id], id))
	}
	return strings.Join(lines, "\n")
}
