package formats

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"strata/internal/engine/issue"
)

var (
	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	lineStyle = lipgloss.NewStyle().Width(8).Align(lipgloss.Right)
)

// GenerateText renders issues grouped by file followed by a summary line.
func GenerateText(in Input) string {
	items := in.items()
	files, general := fileOrder(items)
	byFile := make(map[string][]issue.Issue, len(files))
	for _, it := range items {
		byFile[it.File] = append(byFile[it.File], it)
	}

	var b strings.Builder
	for _, f := range files {
		b.WriteString(fileStyle.Render(f))
		b.WriteString("\n")
		for _, it := range byFile[f] {
			writeIssue(&b, it)
		}
		b.WriteString("\n")
	}
	if len(general) > 0 {
		b.WriteString(fileStyle.Render("General"))
		b.WriteString("\n")
		for _, it := range general {
			writeIssue(&b, it)
		}
		b.WriteString("\n")
	}

	b.WriteString(summaryLine(in, items))
	b.WriteString("\n")
	return b.String()
}

func writeIssue(b *strings.Builder, it issue.Issue) {
	loc := ""
	if it.Line > 0 {
		loc = fmt.Sprintf("%d", it.Line)
		if it.Column > 0 {
			loc += fmt.Sprintf(":%d", it.Column)
		}
	}
	sev := errorStyle.Render("error  ")
	if !it.IsError() {
		sev = warningStyle.Render("warning")
	}
	fmt.Fprintf(b, "%s  %s  %s\n", lineStyle.Render(loc), sev, it.Message)
	indent := strings.Repeat(" ", 19)
	fmt.Fprintf(b, "%s%s\n", indent, dimStyle.Render(it.ID))
	if it.Tip != "" {
		fmt.Fprintf(b, "%s%s\n", indent, dimStyle.Render("tip: "+it.Tip))
	}
}

func summaryLine(in Input, items []issue.Issue) string {
	var errs, warns int
	for _, it := range items {
		if it.IsError() {
			errs++
		} else {
			warns++
		}
	}
	extra := fmt.Sprintf("level %d, %d %s analysed in %s", in.Level, in.Files, plural(in.Files, "file"), in.Duration.Round(time.Millisecond))
	if in.Ignored > 0 || in.Baselined > 0 {
		extra += fmt.Sprintf(", %d ignored, %d baselined", in.Ignored, in.Baselined)
	}
	switch {
	case errs == 0 && warns == 0:
		return successStyle.Render("[OK] No errors") + " " + dimStyle.Render("("+extra+")")
	case errs == 0:
		return warningStyle.Render(fmt.Sprintf("[WARN] Found %d %s", warns, plural(warns, "warning"))) + " " + dimStyle.Render("("+extra+")")
	}
	msg := fmt.Sprintf("[ERROR] Found %d %s", errs, plural(errs, "error"))
	if warns > 0 {
		msg += fmt.Sprintf(" and %d %s", warns, plural(warns, "warning"))
	}
	return errorStyle.Render(msg) + " " + dimStyle.Render("("+extra+")")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
