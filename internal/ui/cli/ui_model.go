package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	coreapp "strata/internal/core/app"
	"strata/internal/data/history"
	"strata/internal/engine/issue"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorCountStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningCountStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FBBF24")).
				Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type issueItem struct {
	issue issue.Issue
}

func (i issueItem) Title() string { return i.issue.Message }
func (i issueItem) Description() string {
	return fmt.Sprintf("%s %s | %s:%d", i.issue.Severity, i.issue.ID, i.issue.File, i.issue.Line)
}
func (i issueItem) FilterValue() string { return i.issue.ID + " " + i.issue.File + " " + i.issue.Message }

type fileSummary struct {
	path     string
	errors   int
	warnings int
}

type fileItem struct {
	summary fileSummary
}

func (i fileItem) Title() string { return i.summary.path }
func (i fileItem) Description() string {
	return fmt.Sprintf("errors=%d warnings=%d", i.summary.errors, i.summary.warnings)
}
func (i fileItem) FilterValue() string { return i.summary.path }

type panelMode int

const (
	panelIssues panelMode = iota
	panelFiles
)

type model struct {
	issueList list.Model
	fileList  list.Model
	mode      panelMode
	root      string

	issues     []issue.Issue
	files      []fileSummary
	runs       []history.Run
	showTrend  bool
	lastUpdate time.Time
	level      int
	fileCount  int
	duration   time.Duration

	hasFileDetails     bool
	detailFile         string
	selectedIssueIndex int
	sourceJumpStatus   string
}

type updateMsg struct {
	result *coreapp.Result
	runs   []history.Run
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.issueList.SetSize(width, height)
		m.fileList.SetSize(width, height)
	case updateMsg:
		if msg.result == nil {
			return m, nil
		}
		m.issues = msg.result.Issues.Items()
		m.files = summarizeFiles(m.issues)
		m.runs = msg.runs
		m.level = msg.result.Level
		m.fileCount = msg.result.Files
		m.duration = msg.result.Duration
		m.lastUpdate = time.Now()

		items := make([]list.Item, 0, len(m.issues))
		for _, iss := range m.issues {
			items = append(items, issueItem{issue: iss})
		}
		m.issueList.SetItems(items)

		fileItems := make([]list.Item, 0, len(m.files))
		for _, f := range m.files {
			fileItems = append(fileItems, fileItem{summary: f})
		}
		m.fileList.SetItems(fileItems)
		if m.hasFileDetails {
			m.selectedIssueIndex = clampIndex(m.selectedIssueIndex, len(m.fileIssues(m.detailFile)))
		}
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelIssues {
		m.issueList, cmd = m.issueList.Update(msg)
	} else {
		m.fileList, cmd = m.fileList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last run: %v | level %d | %d files | %s",
		m.lastUpdate.Format("15:04:05"), m.level, m.fileCount, m.duration.Round(time.Millisecond)))

	errs, warns := 0, 0
	for _, iss := range m.issues {
		if iss.IsError() {
			errs++
		} else {
			warns++
		}
	}
	var summary string
	if errs == 0 && warns == 0 {
		summary = successStyle.Render("No errors")
	} else {
		summary = fmt.Sprintf("%s | %s",
			errorCountStyle.Render(fmt.Sprintf("%d errors", errs)),
			warningCountStyle.Render(fmt.Sprintf("%d warnings", warns)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("strata watch"), status, summary)
	help := renderHelp(m)

	body := m.issueList.View()
	if m.mode == panelFiles {
		body = renderFilePanel(m)
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m.runs)
	}
	if m.sourceJumpStatus != "" {
		body += "\n\n" + m.sourceJumpStatus
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

// fileIssues returns the issues reported for path, in line order.
func (m model) fileIssues(path string) []issue.Issue {
	var out []issue.Issue
	for _, iss := range m.issues {
		if iss.File == path {
			out = append(out, iss)
		}
	}
	return out
}

func summarizeFiles(issues []issue.Issue) []fileSummary {
	byPath := make(map[string]*fileSummary)
	var order []string
	for _, iss := range issues {
		if iss.File == "" {
			continue
		}
		s, ok := byPath[iss.File]
		if !ok {
			s = &fileSummary{path: iss.File}
			byPath[iss.File] = s
			order = append(order, iss.File)
		}
		if iss.IsError() {
			s.errors++
		} else {
			s.warnings++
		}
	}
	out := make([]fileSummary, 0, len(order))
	for _, p := range order {
		out = append(out, *byPath[p])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].errors != out[j].errors {
			return out[i].errors > out[j].errors
		}
		return out[i].path < out[j].path
	})
	return out
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func initialModel(root string) model {
	issueList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	issueList.Title = "Issues"
	issueList.SetShowStatusBar(false)
	issueList.SetFilteringEnabled(true)

	fileList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	fileList.Title = "Files"
	fileList.SetShowStatusBar(false)
	fileList.SetFilteringEnabled(true)

	return model{
		issueList:  issueList,
		fileList:   fileList,
		mode:       panelIssues,
		root:       root,
		lastUpdate: time.Now(),
	}
}
