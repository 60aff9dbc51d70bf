package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if m.activeList().FilterState() == list.Filtering {
		return m.updateActiveList(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelIssues {
			m.mode = panelFiles
		} else {
			m.mode = panelIssues
		}
		return m, nil
	case "t":
		m.showTrend = !m.showTrend
		return m, nil
	}

	if m.mode == panelIssues {
		switch msg.String() {
		case "enter", "o":
			selected, ok := m.issueList.SelectedItem().(issueItem)
			if !ok || selected.issue.File == "" {
				m.sourceJumpStatus = statusStyle.Render("No source target available.")
				return m, nil
			}
			return m, jumpToSourceCmd(m.sourceTargetFor(selected.issue.File, selected.issue.Line))
		}
		return m.updateActiveList(msg)
	}

	switch msg.String() {
	case "enter":
		return openFileDetails(m), nil
	case "esc", "backspace":
		if m.hasFileDetails {
			m.hasFileDetails = false
			m.selectedIssueIndex = 0
			return m, nil
		}
	case "j":
		if m.hasFileDetails {
			if m.selectedIssueIndex < len(m.fileIssues(m.detailFile))-1 {
				m.selectedIssueIndex++
			}
			return m, nil
		}
	case "k":
		if m.hasFileDetails {
			if m.selectedIssueIndex > 0 {
				m.selectedIssueIndex--
			}
			return m, nil
		}
	case "o":
		target, ok := selectedSourceTarget(m)
		if !ok {
			m.sourceJumpStatus = statusStyle.Render("No source target available.")
			return m, nil
		}
		return m, jumpToSourceCmd(target)
	}

	return m.updateActiveList(msg)
}

func (m model) activeList() list.Model {
	if m.mode == panelFiles {
		return m.fileList
	}
	return m.issueList
}

func (m model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mode == panelFiles {
		m.fileList, cmd = m.fileList.Update(msg)
	} else {
		m.issueList, cmd = m.issueList.Update(msg)
	}
	return m, cmd
}

func openFileDetails(m model) model {
	selected, ok := m.fileList.SelectedItem().(fileItem)
	if !ok {
		return m
	}
	m.detailFile = selected.summary.path
	m.hasFileDetails = true
	m.selectedIssueIndex = 0
	return m
}

type sourceTarget struct {
	file string
	line int
}

func (m model) sourceTargetFor(file string, line int) sourceTarget {
	if line < 1 {
		line = 1
	}
	path := filepath.FromSlash(file)
	if m.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	return sourceTarget{file: path, line: line}
}

func selectedSourceTarget(m model) (sourceTarget, bool) {
	if m.hasFileDetails {
		issues := m.fileIssues(m.detailFile)
		if len(issues) == 0 {
			return m.sourceTargetFor(m.detailFile, 1), true
		}
		iss := issues[clampIndex(m.selectedIssueIndex, len(issues))]
		return m.sourceTargetFor(iss.File, iss.Line), true
	}
	selected, ok := m.fileList.SelectedItem().(fileItem)
	if !ok {
		return sourceTarget{}, false
	}
	line := 1
	if issues := m.fileIssues(selected.summary.path); len(issues) > 0 {
		line = issues[0].Line
	}
	return m.sourceTargetFor(selected.summary.path, line), true
}

func editorCommand(target sourceTarget) *exec.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	base := filepath.Base(editor)
	switch {
	case base == "vi" || strings.Contains(base, "vim") || base == "nano" || base == "emacs":
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	case base == "code":
		args = []string{"--goto", fmt.Sprintf("%s:%d", target.file, target.line)}
	}
	return exec.Command(editor, args...)
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	cmd := editorCommand(target)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}
