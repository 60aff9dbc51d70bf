package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	coreapp "strata/internal/core/app"
	"strata/internal/data/history"
	"strata/internal/engine/issue"
)

func sampleResult() *coreapp.Result {
	return &coreapp.Result{
		Level: 3,
		Files: 4,
		Issues: issue.NewCollection(
			issue.Error("function.notFound", "src/a.php", 6, 5, "Function nope not found."),
			issue.Warning("variable.undefined", "src/a.php", 9, 1, "Variable $x might not be defined."),
			issue.Error("class.notFound", "src/b.php", 2, 1, "Class Foo not found."),
			issue.Error("class.notFound", "src/b.php", 7, 1, "Class Bar not found."),
		),
	}
}

func TestModel_PanelsAndUpdate(t *testing.T) {
	m := initialModel("/project")

	updated, _ := m.Update(updateMsg{result: sampleResult()})
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	if len(state.issueList.Items()) != 4 {
		t.Fatalf("expected 4 issue items, got %d", len(state.issueList.Items()))
	}
	if len(state.fileList.Items()) != 2 {
		t.Fatalf("expected 2 file items, got %d", len(state.fileList.Items()))
	}
	first := state.files[0]
	if first.path != "src/b.php" || first.errors != 2 {
		t.Fatalf("files should be ordered by error count, got %+v", state.files)
	}
	if !strings.Contains(state.View(), "3 errors") {
		t.Fatalf("view should summarise errors:\n%s", state.View())
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyTab})
	state = updated.(model)
	if state.mode != panelFiles {
		t.Fatalf("expected file panel after tab, got %v", state.mode)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyTab})
	state = updated.(model)
	if state.mode != panelIssues {
		t.Fatalf("expected issues panel after second tab, got %v", state.mode)
	}
}

func TestModel_FileDrillDownAndTrendToggle(t *testing.T) {
	m := initialModel("/project")
	updated, _ := m.Update(updateMsg{result: sampleResult()})
	state := updated.(model)

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyTab})
	state = updated.(model)

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = updated.(model)
	if !state.hasFileDetails || state.detailFile != "src/b.php" {
		t.Fatalf("expected details of src/b.php, got %q (open=%v)", state.detailFile, state.hasFileDetails)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	state = updated.(model)
	if state.selectedIssueIndex != 1 {
		t.Fatalf("expected cursor on second issue, got %d", state.selectedIssueIndex)
	}
	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	state = updated.(model)
	if state.selectedIssueIndex != 1 {
		t.Fatalf("cursor should stop at the last issue, got %d", state.selectedIssueIndex)
	}

	target, ok := selectedSourceTarget(state)
	if !ok {
		t.Fatal("expected a source target")
	}
	if target.file != filepath.Join("/project", "src", "b.php") || target.line != 7 {
		t.Fatalf("unexpected target %+v", target)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	state = updated.(model)
	if !state.showTrend {
		t.Fatal("expected history overlay toggled on")
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEsc})
	state = updated.(model)
	if state.hasFileDetails {
		t.Fatal("expected file details to close on esc")
	}
}

func TestRenderTrendOverlay(t *testing.T) {
	if got := renderTrendOverlay(nil); !strings.Contains(got, "History unavailable") {
		t.Fatalf("unexpected overlay without runs: %q", got)
	}

	now := time.Now()
	runs := []history.Run{
		{ID: "2", StartedAt: now, Errors: 5, Warnings: 1, Counts: map[string]int{"class.notFound": 5}},
		{ID: "1", StartedAt: now.Add(-time.Minute), Errors: 2, Warnings: 1, Counts: map[string]int{"class.notFound": 2}},
	}
	got := renderTrendOverlay(runs)
	if !strings.Contains(got, "Errors: 5 (+3)") || !strings.Contains(got, "class.notFound") {
		t.Fatalf("unexpected overlay: %s", got)
	}
}

func TestEditorCommand(t *testing.T) {
	target := sourceTarget{file: "/project/src/a.php", line: 12}

	t.Setenv("EDITOR", "nvim")
	if got := editorCommand(target).Args; strings.Join(got[1:], " ") != "+12 /project/src/a.php" {
		t.Fatalf("unexpected vim args %v", got)
	}

	t.Setenv("EDITOR", "code")
	if got := editorCommand(target).Args; strings.Join(got[1:], " ") != "--goto /project/src/a.php:12" {
		t.Fatalf("unexpected code args %v", got)
	}
}
