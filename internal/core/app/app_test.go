package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/data/history"
	"strata/internal/engine/ast"
	"strata/internal/engine/issue"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestConfig(root string, level int) *config.Config {
	cfg := config.Default()
	cfg.Root = root
	cfg.Level = level
	cfg.Paths = []string{"src"}
	cfg.Parallel = 4
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, deps Dependencies) *App {
	t.Helper()
	a, err := NewWithDependencies(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func ids(c *issue.Collection) []string {
	var out []string
	for _, iss := range c.Items() {
		out = append(out, iss.ID)
	}
	return out
}

const callerSource = `<?php
namespace App;

function run(): void {
    helper();
    missing_function();
}
`

const helperSource = `<?php
namespace App;

function helper(): void {}
`

func TestAnalyse_CrossFileSymbols(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
		"src/notes.txt":  "not php",
	})

	a := newTestApp(t, newTestConfig(root, 0), Dependencies{})
	res, err := a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 0, res.Level)
	assert.NotEmpty(t, res.RunID)

	items := res.Issues.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "function.notFound", items[0].ID)
	assert.Equal(t, "src/caller.php", items[0].File)
	assert.Equal(t, 6, items[0].Line)
	assert.Equal(t, "Function missing_function not found.", items[0].Message)
	assert.Same(t, res, a.LastResult())
}

func TestAnalyse_LevelGatesChecks(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/undefined.php": "<?php\nfunction f(): void {\n    echo $nope;\n}\n",
	})

	res, err := newTestApp(t, newTestConfig(root, 0), Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Issues.Len(), "variable.undefined is a level 1 rule")

	res, err = newTestApp(t, newTestConfig(root, 1), Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"variable.undefined"}, ids(res.Issues))
}

func TestAnalyse_SyntaxErrorsAreReportedNotChecked(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/broken.php": "<?php\nfunction declared(): void {}\nfunction broken( {\n    undefined_call();\n",
		"src/clean.php":  "<?php\necho 1;\n",
	})

	res, err := newTestApp(t, newTestConfig(root, 0), Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)

	require.NotZero(t, res.Issues.Len())
	for _, iss := range res.Issues.Items() {
		assert.Equal(t, ParseErrorID, iss.ID, "only parse errors expected, got %s", iss)
		assert.Equal(t, "src/broken.php", iss.File)
		assert.Equal(t, issue.SeverityError, iss.Severity)
	}
}

type failingParser struct{}

func (failingParser) ParseFile(path string, _ []byte) (*ast.File, error) {
	return nil, errors.New(errors.CodeInternal, "boom")
}

func TestAnalyse_ParserFailureBecomesIssue(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a.php": "<?php"})

	res, err := newTestApp(t, newTestConfig(root, 0), Dependencies{Parser: failingParser{}}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	items := res.Issues.Items()
	require.Len(t, items, 1)
	assert.Equal(t, ParseErrorID, items[0].ID)
	assert.Contains(t, items[0].Message, "boom")
}

func TestAnalyse_MissingPath(t *testing.T) {
	cfg := newTestConfig(t.TempDir(), 0)
	_, err := newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestAnalyse_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a.php": helperSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestApp(t, newTestConfig(root, 0), Dependencies{}).Analyse(ctx, ports.AnalyseRequest{})
	require.Error(t, err)
}

func TestAnalyse_Deterministic(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files["src/"+name+".php"] = "<?php\nfunction " + name + "(): void {\n    nope_" + name + "();\n    echo $x;\n}\n"
	}
	writeFiles(t, root, files)

	var first []issue.Issue
	for i := 0; i < 3; i++ {
		cfg := newTestConfig(root, 1)
		cfg.Parallel = i + 1
		res, err := newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
		require.NoError(t, err)
		if first == nil {
			first = res.Issues.Items()
			require.Len(t, first, 12)
			continue
		}
		assert.Equal(t, first, res.Issues.Items())
	}
}

func TestAnalyse_IgnoreRules(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/Legacy/old.php": "<?php\nold_one();\nold_two();\n",
		"src/new.php":        "<?php\nnew_one();\n",
	})
	cfg := newTestConfig(root, 0)
	cfg.Ignore = []config.IgnoreRule{
		{Message: "#^Function old_\\w+ not found\\.$#", Path: "src/Legacy/**", Count: 1},
		{Identifier: "class.notFound"},
	}

	res, err := newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ignored)

	var messages []string
	for _, iss := range res.Issues.Items() {
		messages = append(messages, iss.ID+" "+iss.File)
	}
	assert.ElementsMatch(t, []string{
		"function.notFound src/Legacy/old.php",
		"function.notFound src/new.php",
		"ignore.unmatched strata.toml",
	}, messages)
}

func TestAnalyse_UnmatchedIgnoresOnlyOnFullRuns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a.php": helperSource})
	cfg := newTestConfig(root, 0)
	cfg.Ignore = []config.IgnoreRule{{Identifier: "class.notFound"}}

	a := newTestApp(t, cfg, Dependencies{})
	res, err := a.Analyse(context.Background(), ports.AnalyseRequest{Paths: []string{"src/a.php"}})
	require.NoError(t, err)
	assert.Zero(t, res.Issues.Len())

	cfg.ReportUnmatchedIgnoredErrors = false
	res, err = a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Issues.Len())
}

func TestBaselineRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.php": "<?php\nmissing();\nmissing();\n",
	})
	cfg := newTestConfig(root, 0)
	a := newTestApp(t, cfg, Dependencies{})

	res, entries, err := a.GenerateBaseline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, entries)
	assert.Equal(t, 2, res.Unfiltered.Len())
	assert.FileExists(t, cfg.BaselinePath())

	res, err = a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Issues.Len())
	assert.Equal(t, 2, res.Baselined)

	// A third occurrence exceeds the recorded count and is reported.
	writeFiles(t, root, map[string]string{"src/a.php": "<?php\nmissing();\nmissing();\nmissing();\n"})
	res, err = a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Issues.Len())
	assert.Equal(t, 2, res.Baselined)

	res, err = a.Analyse(context.Background(), ports.AnalyseRequest{NoBaseline: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Issues.Len())
}

func TestAnalyse_InvalidBaselineFails(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.php":            helperSource,
		"strata-baseline.toml": "[[ignore]]\nmesage = \"typo\"\n",
	})
	_, err := newTestApp(t, newTestConfig(root, 0), Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

type memoryHistory struct {
	mu   sync.Mutex
	runs []history.Run
	err  error
}

func (m *memoryHistory) SaveRun(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryHistory) Recent(context.Context, string, int) ([]history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Run(nil), m.runs...), nil
}

func (m *memoryHistory) Trend(context.Context, string, string, time.Time) ([]history.TrendPoint, error) {
	return nil, nil
}

func (m *memoryHistory) Prune(context.Context, string, int) (int64, error) { return 0, nil }
func (m *memoryHistory) Ping(context.Context) error                        { return m.err }
func (m *memoryHistory) Close() error                                      { return nil }

func TestAnalyse_RecordsHistory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/caller.php": callerSource})
	store := &memoryHistory{}

	res, err := newTestApp(t, newTestConfig(root, 0), Dependencies{History: store}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, root, run.ProjectKey)
	assert.Equal(t, 2, run.Errors)
	assert.Equal(t, map[string]int{"function.notFound": 2}, run.Counts)
}

func TestAnalyse_HistoryFailureDoesNotFailRun(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a.php": helperSource})
	store := &memoryHistory{err: errors.New(errors.CodeInternal, "disk full")}

	a := newTestApp(t, newTestConfig(root, 0), Dependencies{History: store})
	_, err := a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)

	health := a.Health(context.Background())
	assert.Equal(t, "ok", health["parser"])
	assert.Contains(t, health["history"], "disk full")
}

func TestNew_Validation(t *testing.T) {
	_, err := NewWithDependencies(nil, Dependencies{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	cfg := config.Default()
	cfg.Level = 11
	_, err = NewWithDependencies(cfg, Dependencies{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	cfg = config.Default()
	cfg.Ignore = []config.IgnoreRule{{Message: "#(unclosed#"}}
	_, err = NewWithDependencies(cfg, Dependencies{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestReload(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/undefined.php": "<?php\nfunction f(): void {\n    echo $nope;\n}\n"})
	a := newTestApp(t, newTestConfig(root, 0), Dependencies{})

	var seen []int
	a.SetResultHandler(func(r *Result) { seen = append(seen, r.Issues.Len()) })

	_, err := a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)

	require.NoError(t, a.Reload(newTestConfig(root, 1)))
	a.HandleChanges(context.Background(), nil)
	assert.Equal(t, []int{0, 1}, seen)

	assert.Error(t, a.Reload(nil))
}

const clientUser = `<?php
namespace App;

use Acme\Client;

function connect(): Client {
    \Acme\acme_boot();
    return new Client();
}
`

const acmeClient = `<?php
namespace Acme;

function acme_boot(): void {}

class Client {
    public function send(): void {
        undefined_in_vendor();
    }
}
`

func TestAnalyse_ScanPathsAreCollectedNotChecked(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/connect.php":         clientUser,
		"vendor/acme/lib/lib.php": acmeClient,
	})
	cfg := newTestConfig(root, 0)

	res, err := newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"class.notFound", "function.notFound"}, ids(res.Issues))

	cfg.ScanPaths = []string{"vendor/acme"}
	res, err = newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Issues.Len(), "vendor code is not checked: %v", ids(res.Issues))
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Scanned)
}

func TestAnalyse_ComposerAutoloadPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"composer.json":   `{"name": "app/app", "autoload": {"psr-4": {"App\\": "src/"}}}`,
		"src/connect.php": clientUser,
		"vendor/composer/installed.json": `{"packages": [
			{"name": "acme/lib", "install-path": "../acme/lib", "autoload": {"psr-4": {"Acme\\": ["src/"]}}}
		], "dev-package-names": []}`,
		"vendor/acme/lib/src/Client.php": acmeClient,
	})

	cfg := newTestConfig(root, 0)
	res, err := newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Issues.Len(), "%v", ids(res.Issues))
	assert.Equal(t, 1, res.Scanned)

	cfg.Composer.Autoload = false
	res, err = newTestApp(t, cfg, Dependencies{}).Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)
	assert.Contains(t, ids(res.Issues), "class.notFound")
}

func TestAnalyse_PartialRunSeesTheWholeProject(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
	})

	a := newTestApp(t, newTestConfig(root, 0), Dependencies{})
	res, err := a.Analyse(context.Background(), ports.AnalyseRequest{Paths: []string{filepath.Join(root, "src", "caller.php")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Scanned)
	require.Equal(t, []string{"function.notFound"}, ids(res.Issues))
	assert.Contains(t, res.Issues.Items()[0].Message, "missing_function")
}
