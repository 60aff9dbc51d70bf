package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreapp "strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/core/errors"
)

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

// writeProject creates a project with a strata.toml and returns the config path.
func writeProject(t *testing.T, toml string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	files["strata.toml"] = toml
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return filepath.Join(root, "strata.toml")
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, coreAppFactory{})
	return code, stdout.String(), stderr.String()
}

const projectConfig = "level = 0\npaths = [\"src\"]\n"

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]int{"0": 0, "5": 5, "10": 10, "max": config.MaxLevel, " MAX ": config.MaxLevel} {
		got, err := parseLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "-1", "11", "high"} {
		_, err := parseLevel(raw)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError), "parseLevel(%q) = %v", raw, err)
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "strata ")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := execute(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestAnalyse_ReportsErrorsWithExitStatus(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
	})

	code, stdout, _ := execute(t, "analyse", "--config", cfgPath, "--format", "json")
	assert.Equal(t, 1, code)

	var decoded struct {
		Totals struct {
			Errors        int `json:"errors"`
			FilesAnalysed int `json:"files_analysed"`
		} `json:"totals"`
		Files map[string]struct {
			Messages []struct {
				Message    string `json:"message"`
				Line       int    `json:"line"`
				Identifier string `json:"identifier"`
			} `json:"messages"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded), stdout)
	assert.Equal(t, 1, decoded.Totals.Errors)
	assert.Equal(t, 2, decoded.Totals.FilesAnalysed)
	require.Len(t, decoded.Files["src/caller.php"].Messages, 1)
	msg := decoded.Files["src/caller.php"].Messages[0]
	assert.Equal(t, "function.notFound", msg.Identifier)
	assert.Equal(t, 6, msg.Line)
}

func TestAnalyse_CleanProject(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{
		"src/helper.php": helperSource,
	})

	code, stdout, _ := execute(t, "analyze", "--config", cfgPath)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "No errors")
}

func TestAnalyse_ExplicitPath(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
	})
	helper := filepath.Join(filepath.Dir(cfgPath), "src", "helper.php")

	code, _, _ := execute(t, "analyse", "--config", cfgPath, helper)
	assert.Equal(t, 0, code)
}

func TestAnalyse_InvalidFlags(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{"src/helper.php": helperSource})

	code, _, stderr := execute(t, "analyse", "--config", cfgPath, "--level", "11")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "level")

	code, _, stderr = execute(t, "analyse", "--config", cfgPath, "--format", "xml")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown format")
}

func TestAnalyse_WritesSARIFFile(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
	})
	out := filepath.Join(t.TempDir(), "reports", "strata.sarif")

	code, stdout, _ := execute(t, "analyse", "--config", cfgPath, "--format", "sarif", "--output", out)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ruleId": "function.notFound"`)
}

func TestBaseline_SuppressesKnownIssues(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
	})

	code, stdout, _ := execute(t, "baseline", "--config", cfgPath)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Baseline with 1 entries")
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "strata-baseline.toml"))

	code, _, _ = execute(t, "analyse", "--config", cfgPath)
	assert.Equal(t, 0, code)

	code, _, _ = execute(t, "analyse", "--config", cfgPath, "--no-baseline")
	assert.Equal(t, 1, code)
}

func TestRules(t *testing.T) {
	code, stdout, _ := execute(t, "rules")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "function.notFound")
	assert.Contains(t, stdout, "missingType.iterableValue")
	assert.Contains(t, stdout, "silent")

	code, stdout, _ = execute(t, "rules", "--level", "0")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "function.notFound")
	assert.NotContains(t, stdout, "missingType.iterableValue")
}

func TestHistory_Disabled(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{"src/helper.php": helperSource})

	code, _, stderr := execute(t, "history", "--config", cfgPath)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "disabled")
}

func TestHistory_ListsRecordedRuns(t *testing.T) {
	cfgPath := writeProject(t, projectConfig+"\n[history]\nenabled = true\npath = \"history.db\"\n", map[string]string{
		"src/caller.php": callerSource,
		"src/helper.php": helperSource,
	})

	for i := 0; i < 2; i++ {
		code, _, _ := execute(t, "analyse", "--config", cfgPath)
		require.Equal(t, 1, code)
	}

	code, stdout, _ := execute(t, "history", "--config", cfgPath, "--format", "json")
	require.Equal(t, 0, code)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs), stdout)
	require.Len(t, runs, 2)
	assert.Equal(t, float64(1), runs[0]["errors"])

	code, stdout, _ = execute(t, "history", "--config", cfgPath, "--limit", "1", "--format", "tsv")
	require.Equal(t, 0, code)
	assert.Len(t, bytes.Split(bytes.TrimSpace([]byte(stdout)), []byte("\n")), 2)
}

type failingFactory struct{}

func (failingFactory) New(*config.Config) (*coreapp.App, error) {
	return nil, errors.New(errors.CodeInternal, "history unavailable")
}

func TestAnalyse_FactoryFailure(t *testing.T) {
	cfgPath := writeProject(t, projectConfig, map[string]string{"src/helper.php": helperSource})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"analyse", "--config", cfgPath}, &stdout, &stderr, failingFactory{})
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "history unavailable")
}

func TestApplyAnalyseFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "analyse"}
	opts := &analyseOptions{}
	addAnalyseFlags(cmd.Flags(), opts)
	require.NoError(t, cmd.Flags().Set("level", "max"))
	require.NoError(t, cmd.Flags().Set("report-maybes", "true"))

	cfg := config.Default()
	require.NoError(t, applyAnalyseFlags(cmd, opts, cfg))
	assert.Equal(t, config.MaxLevel, cfg.Level)
	assert.True(t, cfg.Options.ReportMaybes)
	assert.Zero(t, cfg.Parallel, "unset flags keep config values")
}
