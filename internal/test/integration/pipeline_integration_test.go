package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/core/ports"
	"strata/internal/ui/report"
)

const projectConfig = `level = 2
paths = ["src"]
exclude = ["src/legacy/**"]

[[ignore]]
identifier = "variable.undefined"
path = "src/*.php"

[history]
enabled = true
path = ".strata/history.db"
`

const greeterSource = `<?php
namespace App;

class Greeter
{
    public function hello(string $name): string
    {
        return "Hello " . $name;
    }
}
`

const mainSource = `<?php
namespace App;

function greet(Greeter $g): void
{
    echo $g->hello('world');
    $g->goodbye();
}

function broken(): void
{
    echo $undefined;
    missing();
}
`

func createProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"strata.toml":        projectConfig,
		"src/Greeter.php":    greeterSource,
		"src/main.php":       mainSource,
		"src/legacy/old.php": "<?php\nundefined_legacy_call();\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestFullPipelineIntegration(t *testing.T) {
	root := createProject(t)

	cfg, err := config.Load(filepath.Join(root, "strata.toml"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Level)

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx := context.Background()
	res, err := a.Analyse(ctx, ports.AnalyseRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files, "excluded legacy file is not analysed")
	assert.Equal(t, 1, res.Ignored)

	items := res.Issues.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "method.notFound", items[0].ID)
	assert.Equal(t, "src/main.php", items[0].File)
	assert.Equal(t, 7, items[0].Line)
	assert.Contains(t, items[0].Message, "goodbye")
	assert.Equal(t, "function.notFound", items[1].ID)
	assert.Equal(t, 13, items[1].Line)

	t.Run("history", func(t *testing.T) {
		store := a.History()
		require.NotNil(t, store)
		runs, err := store.Recent(ctx, cfg.Root, 5)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, res.RunID, runs[0].ID)
		assert.Equal(t, 2, runs[0].Errors)
		assert.Equal(t, 1, runs[0].Counts["method.notFound"])
	})

	t.Run("sarif", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Write(&buf, report.FormatSARIF, report.FromResult(res, a.Registry())))
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "2.1.0", decoded["version"])
	})

	t.Run("health", func(t *testing.T) {
		health := a.Health(ctx)
		assert.Equal(t, "ok", health["history"])
		assert.Equal(t, "ok", health["checks"])
	})
}

func TestPipelineRaisingLevelAddsChecks(t *testing.T) {
	root := createProject(t)
	cfg, err := config.Load(filepath.Join(root, "strata.toml"))
	require.NoError(t, err)
	cfg.Level = 0
	cfg.History.Enabled = false

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	res, err := a.Analyse(context.Background(), ports.AnalyseRequest{})
	require.NoError(t, err)

	ids := make([]string, 0, res.Issues.Len())
	for _, iss := range res.Issues.Items() {
		ids = append(ids, iss.ID)
	}
	assert.Equal(t, []string{"function.notFound", "ignore.unmatched"}, ids,
		"the variable.undefined ignore rule matches nothing at level 0")
	assert.Zero(t, res.Ignored)
}
