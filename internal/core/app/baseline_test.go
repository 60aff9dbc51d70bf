package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/engine/issue"
)

func TestGenerateBaseline(t *testing.T) {
	c := issue.NewCollection(
		issue.Error("function.notFound", "src/b.php", 3, 1, "Function x not found."),
		issue.Error("function.notFound", "src/a.php", 2, 1, "Function x not found."),
		issue.Error("function.notFound", "src/a.php", 9, 1, "Function x not found."),
		issue.Error(ParseErrorID, "src/c.php", 1, 1, "Syntax error, unexpected '}'"),
		issue.Warning(UnmatchedIgnoreID, "strata.toml", 0, 0, "Ignored error pattern x was not matched in reported errors."),
	)

	bl := GenerateBaseline(c)
	assert.Equal(t, []BaselineEntry{
		{Message: "Function x not found.", Identifier: "function.notFound", Path: "src/a.php", Count: 2},
		{Message: "Function x not found.", Identifier: "function.notFound", Path: "src/b.php", Count: 1},
	}, bl.Entries)

	path := filepath.Join(t.TempDir(), "nested", "baseline.toml")
	require.NoError(t, bl.Save(path))
	loaded, err := LoadBaseline(path)
	require.NoError(t, err)
	assert.Equal(t, bl.Entries, loaded.Entries)
}

func TestLoadBaseline_Errors(t *testing.T) {
	_, err := LoadBaseline("")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = LoadBaseline(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[ignore]\n"), 0o644))
	_, err = LoadBaseline(bad)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestBaselineApply_MissingCountMeansOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[ignore]]
message = "Function x not found."
identifier = "function.notFound"
path = "./src/a.php"
`), 0o644))
	bl, err := LoadBaseline(path)
	require.NoError(t, err)

	c := issue.NewCollection(
		issue.Error("function.notFound", "src/a.php", 2, 1, "Function x not found."),
		issue.Error("function.notFound", "src/a.php", 4, 1, "Function x not found."),
	)
	assert.Equal(t, 1, bl.Apply(c))
	assert.Equal(t, 1, c.Len())
}

func TestIgnoreSet(t *testing.T) {
	set, err := compileIgnores([]config.IgnoreRule{
		{Message: "Undefined variable", Count: 2},
		{Path: "src/Generated/*"},
		{Identifier: "method.notFound", Path: "src/Legacy/**"},
	})
	require.NoError(t, err)

	c := issue.NewCollection(
		issue.Error("variable.undefined", "src/a.php", 1, 1, "Undefined variable: $a"),
		issue.Error("variable.undefined", "src/a.php", 2, 1, "Undefined variable: $b"),
		issue.Error("variable.undefined", "src/a.php", 3, 1, "Undefined variable: $c"),
		issue.Error("class.notFound", "src/Generated/Proxy.php", 1, 1, "Class X not found."),
		issue.Error(ParseErrorID, "src/Generated/Bad.php", 1, 1, "Syntax error, unexpected end of file"),
		issue.Error("method.notFound", "src/Legacy/Deep/Old.php", 5, 1, "Call to an undefined method Old::x()."),
		issue.Error("method.notFound", "src/New.php", 5, 1, "Call to an undefined method New::x()."),
	)
	assert.Equal(t, 4, set.apply(c))
	assert.Equal(t, []string{"variable.undefined", ParseErrorID, "method.notFound"}, ids(c))
	assert.Empty(t, set.unmatched("strata.toml"))

	// A second pass over fewer issues reports the shortfall.
	c = issue.NewCollection(issue.Error("variable.undefined", "src/a.php", 1, 1, "Undefined variable: $a"))
	assert.Equal(t, 1, set.apply(c))
	unmatched := set.unmatched("strata.toml")
	require.Len(t, unmatched, 3)
	assert.Equal(t, "Ignored error pattern Undefined variable is expected to occur 2 times, but occurred only 1 time.", unmatched[0].Message)
	assert.Equal(t, "Ignored error pattern path src/Generated/* was not matched in reported errors.", unmatched[1].Message)
	assert.Equal(t, issue.SeverityWarning, unmatched[2].Severity)
}
