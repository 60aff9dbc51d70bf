package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	coreapp "strata/internal/core/app"
	"strata/internal/core/errors"
	"strata/internal/engine/checks"
	"strata/internal/engine/issue"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":       FormatText,
		"text":   FormatText,
		" JSON ": FormatJSON,
		"sarif":  FormatSARIF,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func sampleResult() *coreapp.Result {
	return &coreapp.Result{
		RunID:    "run-1",
		Level:    2,
		Files:    2,
		Duration: 40 * time.Millisecond,
		Issues: issue.NewCollection(
			issue.Error("function.notFound", "src/a.php", 3, 1, "Function nope not found."),
			issue.Error(coreapp.ParseErrorID, "src/b.php", 1, 1, "Syntax error"),
		),
	}
}

func TestFromResult_RuleDescriptions(t *testing.T) {
	in := FromResult(sampleResult(), checks.Default())

	if in.Files != 2 || in.Level != 2 || in.Issues.Len() != 2 {
		t.Fatalf("result fields not carried over: %+v", in)
	}
	c, ok := checks.Default().Lookup("function.notFound")
	if !ok {
		t.Fatal("function.notFound is not registered")
	}
	if in.Rules["function.notFound"] != c.Description() {
		t.Fatalf("rule description = %q, want %q", in.Rules["function.notFound"], c.Description())
	}
	if in.Rules[coreapp.ParseErrorID] == "" {
		t.Fatal("parse errors should have a description")
	}
}

func TestWrite(t *testing.T) {
	in := FromResult(sampleResult(), nil)

	var text bytes.Buffer
	if err := Write(&text, FormatText, in); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if !strings.Contains(text.String(), "Function nope not found.") {
		t.Fatalf("text output missing message: %s", text.String())
	}

	var js bytes.Buffer
	if err := Write(&js, FormatJSON, in); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !json.Valid(js.Bytes()) {
		t.Fatalf("json output is not valid: %s", js.String())
	}

	var sarif bytes.Buffer
	if err := Write(&sarif, FormatSARIF, in); err != nil {
		t.Fatalf("write sarif: %v", err)
	}
	if !strings.Contains(sarif.String(), `"ruleId": "function.notFound"`) {
		t.Fatalf("sarif output missing rule: %s", sarif.String())
	}

	if err := Write(&text, Format("xml"), in); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected not supported, got %v", err)
	}
}
