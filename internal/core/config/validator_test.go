package config

import (
	"testing"

	"strata/internal/core/errors"
)

func TestValidateDefault(t *testing.T) {
	if errs := Validate(Default()); len(errs) != 0 {
		t.Fatalf("default config should be valid, got %v", errs)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Level = -1
	cfg.Extensions = []string{"php"}
	cfg.Ignore = []IgnoreRule{{}, {Identifier: "x", Count: -2}}

	errs := Validate(cfg)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.IsCode(err, errors.CodeValidationError) {
			t.Errorf("expected VALIDATION_ERROR, got %v", err)
		}
	}
}

func TestMessagePattern(t *testing.T) {
	cases := []struct {
		raw   string
		input string
		want  bool
	}{
		{"#^Call to an undefined method Legacy.*#", "Call to an undefined method Legacy::run().", true},
		{"#^Call to an undefined method Legacy.*#", "Access to an undefined property", false},
		{"/undefined/i", "Call to an UNDEFINED function", true},
		{"Undefined variable", "Undefined variable: $x", true},
		{"^Undefined", "Possibly Undefined", false},
	}
	for _, tc := range cases {
		re, err := MessagePattern(tc.raw)
		if err != nil {
			t.Fatalf("MessagePattern(%q): %v", tc.raw, err)
		}
		if got := re.MatchString(tc.input); got != tc.want {
			t.Errorf("%q on %q = %v, want %v", tc.raw, tc.input, got, tc.want)
		}
	}
	if _, err := MessagePattern("/x/q"); err == nil {
		t.Error("unsupported flag should fail")
	}
}

func TestPathPattern(t *testing.T) {
	g, err := PathPattern("./src/Legacy/**")
	if err != nil {
		t.Fatal(err)
	}
	if !g.Match("src/Legacy/Old/Thing.php") {
		t.Error("** should cross directories")
	}
	g, err = PathPattern("src/*.php")
	if err != nil {
		t.Fatal(err)
	}
	if g.Match("src/Sub/A.php") {
		t.Error("* should stay within one directory")
	}
}
