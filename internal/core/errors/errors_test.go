package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeConflict, "symbol table is frozen")
		if err.Error() != "[CONFLICT] symbol table is frozen" {
			t.Errorf("unexpected message %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("disk full")
		err := Wrap(original, CodeInternal, "write baseline")
		expected := "[INTERNAL_ERROR] write baseline: disk full"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected Unwrap to expose the cause")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("load config: %w", Newf(CodeValidationError, "level %d out of range", 12))
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
		if CodeOf(err) != CodeValidationError {
			t.Errorf("CodeOf = %s", CodeOf(err))
		}
		if CodeOf(errors.New("plain")) != CodeInternal {
			t.Error("foreign errors should map to INTERNAL_ERROR")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeNotFound, "class missing"), CtxSymbol, "App\\Foo")
		if !strings.Contains(err.Error(), "App\\Foo") {
			t.Errorf("context missing from %s", err.Error())
		}
		plain := AddContext(errors.New("boom"), CtxPath, "a.php")
		if !IsCode(plain, CodeInternal) {
			t.Error("plain errors should be wrapped as INTERNAL_ERROR")
		}
	})
}
