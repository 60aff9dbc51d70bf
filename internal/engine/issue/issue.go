package issue

import (
	"fmt"
	"strings"
)

// Severity orders findings; higher is more serious.
type Severity uint8

const (
	SeverityWarning Severity = iota + 1
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity accepts the names produced by String.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Issue is one finding. Line and Column are 1-based; zero means "whole file".
type Issue struct {
	ID       string   `json:"identifier"`
	Severity Severity `json:"-"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Tip      string   `json:"tip,omitempty"`
}

func Error(id, file string, line, column int, message string) Issue {
	return Issue{ID: id, Severity: SeverityError, File: file, Line: line, Column: column, Message: message}
}

func Warning(id, file string, line, column int, message string) Issue {
	return Issue{ID: id, Severity: SeverityWarning, File: file, Line: line, Column: column, Message: message}
}

func (i Issue) WithTip(tip string) Issue {
	i.Tip = tip
	return i
}

func (i Issue) IsError() bool { return i.Severity == SeverityError }

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]", i.File, i.Line, i.Column, i.Severity, i.Message, i.ID)
}
