// Package report selects and writes the output formats of the CLI.
package report

import (
	"fmt"
	"io"
	"strings"

	coreapp "strata/internal/core/app"
	"strata/internal/core/errors"
	"strata/internal/engine/checks"
	"strata/internal/ui/report/formats"
)

type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

var Formats = []Format{FormatText, FormatJSON, FormatSARIF}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatSARIF:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", errors.AddContext(errors.Newf(errors.CodeValidationError, "unknown format %q (want text, json or sarif)", s), errors.CtxKey, "format")
}

// descriptions of identifiers reported by the pipeline rather than a check.
var pipelineRules = map[string]string{
	coreapp.ParseErrorID:      "The file could not be read or contains syntax errors.",
	coreapp.UnmatchedIgnoreID: "An ignore rule suppressed fewer issues than expected.",
}

// FromResult converts a run into writer input. Rule descriptions come from registry.
func FromResult(res *coreapp.Result, registry *checks.Registry) formats.Input {
	in := formats.Input{
		RunID:     res.RunID,
		Level:     res.Level,
		Files:     res.Files,
		Duration:  res.Duration,
		Ignored:   res.Ignored,
		Baselined: res.Baselined,
		Issues:    res.Issues,
		Rules:     make(map[string]string),
	}
	for id, desc := range pipelineRules {
		in.Rules[id] = desc
	}
	if registry != nil {
		for _, c := range registry.Checks() {
			in.Rules[c.ID()] = c.Description()
		}
	}
	return in
}

// Write renders in as format to w.
func Write(w io.Writer, format Format, in formats.Input) error {
	var data []byte
	switch format {
	case FormatText, "":
		data = []byte(formats.GenerateText(in))
	case FormatJSON:
		out, err := formats.GenerateJSON(in)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "render json")
		}
		data = append(out, '\n')
	case FormatSARIF:
		out, err := formats.GenerateSARIF(in)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "render sarif")
		}
		data = append(out, '\n')
	default:
		return errors.Newf(errors.CodeNotSupported, "format %q", format)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
