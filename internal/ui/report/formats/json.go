package formats

import (
	"encoding/json"
)

type jsonReport struct {
	Totals jsonTotals          `json:"totals"`
	Files  map[string]jsonFile `json:"files"`
	Errors []string            `json:"errors"`
}

type jsonTotals struct {
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
	FileErrors int `json:"file_errors"`
	Files      int `json:"files_analysed"`
	Ignored    int `json:"ignored"`
	Baselined  int `json:"baselined"`
}

type jsonFile struct {
	Errors   int           `json:"errors"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Column     int    `json:"column,omitempty"`
	Identifier string `json:"identifier"`
	Severity   string `json:"severity"`
	Tip        string `json:"tip,omitempty"`
}

// GenerateJSON renders totals plus the messages of every file. Issues without a file
// are listed under errors as plain messages.
func GenerateJSON(in Input) ([]byte, error) {
	items := in.items()
	report := jsonReport{
		Files:  make(map[string]jsonFile),
		Errors: []string{},
		Totals: jsonTotals{Files: in.Files, Ignored: in.Ignored, Baselined: in.Baselined},
	}
	for _, it := range items {
		if it.IsError() {
			report.Totals.Errors++
		} else {
			report.Totals.Warnings++
		}
		if it.File == "" {
			report.Errors = append(report.Errors, it.Message)
			continue
		}
		f := report.Files[it.File]
		if it.IsError() {
			f.Errors++
			report.Totals.FileErrors++
		}
		f.Messages = append(f.Messages, jsonMessage{
			Message:    it.Message,
			Line:       it.Line,
			Column:     it.Column,
			Identifier: it.ID,
			Severity:   it.Severity.String(),
			Tip:        it.Tip,
		})
		report.Files[it.File] = f
	}
	return json.MarshalIndent(report, "", "  ")
}
