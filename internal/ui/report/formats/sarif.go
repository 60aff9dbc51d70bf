package formats

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"strata/internal/engine/issue"
	"strata/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document. Every identifier that occurs gets one
// rule; file URIs are relative to the project root.
func GenerateSARIF(in Input) ([]byte, error) {
	items := in.items()
	rules, index := buildSARIFRules(items, in.Rules)

	results := make([]sarifResult, 0, len(items))
	for _, it := range items {
		result := sarifResult{
			RuleID:    it.ID,
			RuleIndex: index[it.ID],
			Level:     sarifLevel(it.Severity),
			Message:   sarifMessage{Text: resultText(it)},
		}
		if it.File != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       filepath.ToSlash(it.File),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if it.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: it.Line, StartColumn: it.Column}
			}
			result.Locations = []sarifLocation{loc}
		}
		results = append(results, result)
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "strata",
						Version: version.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns one rule per identifier present, sorted by identifier. A
// rule's default level is the most serious severity reported under it.
func buildSARIFRules(items []issue.Issue, descriptions map[string]string) ([]sarifRule, map[string]int) {
	worst := make(map[string]issue.Severity)
	for _, it := range items {
		if it.Severity > worst[it.ID] {
			worst[it.ID] = it.Severity
		}
	}
	ids := make([]string, 0, len(worst))
	for id := range worst {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rules := make([]sarifRule, 0, len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		desc := descriptions[id]
		if desc == "" {
			desc = id
		}
		index[id] = i
		rules = append(rules, sarifRule{
			ID:               id,
			Name:             ruleName(id),
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaultConfig{Level: sarifLevel(worst[id])},
		})
	}
	return rules, index
}

func resultText(it issue.Issue) string {
	if it.Tip == "" {
		return it.Message
	}
	return it.Message + "\n" + it.Tip
}

// sarifLevel maps issue severities to SARIF levels.
func sarifLevel(s issue.Severity) string {
	switch s {
	case issue.SeverityError:
		return "error"
	case issue.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// ruleName turns "method.notFound" into "MethodNotFound".
func ruleName(id string) string {
	out := make([]byte, 0, len(id))
	upper := true
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c == '.' || c == '_' || c == '-' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
