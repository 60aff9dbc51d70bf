package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"strata/internal/data/history"
)

func sampleRuns() []history.Run {
	return []history.Run{
		{
			ID:        "run-2",
			StartedAt: time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
			Duration:  2 * time.Second,
			Level:     5,
			Files:     15,
			Errors:    3,
			Warnings:  1,
			Counts:    map[string]int{"function.notFound": 3, "variable.undefined": 1},
		},
		{
			ID:        "run-1",
			StartedAt: time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
			Duration:  time.Second,
			Level:     5,
			Files:     14,
			Errors:    1,
			Warnings:  2,
			Counts:    map[string]int{"function.notFound": 1, "variable.undefined": 2},
		},
	}
}

func TestRenderHistoryTSV(t *testing.T) {
	out, err := RenderHistoryTSV(sampleRuns())
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}

	body := string(out)
	if !strings.HasPrefix(body, "RunID\tStartedAt\tLevel") {
		t.Fatalf("missing header in output: %s", body)
	}
	if !strings.Contains(body, "run-2\t2026-02-13T00:00:00Z\t5\t15\t3\t1\t0\t0\t2000\t2\t-1\n") {
		t.Fatalf("missing newest row in output: %s", body)
	}
	if !strings.Contains(body, "run-1\t2026-02-12T00:00:00Z\t5\t14\t1\t2\t0\t0\t1000\t0\t0\n") {
		t.Fatalf("oldest row should have no delta: %s", body)
	}
}

func TestRenderHistoryJSON(t *testing.T) {
	out, err := RenderHistoryJSON(sampleRuns())
	if err != nil {
		t.Fatalf("render json: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(decoded))
	}
	changed, ok := decoded[0]["changed"].(map[string]any)
	if !ok {
		t.Fatalf("newest entry should carry changes: %v", decoded[0])
	}
	if changed["function.notFound"] != float64(2) || changed["variable.undefined"] != float64(-1) {
		t.Fatalf("unexpected changes: %v", changed)
	}
	if _, ok := decoded[1]["changed"]; ok {
		t.Fatalf("oldest entry should not carry changes: %v", decoded[1])
	}
}

func TestRenderHistoryJSON_Empty(t *testing.T) {
	out, err := RenderHistoryJSON(nil)
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	if strings.TrimSpace(string(out)) != "[]" {
		t.Fatalf("expected empty array, got %s", out)
	}
}

func TestRenderHistoryText(t *testing.T) {
	if got := RenderHistoryText(nil); !strings.Contains(got, "No runs recorded") {
		t.Fatalf("unexpected empty rendering: %q", got)
	}

	body := RenderHistoryText(sampleRuns())
	if !strings.Contains(body, "+2 errors") || !strings.Contains(body, "-1 warnings") {
		t.Fatalf("missing deltas: %s", body)
	}
	if !strings.Contains(body, "function.notFound, variable.undefined") {
		t.Fatalf("movers should be listed largest first: %s", body)
	}
}
