package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndLoadRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)

	first := Run{
		ID: "run-1", StartedAt: base, Duration: 1500 * time.Millisecond, Level: 5,
		Files: 10, Errors: 3, Warnings: 1,
		Counts: map[string]int{"method.notFound": 2, "variable.undefined": 2},
	}
	second := Run{
		ID: "run-2", StartedAt: base.Add(time.Hour), Level: 5, Files: 11, Errors: 1,
		Counts: map[string]int{"method.notFound": 1},
	}
	for _, r := range []Run{first, second} {
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	runs, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	got := runs[1]
	if got.Duration != 1500*time.Millisecond || got.Files != 10 || got.Total() != 4 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Counts["method.notFound"] != 2 || len(got.Counts) != 2 {
		t.Fatalf("unexpected counts: %v", got.Counts)
	}
	if !got.StartedAt.Equal(base) {
		t.Fatalf("timestamp did not roundtrip: %v", got.StartedAt)
	}
}

func TestStore_SaveRunReplacesSameID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, Run{ID: "r", Errors: 5, Counts: map[string]int{"a": 5}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, Run{ID: "r", Errors: 1, Counts: map[string]int{"b": 1}}); err != nil {
		t.Fatal(err)
	}
	runs, err := store.Recent(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Errors != 1 || runs[0].Counts["a"] != 0 || runs[0].Counts["b"] != 1 {
		t.Fatalf("expected the second save to win, got %+v", runs)
	}
	if err := store.SaveRun(ctx, Run{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestStore_TrendAndPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, n := range []int{4, 0, 2} {
		run := Run{ID: string(rune('a' + i)), StartedAt: base.Add(time.Duration(i) * time.Hour), Counts: map[string]int{}}
		if n > 0 {
			run.Counts["class.notFound"] = n
		}
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	points, err := store.Trend(ctx, "", "class.notFound", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 || points[0].Count != 4 || points[1].Count != 0 || points[2].Count != 2 {
		t.Fatalf("unexpected trend: %+v", points)
	}

	since, err := store.Trend(ctx, "", "class.notFound", base.Add(90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 1 || since[0].RunID != "c" {
		t.Fatalf("since filter: %+v", since)
	}

	removed, err := store.Prune(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned runs, got %d", removed)
	}
	runs, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "c" {
		t.Fatalf("expected only the newest run to survive, got %+v", runs)
	}
}

func TestStore_ProjectIsolation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, Run{ID: "a1", ProjectKey: "project-a", Files: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, Run{ID: "b1", ProjectKey: "project-b", Files: 2}); err != nil {
		t.Fatal(err)
	}
	aRows, err := store.Recent(ctx, "project-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(aRows) != 1 || aRows[0].Files != 1 {
		t.Fatalf("unexpected project-a rows: %+v", aRows)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err = store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompare(t *testing.T) {
	prev := Run{Errors: 5, Warnings: 2, Counts: map[string]int{"a": 3, "b": 2, "c": 2}}
	cur := Run{Errors: 2, Warnings: 3, Counts: map[string]int{"a": 3, "b": 1, "d": 1}}

	d := Compare(prev, cur)
	if d.Errors != -3 || d.Warnings != 1 {
		t.Fatalf("totals: %+v", d)
	}
	if len(d.Changed) != 3 || d.Changed["b"] != -1 || d.Changed["c"] != -2 || d.Changed["d"] != 1 {
		t.Fatalf("changed: %v", d.Changed)
	}
	if movers := d.Movers(); movers[0] != "c" {
		t.Fatalf("largest change first, got %v", movers)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
}
