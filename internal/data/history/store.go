package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store persists run summaries in SQLite. It is safe for concurrent use.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the database file and its directory when missing and applies pending
// migrations. A non-positive busyTimeout uses two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	// busy_timeout + WAL reduce lock conflicts when watch mode and a CLI run overlap.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func projectKey(key string) string {
	if key = strings.TrimSpace(key); key == "" {
		return "default"
	}
	return key
}

// SaveRun stores run and its per-identifier counts in one transaction. Saving a run
// ID twice replaces the earlier row.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
  run_id, project_key, started_at_utc, duration_ms, level, file_count,
  error_count, warning_count, ignored_count, baselined_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			projectKey(run.ProjectKey),
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.Level,
			run.Files,
			run.Errors,
			run.Warnings,
			run.Ignored,
			run.Baselined,
		); err != nil {
			return err
		}
		for id, count := range run.Counts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_counts (run_id, identifier, count) VALUES (?, ?, ?)`,
				run.ID, id, count); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Recent returns up to limit runs of project, newest first, with their counts.
func (s *Store) Recent(ctx context.Context, project string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT run_id, project_key, started_at_utc, duration_ms, level, file_count,
       error_count, warning_count, ignored_count, baselined_count
FROM runs
WHERE project_key = ?
ORDER BY started_at_utc DESC, run_id DESC
LIMIT ?`, projectKey(project), limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &run.ProjectKey, &startedRaw, &durationMS, &run.Level, &run.Files,
			&run.Errors, &run.Warnings, &run.Ignored, &run.Baselined); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.StartedAt = started.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	rows.Close()

	for i := range runs {
		counts, err := s.counts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Counts = counts
	}
	return runs, nil
}

func (s *Store) counts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identifier, count FROM run_counts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan run count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Trend returns the count of identifier in every run of project since the given time,
// oldest first. Runs without the identifier contribute a zero.
func (s *Store) Trend(ctx context.Context, project, identifier string, since time.Time) ([]TrendPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT r.run_id, r.started_at_utc, COALESCE(c.count, 0)
FROM runs r
LEFT JOIN run_counts c ON c.run_id = r.run_id AND c.identifier = ?
WHERE r.project_key = ?`
	args := []any{identifier, projectKey(project)}
	if !since.IsZero() {
		query += " AND r.started_at_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY r.started_at_utc ASC, r.run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load trend", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var (
			p   TrendPoint
			raw string
		)
		if err := rows.Scan(&p.RunID, &raw, &p.Count); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", raw, err)
		}
		p.At = at.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs of project and reports how many it removed.
func (s *Store) Prune(ctx context.Context, project string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep <= 0 {
		return 0, nil
	}
	var removed int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs
WHERE project_key = ? AND run_id NOT IN (
  SELECT run_id FROM runs WHERE project_key = ?
  ORDER BY started_at_utc DESC, run_id DESC LIMIT ?
)`, projectKey(project), projectKey(project), keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Ping reports whether the database is reachable; used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
