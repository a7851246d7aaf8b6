package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"notedump/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped on incompatible schema changes; an old journal
// must then be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by an incompatible
// version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Store is the SQLite-backed run journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the journal database under the log directory, creating
// it on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "journal.db"))
}

// OpenPath connects to a journal database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var initialized int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&initialized)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if initialized == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// StartRun inserts a run row at dispatch time.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, notebook, section, output_dir, started_at)
         VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Notebook, run.Section, run.OutputDir,
		run.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordPage appends one page outcome.
func (s *Store) RecordPage(ctx context.Context, rec PageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_records (run_id, page_id, title, filename, status, error, completed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.PageID, rec.Title, rec.Filename, string(rec.Status), rec.Error,
		rec.CompletedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert page record: %w", err)
	}
	return nil
}

// FinishRun writes the final counts and completion time.
func (s *Store) FinishRun(ctx context.Context, runID string, total, succeeded, failed int, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano), total, succeeded, failed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, notebook, section, output_dir, started_at, finished_at, total, succeeded, failed
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FailedPages returns the failed page records of a run, oldest first.
func (s *Store) FailedPages(ctx context.Context, runID string) ([]PageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, page_id, title, filename, status, error, completed_at
         FROM page_records WHERE run_id = ? AND status = ? ORDER BY id`,
		runID, string(PageFailed))
	if err != nil {
		return nil, fmt.Errorf("query page records: %w", err)
	}
	defer rows.Close()

	var records []PageRecord
	for rows.Next() {
		var rec PageRecord
		var status, completed string
		if err := rows.Scan(&rec.RunID, &rec.PageID, &rec.Title, &rec.Filename, &status, &rec.Error, &completed); err != nil {
			return nil, fmt.Errorf("scan page record: %w", err)
		}
		rec.Status = PageStatus(status)
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	if err := rows.Scan(&run.ID, &run.Notebook, &run.Section, &run.OutputDir,
		&started, &finished, &run.Total, &run.Succeeded, &run.Failed); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
			run.FinishedAt = &ts
		}
	}
	return run, nil
}
