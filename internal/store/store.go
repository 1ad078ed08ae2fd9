// Package store persists pipeline runs, quarantined entries, confirmed name
// matches and submission outcomes in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Open creates the parent directory, opens the database and applies the
// schema. path may be ":memory:".
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
		dsn = path
	}
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// each :memory: connection is its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			pay_period_end TEXT NOT NULL DEFAULT '',
			sources TEXT NOT NULL DEFAULT '[]',
			employees INTEGER NOT NULL DEFAULT 0,
			entries INTEGER NOT NULL DEFAULT 0,
			warnings TEXT NOT NULL DEFAULT '[]',
			error TEXT NOT NULL DEFAULT '',
			data_json TEXT NOT NULL DEFAULT '',
			report_json TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS unknown_region_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			employee_name TEXT NOT NULL,
			original_region TEXT NOT NULL,
			entry_date TEXT NOT NULL,
			hours REAL NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_unknown_region_entries_run ON unknown_region_entries(run_id);`,
		`CREATE TABLE IF NOT EXISTS match_confirmations (
			input_name TEXT PRIMARY KEY,
			employee_id TEXT NOT NULL,
			employee_name TEXT NOT NULL DEFAULT '',
			confirmed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			employee_name TEXT NOT NULL,
			employee_id TEXT NOT NULL DEFAULT '',
			timesheet_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_run ON submissions(run_id, created_at);`,
	}
	for _, stmt := range statements {
		if err := withSQLiteRetry(func() error {
			_, err := s.db.ExecContext(ctx, stmt)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func withSQLiteRetry(fn func() error) error {
	const maxAttempts = 3
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		lower := strings.ToLower(err.Error())
		if !strings.Contains(lower, "database is locked") && !strings.Contains(lower, "database is busy") {
			return err
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * 125 * time.Millisecond)
		}
	}
	return err
}
