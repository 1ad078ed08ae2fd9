package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phillip-england/payrollsync/internal/consolidate"
)

const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one pipeline execution. Data holds the full-fidelity payroll
// document and Report the pipeline report, both as JSON.
type Run struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	PayPeriodEnd string          `json:"pay_period_end_date,omitempty"`
	Sources      []string        `json:"sources"`
	Employees    int             `json:"employees"`
	Entries      int             `json:"entries"`
	Warnings     []string        `json:"warnings"`
	Error        string          `json:"error,omitempty"`
	Data         json.RawMessage `json:"-"`
	Report       json.RawMessage `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateRun inserts run with its quarantined entries, assigning an ID and
// timestamp when they are empty.
func (s *Store) CreateRun(ctx context.Context, run Run, unknown []consolidate.UnknownRegionEntry) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Sources == nil {
		run.Sources = []string{}
	}
	if run.Warnings == nil {
		run.Warnings = []string{}
	}
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return Run{}, err
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return Run{}, err
	}

	err = withSQLiteRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, status, pay_period_end, sources, employees, entries, warnings, error, data_json, report_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			run.ID, run.Status, run.PayPeriodEnd, string(sources), run.Employees, run.Entries,
			string(warnings), run.Error, string(run.Data), string(run.Report), run.CreatedAt.Unix(),
		); err != nil {
			return err
		}
		for _, e := range unknown {
			if _, err := tx.ExecContext(ctx, `INSERT INTO unknown_region_entries (run_id, employee_name, original_region, entry_date, hours)
				VALUES (?, ?, ?, ?, ?);`, run.ID, e.EmployeeName, e.OriginalRegion, e.EntryDate, e.Hours); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	run.CreatedAt = time.Unix(run.CreatedAt.Unix(), 0).UTC()
	return run, nil
}

const runColumns = `id, status, pay_period_end, sources, employees, entries, warnings, error, data_json, report_json, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run               Run
		sources, warnings string
		data, report      string
		createdAt         int64
	)
	if err := row.Scan(&run.ID, &run.Status, &run.PayPeriodEnd, &sources, &run.Employees, &run.Entries,
		&warnings, &run.Error, &data, &report, &createdAt); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
		return Run{}, fmt.Errorf("decode sources: %w", err)
	}
	if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
		return Run{}, fmt.Errorf("decode warnings: %w", err)
	}
	if data != "" {
		run.Data = json.RawMessage(data)
	}
	if report != "" {
		run.Report = json.RawMessage(report)
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return run, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?;`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the newest runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) DeleteRun(ctx context.Context, id string) error {
	var affected int64
	err := withSQLiteRetry(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?;`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UnknownEntries returns the quarantined entries recorded for a run.
func (s *Store) UnknownEntries(ctx context.Context, runID string) ([]consolidate.UnknownRegionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT employee_name, original_region, entry_date, hours
		FROM unknown_region_entries WHERE run_id = ? ORDER BY id;`, runID)
	if err != nil {
		return nil, fmt.Errorf("list unknown region entries: %w", err)
	}
	defer rows.Close()

	out := []consolidate.UnknownRegionEntry{}
	for rows.Next() {
		var e consolidate.UnknownRegionEntry
		if err := rows.Scan(&e.EmployeeName, &e.OriginalRegion, &e.EntryDate, &e.Hours); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
