package store

import (
	"context"
	"fmt"
	"time"
)

const (
	SubmissionCreated = "created"
	SubmissionFailed  = "failed"
	SubmissionSkipped = "skipped"
)

// Submission is the outcome of sending one employee's timesheet.
type Submission struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	EmployeeName string    `json:"employee_name"`
	EmployeeID   string    `json:"employee_id,omitempty"`
	TimesheetID  string    `json:"timesheet_id,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) RecordSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	sub.CreatedAt = time.Unix(sub.CreatedAt.Unix(), 0).UTC()
	err := withSQLiteRetry(func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO submissions (run_id, employee_name, employee_id, timesheet_id, status, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?);`,
			sub.RunID, sub.EmployeeName, sub.EmployeeID, sub.TimesheetID, sub.Status, sub.Error, sub.CreatedAt.Unix())
		if err != nil {
			return err
		}
		sub.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Submission{}, fmt.Errorf("record submission: %w", err)
	}
	return sub, nil
}

func (s *Store) Submissions(ctx context.Context, runID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, employee_name, employee_id, timesheet_id, status, error, created_at
		FROM submissions WHERE run_id = ? ORDER BY id;`, runID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		var (
			sub Submission
			at  int64
		)
		if err := rows.Scan(&sub.ID, &sub.RunID, &sub.EmployeeName, &sub.EmployeeID, &sub.TimesheetID, &sub.Status, &sub.Error, &at); err != nil {
			return nil, err
		}
		sub.CreatedAt = time.Unix(at, 0).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}
