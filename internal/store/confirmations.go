package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Confirmation is a human decision that a source name is a roster employee.
type Confirmation struct {
	InputName    string    `json:"input_name"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name,omitempty"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

// SaveConfirmation records c, replacing any earlier decision for the same name.
func (s *Store) SaveConfirmation(ctx context.Context, c Confirmation) (Confirmation, error) {
	c.InputName = strings.TrimSpace(c.InputName)
	c.EmployeeID = strings.TrimSpace(c.EmployeeID)
	if c.InputName == "" || c.EmployeeID == "" {
		return Confirmation{}, fmt.Errorf("input_name and employee_id are required")
	}
	if c.ConfirmedAt.IsZero() {
		c.ConfirmedAt = time.Now().UTC()
	}
	c.ConfirmedAt = time.Unix(c.ConfirmedAt.Unix(), 0).UTC()
	err := withSQLiteRetry(func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO match_confirmations (input_name, employee_id, employee_name, confirmed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(input_name) DO UPDATE SET
				employee_id = excluded.employee_id,
				employee_name = excluded.employee_name,
				confirmed_at = excluded.confirmed_at;`,
			c.InputName, c.EmployeeID, c.EmployeeName, c.ConfirmedAt.Unix())
		return err
	})
	if err != nil {
		return Confirmation{}, fmt.Errorf("save confirmation: %w", err)
	}
	return c, nil
}

func (s *Store) Confirmations(ctx context.Context) ([]Confirmation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT input_name, employee_id, employee_name, confirmed_at
		FROM match_confirmations ORDER BY input_name;`)
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	out := []Confirmation{}
	for rows.Next() {
		var (
			c  Confirmation
			at int64
		)
		if err := rows.Scan(&c.InputName, &c.EmployeeID, &c.EmployeeName, &at); err != nil {
			return nil, err
		}
		c.ConfirmedAt = time.Unix(at, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteConfirmation(ctx context.Context, inputName string) error {
	var affected int64
	err := withSQLiteRetry(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM match_confirmations WHERE input_name = ?;`, strings.TrimSpace(inputName))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete confirmation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
