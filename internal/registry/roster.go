// Package registry loads the collaborator data the pipeline needs from local
// files: the employee roster, the list of valid regions and the mapping of
// regions and hour types to payroll API identifiers.
package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/payroll"
)

// LoadRoster reads a roster CSV with the header
// employee_id,name[,payroll_calendar_id].
func LoadRoster(path string) ([]identity.Employee, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	roster, err := ReadRoster(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return roster, nil
}

func ReadRoster(r io.Reader) ([]identity.Employee, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, payroll.NewStructuralError("roster", "roster is empty", nil)
	}

	var rows []identity.Employee
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, payroll.NewStructuralError("roster", "parse roster csv", err)
	}

	out := make([]identity.Employee, 0, len(rows))
	seen := map[string]int{}
	for i, row := range rows {
		row.ID = strings.TrimSpace(row.ID)
		row.Name = strings.TrimSpace(row.Name)
		row.PayrollCalendarID = strings.TrimSpace(row.PayrollCalendarID)
		if row.ID == "" && row.Name == "" {
			continue
		}
		line := i + 2
		if row.ID == "" || row.Name == "" {
			return nil, payroll.NewStructuralError("roster", fmt.Sprintf("line %d: employee_id and name are required", line), nil)
		}
		if prev, dup := seen[row.ID]; dup {
			return nil, payroll.NewStructuralError("roster", fmt.Sprintf("line %d: employee_id %s already used on line %d", line, row.ID, prev), nil)
		}
		seen[row.ID] = line
		out = append(out, row)
	}
	return out, nil
}

// WriteRoster writes roster in the format ReadRoster accepts.
func WriteRoster(w io.Writer, roster []identity.Employee) error {
	if roster == nil {
		roster = []identity.Employee{}
	}
	return gocsv.Marshal(roster, w)
}
