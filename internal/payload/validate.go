package payload

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phillip-england/payrollsync/internal/payroll"
)

// Validate checks a timesheet request before it is sent and returns every
// problem found. An empty result means the request is well formed.
func (b *Builder) Validate(t Timesheet) []string {
	var problems []string
	required := []struct {
		name  string
		value string
	}{
		{"EmployeeID", t.EmployeeID},
		{"StartDate", t.StartDate},
		{"EndDate", t.EndDate},
	}
	for _, f := range required {
		if f.value == "" {
			problems = append(problems, "Missing required field: "+f.name)
		}
	}
	if t.TimesheetLines == nil {
		problems = append(problems, "Missing required field: TimesheetLines")
	}

	for _, f := range []struct{ name, value string }{{"StartDate", t.StartDate}, {"EndDate", t.EndDate}} {
		if f.value == "" {
			continue
		}
		if _, err := payroll.ParseDate(f.value); err != nil {
			problems = append(problems, fmt.Sprintf("Invalid date format for %s: %s", f.name, f.value))
		}
	}

	if b.StrictIDs {
		problems = append(problems, checkGUID("EmployeeID", t.EmployeeID)...)
		if t.PayrollCalendarID != "" {
			problems = append(problems, checkGUID("PayrollCalendarID", t.PayrollCalendarID)...)
		}
	}

	for i, line := range t.TimesheetLines {
		prefix := fmt.Sprintf("Line %d: ", i+1)
		if line.Date == "" {
			problems = append(problems, prefix+"Missing required field: Date")
		} else if _, err := payroll.ParseDate(line.Date); err != nil {
			problems = append(problems, fmt.Sprintf("%sInvalid date format: %s", prefix, line.Date))
		}
		if line.EarningsRateID == "" {
			problems = append(problems, prefix+"Missing required field: EarningsRateID")
		}
		if line.NumberOfUnits < 0 {
			problems = append(problems, prefix+"NumberOfUnits must be a non-negative number")
		}
		if line.RatePerUnit != nil && *line.RatePerUnit < 0 {
			problems = append(problems, prefix+"RatePerUnit must be a non-negative number")
		}
		if b.StrictIDs {
			for _, p := range checkGUID("EarningsRateID", line.EarningsRateID) {
				problems = append(problems, prefix+p)
			}
			if line.TrackingItemID != "" {
				for _, p := range checkGUID("TrackingItemID", line.TrackingItemID) {
					problems = append(problems, prefix+p)
				}
			}
		}
	}
	return problems
}

func checkGUID(field, value string) []string {
	if value == "" {
		return nil
	}
	if _, err := uuid.Parse(value); err != nil {
		return []string{fmt.Sprintf("%s must be a GUID: %s", field, value)}
	}
	return nil
}

// Preview is the result of a dry run: what would be sent and what is wrong
// with it.
type Preview struct {
	Batch    Batch               `json:"batch"`
	Problems map[string][]string `json:"problems,omitempty"`
	Errors   []string            `json:"errors,omitempty"`
}

func (p Preview) OK() bool { return len(p.Problems) == 0 && len(p.Errors) == 0 }
