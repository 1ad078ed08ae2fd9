package payload

import (
	"context"
	"strings"

	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
)

const (
	OutcomeCreated = "created"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// TimesheetCreator sends one timesheet and returns the ID it was stored under.
type TimesheetCreator interface {
	CreateTimesheet(ctx context.Context, t Timesheet) (string, error)
}

// Outcome is what happened to one employee's timesheet.
type Outcome struct {
	Employee    string `json:"employee_name"`
	EmployeeID  string `json:"employee_id,omitempty"`
	TimesheetID string `json:"timesheet_id,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// Submit sends every submittable timesheet in turn. Failures are recorded
// per employee and the batch carries on; only cancellation stops it.
func (b *Builder) Submit(ctx context.Context, data *payroll.PayrollData, m Mappings, api TimesheetCreator) ([]Outcome, error) {
	log := logging.FromContext(ctx)
	timesheets, skipped := Submittable(data)

	var out []Outcome
	for _, name := range skipped {
		out = append(out, Outcome{Employee: name, Status: OutcomeSkipped, Error: "every entry is in an unknown region"})
	}
	for _, ts := range timesheets {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := Outcome{Employee: ts.Name(), EmployeeID: ts.EmployeeID()}
		t, err := b.Build(ctx, ts, m)
		if err != nil {
			o.Status, o.Error = OutcomeFailed, err.Error()
			out = append(out, o)
			continue
		}
		if problems := b.Validate(t); len(problems) > 0 {
			o.Status, o.Error = OutcomeFailed, strings.Join(problems, "; ")
			out = append(out, o)
			continue
		}
		id, err := api.CreateTimesheet(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Error().Err(err).Str("employee", ts.Name()).Msg("timesheet submission failed")
			o.Status, o.Error = OutcomeFailed, err.Error()
			out = append(out, o)
			continue
		}
		o.Status, o.TimesheetID = OutcomeCreated, id
		log.Info().Str("employee", ts.Name()).Str("timesheet_id", id).Msg("timesheet created")
		out = append(out, o)
	}
	return out, nil
}

// Counts tallies outcomes by status.
func Counts(outcomes []Outcome) map[string]int {
	counts := map[string]int{OutcomeCreated: 0, OutcomeFailed: 0, OutcomeSkipped: 0}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
