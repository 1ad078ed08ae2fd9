package payload

import (
	"context"

	"github.com/phillip-england/payrollsync/internal/payroll"
)

// DryRun builds and validates requests for every timesheet without sending
// anything. Build failures are reported per employee instead of aborting.
func (b *Builder) DryRun(ctx context.Context, data *payroll.PayrollData, m Mappings) Preview {
	p := Preview{Batch: Batch{Timesheets: []Timesheet{}}}
	for _, ts := range data.Timesheets() {
		t, err := b.Build(ctx, ts, m)
		if err != nil {
			p.Errors = append(p.Errors, err.Error())
			continue
		}
		if problems := b.Validate(t); len(problems) > 0 {
			if p.Problems == nil {
				p.Problems = map[string][]string{}
			}
			p.Problems[ts.Name()] = problems
		}
		p.Batch.Timesheets = append(p.Batch.Timesheets, t)
	}
	return p
}

// Submittable prepares data for a live submission: quarantined entries are
// removed and employees left with nothing are reported as skipped.
func Submittable(data *payroll.PayrollData) (timesheets []*payroll.EmployeeTimesheet, skipped []string) {
	for _, ts := range data.Timesheets() {
		clean, ok := WithoutUnknown(ts)
		if !ok {
			skipped = append(skipped, ts.Name())
			continue
		}
		timesheets = append(timesheets, clean)
	}
	return timesheets, skipped
}
