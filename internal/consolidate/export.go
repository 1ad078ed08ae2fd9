package consolidate

import (
	"github.com/phillip-england/payrollsync/internal/payroll"
)

type exportKey struct {
	date     string
	region   string
	hours    float64
	hourType payroll.HourType
}

// Export renders the downstream JSON view. Quarantined entries show zero
// hours, and entries that look identical in that view appear once, in
// first-seen order. Export is deterministic and does not change data.
func Export(data *payroll.PayrollData) payroll.Document {
	doc := payroll.Document{PayPeriodEndDate: payroll.FormatDate(data.PayPeriodEnd())}
	for _, ts := range data.Timesheets() {
		emp := payroll.EmployeeDocument{
			EmployeeName:      ts.Name(),
			EmployeeID:        ts.EmployeeID(),
			PayrollCalendarID: ts.PayrollCalendarID(),
			DailyEntries:      []payroll.EntryDocument{},
		}
		seen := map[exportKey]struct{}{}
		for _, e := range ts.Entries() {
			hours := e.Hours()
			if e.Region() == payroll.UnknownRegion {
				hours = 0
			}
			key := exportKey{payroll.FormatDate(e.Date()), e.Region(), hours, e.HourType()}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			ed := payroll.EntryDocument{
				EntryDate:  key.date,
				RegionName: e.Region(),
				Hours:      hours,
				HourType:   e.HourType(),
			}
			if rate, ok := e.OvertimeRate(); ok {
				ed.OvertimeRate = &rate
			}
			emp.DailyEntries = append(emp.DailyEntries, ed)
		}
		doc.Employees = append(doc.Employees, emp)
	}
	return doc
}
