package payroll

import (
	"sort"
	"strings"
	"time"
)

// EmployeeTimesheet holds one employee's entries for a pay period, in date order.
type EmployeeTimesheet struct {
	name              string
	entries           []DailyEntry
	payPeriodEnd      time.Time
	employeeID        string
	payrollCalendarID string
}

func NewEmployeeTimesheet(name string, entries []DailyEntry, payPeriodEnd time.Time) (*EmployeeTimesheet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newRuleError("employee_name", name, "employee name cannot be empty")
	}
	if len(entries) == 0 {
		return nil, newRuleError("daily_entries", name, "timesheet must have at least one daily entry")
	}
	end := Day(payPeriodEnd)
	for _, e := range entries {
		if e.Date().After(end) {
			return nil, newRuleError("entry_date", FormatDate(e.Date()), "entry for %s is after pay period end %s", name, FormatDate(end))
		}
	}
	sorted := make([]DailyEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date().Before(sorted[j].Date())
	})
	return &EmployeeTimesheet{name: name, entries: sorted, payPeriodEnd: end}, nil
}

func (t *EmployeeTimesheet) Name() string              { return t.name }
func (t *EmployeeTimesheet) PayPeriodEnd() time.Time   { return t.payPeriodEnd }
func (t *EmployeeTimesheet) EmployeeID() string        { return t.employeeID }
func (t *EmployeeTimesheet) PayrollCalendarID() string { return t.payrollCalendarID }
func (t *EmployeeTimesheet) Len() int                  { return len(t.entries) }

// Entries returns a copy of the ordered entries.
func (t *EmployeeTimesheet) Entries() []DailyEntry {
	out := make([]DailyEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// WithIdentity attaches the external employee and pay calendar identifiers.
func (t *EmployeeTimesheet) WithIdentity(employeeID, payrollCalendarID string) *EmployeeTimesheet {
	c := *t
	c.employeeID = strings.TrimSpace(employeeID)
	c.payrollCalendarID = strings.TrimSpace(payrollCalendarID)
	return &c
}

// WithEntries replaces the entry list, re-checking every invariant.
func (t *EmployeeTimesheet) WithEntries(entries []DailyEntry) (*EmployeeTimesheet, error) {
	next, err := NewEmployeeTimesheet(t.name, entries, t.payPeriodEnd)
	if err != nil {
		return nil, err
	}
	next.employeeID = t.employeeID
	next.payrollCalendarID = t.payrollCalendarID
	return next, nil
}

// TotalHours sums hours, optionally restricted to the given hour types.
func (t *EmployeeTimesheet) TotalHours(types ...HourType) float64 {
	var total float64
	for _, e := range t.entries {
		if len(types) == 0 || containsHourType(types, e.HourType()) {
			total += e.Hours()
		}
	}
	return total
}

// Regions returns the distinct region names, sorted.
func (t *EmployeeTimesheet) Regions() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range t.entries {
		if _, ok := seen[e.Region()]; ok {
			continue
		}
		seen[e.Region()] = struct{}{}
		out = append(out, e.Region())
	}
	sort.Strings(out)
	return out
}

// HourTypes returns the distinct hour types in enum order.
func (t *EmployeeTimesheet) HourTypes() []HourType {
	var out []HourType
	for _, ht := range HourTypes {
		for _, e := range t.entries {
			if e.HourType() == ht {
				out = append(out, ht)
				break
			}
		}
	}
	return out
}

func (t *EmployeeTimesheet) EntriesByDate(day time.Time) []DailyEntry {
	day = Day(day)
	var out []DailyEntry
	for _, e := range t.entries {
		if e.Date().Equal(day) {
			out = append(out, e)
		}
	}
	return out
}

func (t *EmployeeTimesheet) EntriesByRegion(region string) []DailyEntry {
	var out []DailyEntry
	for _, e := range t.entries {
		if e.Region() == region {
			out = append(out, e)
		}
	}
	return out
}

// Span returns the earliest and latest entry dates.
func (t *EmployeeTimesheet) Span() (time.Time, time.Time) {
	return t.entries[0].Date(), t.entries[len(t.entries)-1].Date()
}

func containsHourType(types []HourType, ht HourType) bool {
	for _, t := range types {
		if t == ht {
			return true
		}
	}
	return false
}

// PayrollData groups the timesheets of one pay period.
type PayrollData struct {
	payPeriodEnd time.Time
	timesheets   []*EmployeeTimesheet
}

func NewPayrollData(payPeriodEnd time.Time, timesheets []*EmployeeTimesheet) (*PayrollData, error) {
	if len(timesheets) == 0 {
		return nil, newRuleError("employee_timesheets", 0, "payroll data must contain at least one timesheet")
	}
	end := Day(payPeriodEnd)
	for _, ts := range timesheets {
		if !ts.PayPeriodEnd().Equal(end) {
			return nil, newRuleError("pay_period_end_date", FormatDate(ts.PayPeriodEnd()), "timesheet for %s does not share pay period end %s", ts.Name(), FormatDate(end))
		}
	}
	out := make([]*EmployeeTimesheet, len(timesheets))
	copy(out, timesheets)
	return &PayrollData{payPeriodEnd: end, timesheets: out}, nil
}

func (p *PayrollData) PayPeriodEnd() time.Time { return p.payPeriodEnd }

func (p *PayrollData) Timesheets() []*EmployeeTimesheet {
	out := make([]*EmployeeTimesheet, len(p.timesheets))
	copy(out, p.timesheets)
	return out
}

// Timesheet finds a timesheet by canonical name.
func (p *PayrollData) Timesheet(name string) (*EmployeeTimesheet, bool) {
	for _, ts := range p.timesheets {
		if ts.Name() == name {
			return ts, true
		}
	}
	return nil, false
}

// Names lists canonical employee names in stored order.
func (p *PayrollData) Names() []string {
	out := make([]string, len(p.timesheets))
	for i, ts := range p.timesheets {
		out[i] = ts.Name()
	}
	return out
}
