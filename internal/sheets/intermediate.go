package sheets

import (
	"strings"
	"time"

	"github.com/phillip-england/payrollsync/internal/payroll"
)

// Kind names the three source spreadsheets.
type Kind string

const (
	KindSite     Kind = "site_timesheet"
	KindTravel   Kind = "travel_time"
	KindOvertime Kind = "overtime_rates"
)

// RawEntry is mutable working data; it becomes a payroll.DailyEntry during
// consolidation.
type RawEntry struct {
	Date         time.Time        `json:"entry_date"`
	Region       string           `json:"region_name"`
	Hours        float64          `json:"hours"`
	HourType     payroll.HourType `json:"hour_type"`
	OvertimeRate *float64         `json:"overtime_rate"`
	Notes        string           `json:"notes,omitempty"`
}

type RawEmployee struct {
	Name    string     `json:"employee_name"`
	Entries []RawEntry `json:"entries"`
}

// OvertimeRate is one overtime register row.
type OvertimeRate struct {
	HasCustomRate bool     `json:"has_custom_rate"`
	Rate          *float64 `json:"rate"`
}

// OvertimeRegistry maps employee names to their register row.
type OvertimeRegistry map[string]OvertimeRate

// Lookup tries the exact name first, then a case-insensitive match.
func (r OvertimeRegistry) Lookup(name string) (OvertimeRate, bool) {
	if rate, ok := r[name]; ok {
		return rate, true
	}
	for key, rate := range r {
		if strings.EqualFold(key, name) {
			return rate, true
		}
	}
	return OvertimeRate{}, false
}

// CustomRate returns the rate to apply, only when the employee is flagged.
func (r OvertimeRegistry) CustomRate(name string) *float64 {
	rate, ok := r.Lookup(name)
	if !ok || !rate.HasCustomRate || rate.Rate == nil {
		return nil
	}
	v := *rate.Rate
	return &v
}

// Intermediate is the normalized output of one reader.
type Intermediate struct {
	Kind         Kind             `json:"file_type"`
	Sources      []string         `json:"sources"`
	PayPeriodEnd *time.Time       `json:"pay_period_end_date,omitempty"`
	Employees    []RawEmployee    `json:"employees"`
	Overtime     OvertimeRegistry `json:"overtime_rates_lookup,omitempty"`
	Report       Report           `json:"report"`
}

func NewIntermediate(kind Kind) *Intermediate {
	in := &Intermediate{Kind: kind}
	if kind == KindOvertime {
		in.Overtime = OvertimeRegistry{}
	}
	return in
}

// Employee returns the record for name, creating it in first-seen order.
func (in *Intermediate) Employee(name string) *RawEmployee {
	for i := range in.Employees {
		if in.Employees[i].Name == name {
			return &in.Employees[i]
		}
	}
	in.Employees = append(in.Employees, RawEmployee{Name: name})
	return &in.Employees[len(in.Employees)-1]
}

// Absorb folds another file of the same kind into in. Later pay-period dates
// and register rows replace earlier ones.
func (in *Intermediate) Absorb(other *Intermediate) {
	if other == nil {
		return
	}
	in.Sources = append(in.Sources, other.Sources...)
	for _, emp := range other.Employees {
		target := in.Employee(emp.Name)
		target.Entries = append(target.Entries, emp.Entries...)
	}
	if other.PayPeriodEnd != nil {
		end := *other.PayPeriodEnd
		in.PayPeriodEnd = &end
	}
	if other.Overtime != nil {
		if in.Overtime == nil {
			in.Overtime = OvertimeRegistry{}
		}
		for name, rate := range other.Overtime {
			in.Overtime[name] = rate
		}
	}
	in.Report.Merge(other.Report)
}

// Names lists employee names in first-seen order.
func (in *Intermediate) Names() []string {
	out := make([]string, len(in.Employees))
	for i, emp := range in.Employees {
		out[i] = emp.Name
	}
	return out
}

// EntryCount counts raw entries across employees.
func (in *Intermediate) EntryCount() int {
	n := 0
	for _, emp := range in.Employees {
		n += len(emp.Entries)
	}
	return n
}
