package consolidate

import (
	"sort"

	"github.com/phillip-england/payrollsync/internal/payroll"
)

type DateRange struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// Summary is the headline view of a consolidation.
type Summary struct {
	TotalEmployees int                          `json:"total_employees"`
	TotalEntries   int                          `json:"total_entries"`
	TotalHours     float64                      `json:"total_hours"`
	HoursByType    map[payroll.HourType]float64 `json:"hours_by_type"`
	Regions        []string                     `json:"unique_regions"`
	PayPeriodEnd   string                       `json:"pay_period_end_date"`
	DateRange      DateRange                    `json:"date_range"`
}

func Summarize(data *payroll.PayrollData) Summary {
	end := payroll.FormatDate(data.PayPeriodEnd())
	s := Summary{
		HoursByType:  map[payroll.HourType]float64{},
		PayPeriodEnd: end,
		DateRange:    DateRange{Start: end, End: end},
	}
	regions := map[string]struct{}{}
	var first, last string
	for _, ts := range data.Timesheets() {
		s.TotalEmployees++
		for _, e := range ts.Entries() {
			s.TotalEntries++
			s.TotalHours += e.Hours()
			s.HoursByType[e.HourType()] += e.Hours()
			regions[e.Region()] = struct{}{}
			d := payroll.FormatDate(e.Date())
			if first == "" || d < first {
				first = d
			}
			if d > last {
				last = d
			}
		}
	}
	if s.TotalEntries > 0 {
		s.DateRange = DateRange{Start: first, End: last}
	}
	for r := range regions {
		s.Regions = append(s.Regions, r)
	}
	sort.Strings(s.Regions)
	return s
}

type EmployeeOvertime struct {
	Name          string  `json:"employee_name"`
	Hours         float64 `json:"overtime_hours"`
	HasCustomRate bool    `json:"has_custom_rate"`
}

type OvertimeSummary struct {
	Employees      []EmployeeOvertime `json:"employees_with_overtime"`
	TotalHours     float64            `json:"total_overtime_hours"`
	WithCustomRate []string           `json:"employees_with_custom_rates"`
	WithoutRate    []string           `json:"employees_without_custom_rates"`
}

func SummarizeOvertime(data *payroll.PayrollData) OvertimeSummary {
	var s OvertimeSummary
	for _, ts := range data.Timesheets() {
		var hours float64
		custom := false
		for _, e := range ts.Entries() {
			if e.HourType() != payroll.Overtime {
				continue
			}
			hours += e.Hours()
			if _, ok := e.OvertimeRate(); ok {
				custom = true
			}
		}
		if hours <= 0 {
			continue
		}
		s.Employees = append(s.Employees, EmployeeOvertime{Name: ts.Name(), Hours: hours, HasCustomRate: custom})
		s.TotalHours += hours
		if custom {
			s.WithCustomRate = append(s.WithCustomRate, ts.Name())
		} else {
			s.WithoutRate = append(s.WithoutRate, ts.Name())
		}
	}
	return s
}
