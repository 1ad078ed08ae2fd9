// Package consolidate merges the three ingested sources into canonical
// per-employee timesheets.
package consolidate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/sheets"
)

// Rules are the date-window constants.
type Rules struct {
	// MixedPeriodDays is the site span above which the pay-period end moves
	// to the latest site date and the window check is relaxed.
	MixedPeriodDays int `mapstructure:"mixed_period_days" yaml:"mixed_period_days"`
	// MaxSpanDays is the largest tolerated span across all dates.
	MaxSpanDays int `mapstructure:"max_span_days" yaml:"max_span_days"`
	// WindowDays is how far before the end date an entry may fall without a warning.
	WindowDays int `mapstructure:"window_days" yaml:"window_days"`
	// RegularHoursCap is the weekly regular-hours limit for employees with overtime.
	RegularHoursCap float64 `mapstructure:"regular_hours_cap" yaml:"regular_hours_cap"`
}

func DefaultRules() Rules {
	return Rules{MixedPeriodDays: 30, MaxSpanDays: 365, WindowDays: 14, RegularHoursCap: 40}
}

// NameMapper turns a source name into its canonical form. ok=false leaves the
// employee out of the result.
type NameMapper interface {
	Canonical(name string) (canonical string, ok bool)
}

// NameMapperFunc adapts a function to NameMapper.
type NameMapperFunc func(string) (string, bool)

func (f NameMapperFunc) Canonical(name string) (string, bool) { return f(name) }

// ExactNames keeps every name as it appears in the source.
var ExactNames = NameMapperFunc(func(name string) (string, bool) { return name, true })

// MapNames maps listed names and drops the rest.
type MapNames map[string]string

func (m MapNames) Canonical(name string) (string, bool) {
	canonical, ok := m[name]
	return canonical, ok
}

// Input is everything one consolidation needs. ValidRegions nil disables
// region validation.
type Input struct {
	Site         *sheets.Intermediate
	Travel       *sheets.Intermediate
	Overtime     *sheets.Intermediate
	ValidRegions map[string]struct{}
	Names        NameMapper
}

type Result struct {
	Data           *payroll.PayrollData `json:"-"`
	UnknownRegions UnknownRegionReport  `json:"unknown_regions"`
	Warnings       []string             `json:"warnings"`
	// Excluded lists source names the mapper rejected.
	Excluded []string `json:"excluded_employees"`
	// Extended is set when a mixed-period site file moved the end date.
	Extended bool `json:"pay_period_extended"`
}

type Consolidator struct {
	rules Rules
}

func NewConsolidator(rules Rules) *Consolidator {
	return &Consolidator{rules: rules}
}

// Consolidate merges the inputs. It fails on structural problems, a missing
// end date, spans beyond MaxSpanDays and when no employee remains.
func (c *Consolidator) Consolidate(ctx context.Context, in Input) (*Result, error) {
	log := logging.FromContext(ctx)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	names := in.Names
	if names == nil {
		names = ExactNames
	}

	res := &Result{}
	end := payroll.Day(*in.Site.PayPeriodEnd)
	if first, last, ok := dateSpan(in.Site); ok && payroll.DaysBetween(first, last) > c.rules.MixedPeriodDays {
		log.Info().
			Str("first", payroll.FormatDate(first)).
			Str("last", payroll.FormatDate(last)).
			Msg("mixed-period site data, extending pay period end to the latest date")
		end = last
		res.Extended = true
	}

	warnings, err := c.checkDates(in, end)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	var order []string
	byName := map[string][]payroll.DailyEntry{}
	excluded := map[string]bool{}
	add := func(source *sheets.Intermediate, travel bool) error {
		for _, emp := range source.Employees {
			canonical, ok := names.Canonical(emp.Name)
			if !ok || strings.TrimSpace(canonical) == "" {
				if !excluded[emp.Name] {
					excluded[emp.Name] = true
					res.Excluded = append(res.Excluded, emp.Name)
				}
				continue
			}
			if _, seen := byName[canonical]; !seen {
				order = append(order, canonical)
				byName[canonical] = nil
			}
			for _, raw := range emp.Entries {
				entry, err := c.entry(raw, travel, end, canonical, emp.Name, in)
				if err != nil {
					return fmt.Errorf("employee %s: %w", canonical, err)
				}
				if !entry.RegionValid() {
					res.UnknownRegions.add(canonical, entry)
				}
				byName[canonical] = append(byName[canonical], entry)
			}
		}
		return nil
	}
	if err := add(in.Site, false); err != nil {
		return nil, err
	}
	if err := add(in.Travel, true); err != nil {
		return nil, err
	}

	sort.Strings(order)
	var timesheets []*payroll.EmployeeTimesheet
	for _, name := range order {
		entries := byName[name]
		if len(entries) == 0 {
			log.Warn().Str("employee", name).Msg("employee has no entries, skipped")
			continue
		}
		ts, err := payroll.NewEmployeeTimesheet(name, entries, end)
		if err != nil {
			return nil, err
		}
		timesheets = append(timesheets, ts)
	}
	if len(timesheets) == 0 {
		return nil, &payroll.BusinessRuleError{Field: "employees", Value: 0, Message: "no employee data found to consolidate"}
	}

	data, err := payroll.NewPayrollData(end, timesheets)
	if err != nil {
		return nil, err
	}
	res.Data = data
	res.UnknownRegions.finish()
	if len(res.UnknownRegions.Regions) > 0 {
		log.Warn().
			Strs("regions", res.UnknownRegions.Regions).
			Int("entries", len(res.UnknownRegions.Entries)).
			Msg("entries quarantined under Unknown region")
	}
	return res, nil
}

func validateInput(in Input) error {
	check := func(label string, it *sheets.Intermediate, kind sheets.Kind) error {
		if it == nil {
			return payroll.NewStructuralError(label, "data is missing", nil)
		}
		if it.Kind != kind {
			return payroll.NewStructuralError(label, fmt.Sprintf("expected kind %s, got %q", kind, it.Kind), nil)
		}
		return nil
	}
	if err := check("site timesheet", in.Site, sheets.KindSite); err != nil {
		return err
	}
	if in.Site.PayPeriodEnd == nil {
		return payroll.NewStructuralError("site timesheet", "pay period end date not found", nil)
	}
	if err := check("travel time", in.Travel, sheets.KindTravel); err != nil {
		return err
	}
	if err := check("overtime rates", in.Overtime, sheets.KindOvertime); err != nil {
		return err
	}
	if in.Overtime.Overtime == nil {
		return payroll.NewStructuralError("overtime rates", "rate register is missing", nil)
	}
	return nil
}

func (c *Consolidator) entry(raw sheets.RawEntry, travel bool, end time.Time, canonical, sourceName string, in Input) (payroll.DailyEntry, error) {
	p := payroll.EntryParams{
		Date:     raw.Date,
		Region:   strings.TrimSpace(raw.Region),
		Hours:    raw.Hours,
		HourType: raw.HourType,
	}
	if travel {
		p.HourType = payroll.Travel
		if payroll.IsSentinel(p.Date) {
			p.Date = end
		}
	}
	if p.HourType == payroll.Overtime {
		p.OvertimeRate = in.Overtime.Overtime.CustomRate(canonical)
		if p.OvertimeRate == nil && sourceName != canonical {
			p.OvertimeRate = in.Overtime.Overtime.CustomRate(sourceName)
		}
	}

	valid := p.Region != payroll.UnknownRegion
	if valid && in.ValidRegions != nil {
		_, valid = in.ValidRegions[p.Region]
	}
	if !valid {
		p.OriginalRegion = p.Region
		p.Region = payroll.UnknownRegion
		p.RegionInvalid = true
	}
	return payroll.NewDailyEntry(p)
}

// checkDates fails on spans over MaxSpanDays and warns about mixed periods
// and entries outside the pay window.
func (c *Consolidator) checkDates(in Input, end time.Time) ([]string, error) {
	var dates []time.Time
	collect := func(it *sheets.Intermediate) {
		for _, emp := range it.Employees {
			for _, e := range emp.Entries {
				if !e.Date.IsZero() && !payroll.IsSentinel(e.Date) {
					dates = append(dates, payroll.Day(e.Date))
				}
			}
		}
	}
	collect(in.Site)
	collect(in.Travel)
	if len(dates) == 0 {
		return nil, nil
	}

	first, last := bounds(dates)
	span := payroll.DaysBetween(first, last)
	if span > c.rules.MixedPeriodDays {
		if span > c.rules.MaxSpanDays {
			return nil, &payroll.BusinessRuleError{
				Field:   "date_range",
				Value:   span,
				Message: fmt.Sprintf("date range too large: %d days from %s to %s", span, payroll.FormatDate(first), payroll.FormatDate(last)),
			}
		}
		return []string{fmt.Sprintf("data spans %d days (%s to %s), which suggests mixed pay periods",
			span, payroll.FormatDate(first), payroll.FormatDate(last))}, nil
	}

	earliest := end.AddDate(0, 0, -c.rules.WindowDays)
	outside := 0
	for _, d := range dates {
		if d.Before(earliest) || d.After(end) {
			outside++
		}
	}
	if outside == 0 {
		return nil, nil
	}
	return []string{fmt.Sprintf("%d entries have dates outside the expected range %s to %s (actual %s to %s)",
		outside, payroll.FormatDate(earliest), payroll.FormatDate(end), payroll.FormatDate(first), payroll.FormatDate(last))}, nil
}

func dateSpan(it *sheets.Intermediate) (time.Time, time.Time, bool) {
	var dates []time.Time
	for _, emp := range it.Employees {
		for _, e := range emp.Entries {
			if !e.Date.IsZero() {
				dates = append(dates, payroll.Day(e.Date))
			}
		}
	}
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last := bounds(dates)
	return first, last, true
}

func bounds(dates []time.Time) (time.Time, time.Time) {
	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last
}
