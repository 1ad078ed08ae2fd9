// Package payload turns canonical timesheets into payroll API timesheet
// requests.
package payload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/shopspring/decimal"
)

const StatusDraft = "Draft"

type Line struct {
	Date           string   `json:"Date"`
	EarningsRateID string   `json:"EarningsRateID"`
	NumberOfUnits  float64  `json:"NumberOfUnits"`
	TrackingItemID string   `json:"TrackingItemID,omitempty"`
	RatePerUnit    *float64 `json:"RatePerUnit,omitempty"`
}

type Timesheet struct {
	PayrollCalendarID string `json:"PayrollCalendarID,omitempty"`
	EmployeeID        string `json:"EmployeeID"`
	StartDate         string `json:"StartDate"`
	EndDate           string `json:"EndDate"`
	Status            string `json:"Status"`
	TimesheetLines    []Line `json:"TimesheetLines"`
}

type Batch struct {
	Timesheets []Timesheet `json:"Timesheets"`
}

// Mappings resolve regions to tracking option IDs and hour types to
// earnings rate IDs. A region mapped to nil is known but sent untracked.
type Mappings struct {
	Tracking map[string]*string          `json:"regions" yaml:"regions"`
	Earnings map[payroll.HourType]string `json:"earnings" yaml:"earnings"`
}

// Missing returns every region and hour type in ts that has no mapping.
func (m Mappings) Missing(ts *payroll.EmployeeTimesheet) *payroll.MappingError {
	merr := &payroll.MappingError{Employee: ts.Name()}
	for _, region := range ts.Regions() {
		if _, ok := m.Tracking[region]; !ok {
			merr.MissingRegions = append(merr.MissingRegions, region)
		}
	}
	for _, ht := range ts.HourTypes() {
		if id, ok := m.Earnings[ht]; !ok || id == "" {
			merr.MissingHourTypes = append(merr.MissingHourTypes, ht)
		}
	}
	merr.Sort()
	return merr
}

type Builder struct {
	// MixedPeriodDays is the entry span above which a single week is sent.
	MixedPeriodDays int
	// StrictIDs makes Validate require GUID-shaped identifiers.
	StrictIDs bool
}

func NewBuilder() *Builder {
	return &Builder{MixedPeriodDays: 30}
}

// Build converts one timesheet. It fails when the employee has no external
// ID, has no entries or when any mapping is missing.
func (b *Builder) Build(ctx context.Context, ts *payroll.EmployeeTimesheet, m Mappings) (Timesheet, error) {
	if ts.EmployeeID() == "" {
		return Timesheet{}, &payroll.BusinessRuleError{Field: "employee_id", Value: ts.Name(), Message: fmt.Sprintf("employee %s is missing an external employee ID", ts.Name())}
	}
	if ts.Len() == 0 {
		return Timesheet{}, &payroll.BusinessRuleError{Field: "daily_entries", Value: ts.Name(), Message: fmt.Sprintf("employee %s has no daily entries", ts.Name())}
	}
	if merr := m.Missing(ts); !merr.Empty() {
		return Timesheet{}, merr
	}

	start, end := b.window(ctx, ts)
	return Timesheet{
		PayrollCalendarID: ts.PayrollCalendarID(),
		EmployeeID:        ts.EmployeeID(),
		StartDate:         payroll.FormatDate(start),
		EndDate:           payroll.FormatDate(end),
		Status:            StatusDraft,
		TimesheetLines:    lines(ts, m),
	}, nil
}

// window runs from the first entry to the pay-period end, or covers one week
// from the first entry when the entries span a mixed period.
func (b *Builder) window(ctx context.Context, ts *payroll.EmployeeTimesheet) (time.Time, time.Time) {
	first, last := ts.Span()
	end := ts.PayPeriodEnd()
	if payroll.DaysBetween(first, last) > b.MixedPeriodDays {
		week := first.AddDate(0, 0, 6)
		logging.FromContext(ctx).Info().
			Str("employee", ts.Name()).
			Str("first", payroll.FormatDate(first)).
			Str("last", payroll.FormatDate(last)).
			Str("ignored_end", payroll.FormatDate(end)).
			Str("end", payroll.FormatDate(week)).
			Msg("mixed-period entries, submitting a single week")
		return first, week
	}
	return first, end
}

type lineKey struct {
	date     time.Time
	region   string
	hourType payroll.HourType
}

type lineGroup struct {
	hours decimal.Decimal
	first payroll.DailyEntry
}

func lines(ts *payroll.EmployeeTimesheet, m Mappings) []Line {
	groups := map[lineKey]*lineGroup{}
	var keys []lineKey
	for _, e := range ts.Entries() {
		k := lineKey{e.Date(), e.Region(), e.HourType()}
		g, ok := groups[k]
		if !ok {
			g = &lineGroup{first: e}
			groups[k] = g
			keys = append(keys, k)
		}
		g.hours = g.hours.Add(decimal.NewFromFloat(e.Hours()))
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.region != b.region {
			return a.region < b.region
		}
		return a.hourType < b.hourType
	})

	out := []Line{}
	for _, k := range keys {
		g := groups[k]
		units := g.hours.Round(2)
		if !units.IsPositive() {
			continue
		}
		line := Line{
			Date:           payroll.FormatDate(k.date),
			EarningsRateID: m.Earnings[k.hourType],
			NumberOfUnits:  units.InexactFloat64(),
		}
		if id := m.Tracking[k.region]; id != nil && *id != "" {
			line.TrackingItemID = *id
		}
		if rate, ok := g.first.OvertimeRate(); ok && k.hourType == payroll.Overtime {
			line.RatePerUnit = &rate
		}
		out = append(out, line)
	}
	return out
}

// BuildBatch converts every timesheet. Failures are collected so one call
// reports every employee that cannot be sent.
func (b *Builder) BuildBatch(ctx context.Context, timesheets []*payroll.EmployeeTimesheet, m Mappings) (Batch, error) {
	batch := Batch{Timesheets: []Timesheet{}}
	var errs []error
	for _, ts := range timesheets {
		t, err := b.Build(ctx, ts, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("build timesheet for %s: %w", ts.Name(), err))
			continue
		}
		batch.Timesheets = append(batch.Timesheets, t)
	}
	if len(errs) > 0 {
		return Batch{}, errors.Join(errs...)
	}
	logging.FromContext(ctx).Info().Int("timesheets", len(batch.Timesheets)).Msg("built timesheet batch")
	return batch, nil
}

// WithoutUnknown drops quarantined entries, which cannot be sent. ok is false
// when nothing is left.
func WithoutUnknown(ts *payroll.EmployeeTimesheet) (*payroll.EmployeeTimesheet, bool) {
	var kept []payroll.DailyEntry
	for _, e := range ts.Entries() {
		if e.RegionValid() {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(ts.Entries()) {
		return ts, true
	}
	if len(kept) == 0 {
		return nil, false
	}
	out, err := ts.WithEntries(kept)
	if err != nil {
		return nil, false
	}
	return out, true
}
