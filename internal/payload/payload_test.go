package payload

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func march(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func entry(t *testing.T, date time.Time, region string, hours float64, ht payroll.HourType, rate *float64) payroll.DailyEntry {
	t.Helper()
	e, err := payroll.NewDailyEntry(payroll.EntryParams{
		Date:          date,
		Region:        region,
		Hours:         hours,
		HourType:      ht,
		OvertimeRate:  rate,
		RegionInvalid: region == payroll.UnknownRegion,
	})
	require.NoError(t, err)
	return e
}

func janeTimesheet(t *testing.T) *payroll.EmployeeTimesheet {
	rate := 45.5
	ts, err := payroll.NewEmployeeTimesheet("Jane Citizen", []payroll.DailyEntry{
		entry(t, march(4), "North", 7.333, payroll.Regular, nil),
		entry(t, march(4), "North", 0.5, payroll.Regular, nil),
		entry(t, march(5), "North", 8, payroll.Holiday, nil),
		entry(t, march(10), "North", 5, payroll.Overtime, &rate),
		entry(t, march(10), "Depot", 2.5, payroll.Travel, nil),
	}, march(10))
	require.NoError(t, err)
	return ts.WithIdentity("emp-1", "cal-1")
}

func fullMappings() Mappings {
	return Mappings{
		Tracking: map[string]*string{"North": strPtr("trk-north"), "Depot": nil},
		Earnings: map[payroll.HourType]string{
			payroll.Regular:  "er-regular",
			payroll.Overtime: "er-overtime",
			payroll.Holiday:  "er-holiday",
			payroll.Travel:   "er-travel",
		},
	}
}

func TestBuild(t *testing.T) {
	got, err := NewBuilder().Build(context.Background(), janeTimesheet(t), fullMappings())
	require.NoError(t, err)

	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.Equal(t, "cal-1", got.PayrollCalendarID)
	assert.Equal(t, "2024-03-04", got.StartDate)
	assert.Equal(t, "2024-03-10", got.EndDate)
	assert.Equal(t, StatusDraft, got.Status)

	rate := 45.5
	assert.Equal(t, []Line{
		{Date: "2024-03-04", EarningsRateID: "er-regular", NumberOfUnits: 7.83, TrackingItemID: "trk-north"},
		{Date: "2024-03-05", EarningsRateID: "er-holiday", NumberOfUnits: 8, TrackingItemID: "trk-north"},
		{Date: "2024-03-10", EarningsRateID: "er-travel", NumberOfUnits: 2.5},
		{Date: "2024-03-10", EarningsRateID: "er-overtime", NumberOfUnits: 5, TrackingItemID: "trk-north", RatePerUnit: &rate},
	}, got.TimesheetLines)
}

func TestBuildJSONShape(t *testing.T) {
	got, err := NewBuilder().Build(context.Background(), janeTimesheet(t), fullMappings())
	require.NoError(t, err)
	raw, err := json.Marshal(got)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"PayrollCalendarID", "EmployeeID", "StartDate", "EndDate", "Status", "TimesheetLines"} {
		assert.Contains(t, decoded, key)
	}
	lines := decoded["TimesheetLines"].([]any)
	travel := lines[2].(map[string]any)
	assert.NotContains(t, travel, "TrackingItemID")
	assert.NotContains(t, travel, "RatePerUnit")
}

func TestBuildReportsEveryMissingMapping(t *testing.T) {
	m := fullMappings()
	delete(m.Tracking, "Depot")
	delete(m.Earnings, payroll.Travel)
	delete(m.Earnings, payroll.Holiday)

	_, err := NewBuilder().Build(context.Background(), janeTimesheet(t), m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrMapping))

	var merr *payroll.MappingError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, []string{"Depot"}, merr.MissingRegions)
	assert.Equal(t, []payroll.HourType{payroll.Holiday, payroll.Travel}, merr.MissingHourTypes)
}

func TestBuildRequiresEmployeeID(t *testing.T) {
	ts := janeTimesheet(t).WithIdentity("", "")
	_, err := NewBuilder().Build(context.Background(), ts, fullMappings())
	assert.True(t, errors.Is(err, payroll.ErrBusinessRule))
}

func TestBuildCollapsesMixedPeriodToOneWeek(t *testing.T) {
	ts, err := payroll.NewEmployeeTimesheet("Jane Citizen", []payroll.DailyEntry{
		entry(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), "North", 8, payroll.Regular, nil),
		entry(t, march(10), "North", 8, payroll.Regular, nil),
	}, march(10))
	require.NoError(t, err)

	got, err := NewBuilder().Build(context.Background(), ts.WithIdentity("emp-1", ""), fullMappings())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", got.StartDate)
	assert.Equal(t, "2024-01-08", got.EndDate)
	assert.Empty(t, got.PayrollCalendarID)
}

func TestBuildBatchCollectsFailures(t *testing.T) {
	good := janeTimesheet(t)
	bad := janeTimesheet(t).WithIdentity("", "")

	batch, err := NewBuilder().BuildBatch(context.Background(), []*payroll.EmployeeTimesheet{good}, fullMappings())
	require.NoError(t, err)
	assert.Len(t, batch.Timesheets, 1)

	_, err = NewBuilder().BuildBatch(context.Background(), []*payroll.EmployeeTimesheet{good, bad, bad}, fullMappings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrBusinessRule))
}

func TestValidate(t *testing.T) {
	b := NewBuilder()
	problems := b.Validate(Timesheet{})
	assert.ElementsMatch(t, []string{
		"Missing required field: EmployeeID",
		"Missing required field: StartDate",
		"Missing required field: EndDate",
		"Missing required field: TimesheetLines",
	}, problems)

	ts := Timesheet{
		EmployeeID: "emp-1",
		StartDate:  "2024-03-04",
		EndDate:    "10/03/2024",
		TimesheetLines: []Line{
			{Date: "2024-03-04", EarningsRateID: "er", NumberOfUnits: -1},
			{Date: "yesterday", NumberOfUnits: 1},
		},
	}
	assert.ElementsMatch(t, []string{
		"Invalid date format for EndDate: 10/03/2024",
		"Line 1: NumberOfUnits must be a non-negative number",
		"Line 2: Invalid date format: yesterday",
		"Line 2: Missing required field: EarningsRateID",
	}, b.Validate(ts))
}

func TestValidateStrictIDs(t *testing.T) {
	b := NewBuilder()
	b.StrictIDs = true
	ts := Timesheet{
		EmployeeID:     "emp-1",
		StartDate:      "2024-03-04",
		EndDate:        "2024-03-10",
		TimesheetLines: []Line{{Date: "2024-03-04", EarningsRateID: "4f0ad7b4-5c3e-4a53-9d0c-0b5cbb3e6d8a", NumberOfUnits: 8, TrackingItemID: "north"}},
	}
	assert.Equal(t, []string{
		"EmployeeID must be a GUID: emp-1",
		"Line 1: TrackingItemID must be a GUID: north",
	}, b.Validate(ts))

	ts.EmployeeID = "9b2c1d6e-2f4a-4c7b-8e1d-3a5f6b7c8d9e"
	ts.TimesheetLines[0].TrackingItemID = ""
	assert.Empty(t, b.Validate(ts))
}

func TestDryRunAndSubmittable(t *testing.T) {
	rate := 45.5
	mixed, err := payroll.NewEmployeeTimesheet("Bob Builder", []payroll.DailyEntry{
		entry(t, march(4), "North", 8, payroll.Regular, nil),
		entry(t, march(5), payroll.UnknownRegion, 8, payroll.Regular, nil),
	}, march(10))
	require.NoError(t, err)
	onlyUnknown, err := payroll.NewEmployeeTimesheet("Carl Jones", []payroll.DailyEntry{
		entry(t, march(10), payroll.UnknownRegion, 3, payroll.Overtime, &rate),
	}, march(10))
	require.NoError(t, err)

	data, err := payroll.NewPayrollData(march(10), []*payroll.EmployeeTimesheet{
		mixed.WithIdentity("emp-2", ""),
		onlyUnknown,
		janeTimesheet(t),
	})
	require.NoError(t, err)

	m := fullMappings()
	m.Tracking[payroll.UnknownRegion] = nil
	preview := NewBuilder().DryRun(context.Background(), data, m)
	assert.Len(t, preview.Batch.Timesheets, 2)
	require.Len(t, preview.Errors, 1)
	assert.Contains(t, preview.Errors[0], "Carl Jones")
	assert.False(t, preview.OK())

	timesheets, skipped := Submittable(data)
	assert.Equal(t, []string{"Carl Jones"}, skipped)
	require.Len(t, timesheets, 2)
	assert.Equal(t, 1, timesheets[0].Len())
	assert.Equal(t, "emp-2", timesheets[0].EmployeeID())
}
