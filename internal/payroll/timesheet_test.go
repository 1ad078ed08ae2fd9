package payroll

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEntry(t *testing.T, p EntryParams) DailyEntry {
	t.Helper()
	e, err := NewDailyEntry(p)
	require.NoError(t, err)
	return e
}

func TestNewEmployeeTimesheetRejectsEntriesAfterEnd(t *testing.T) {
	late := mustEntry(t, EntryParams{Date: day(15), Region: "North", Hours: 8, HourType: Regular})
	_, err := NewEmployeeTimesheet("Jane Roe", []DailyEntry{late}, day(14))
	require.ErrorIs(t, err, ErrBusinessRule)

	_, err = NewEmployeeTimesheet("Jane Roe", nil, day(14))
	require.ErrorIs(t, err, ErrBusinessRule)
}

func TestNewEmployeeTimesheetSortsEntries(t *testing.T) {
	entries := []DailyEntry{
		mustEntry(t, EntryParams{Date: day(5), Region: "North", Hours: 8, HourType: Regular}),
		mustEntry(t, EntryParams{Date: day(3), Region: "West", Hours: 7, HourType: Regular}),
		mustEntry(t, EntryParams{Date: day(5), Region: "North", Hours: 2, HourType: Overtime}),
	}
	ts, err := NewEmployeeTimesheet("Jane Roe", entries, day(7))
	require.NoError(t, err)

	got := ts.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, day(3), got[0].Date())
	assert.Equal(t, Regular, got[1].HourType(), "stable sort keeps source order within a day")
	assert.Equal(t, Overtime, got[2].HourType())
	assert.Equal(t, 17.0, ts.TotalHours())
	assert.Equal(t, 15.0, ts.TotalHours(Regular))
	assert.Equal(t, []string{"North", "West"}, ts.Regions())
	assert.Equal(t, []HourType{Regular, Overtime}, ts.HourTypes())
	assert.Len(t, ts.EntriesByDate(day(5)), 2)
}

func TestNewPayrollDataSharedEnd(t *testing.T) {
	e := mustEntry(t, EntryParams{Date: day(3), Region: "North", Hours: 8, HourType: Regular})
	a, err := NewEmployeeTimesheet("A Person", []DailyEntry{e}, day(7))
	require.NoError(t, err)
	b, err := NewEmployeeTimesheet("B Person", []DailyEntry{e}, day(8))
	require.NoError(t, err)

	_, err = NewPayrollData(day(7), []*EmployeeTimesheet{a, b})
	require.ErrorIs(t, err, ErrBusinessRule)

	pd, err := NewPayrollData(day(7), []*EmployeeTimesheet{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"A Person"}, pd.Names())
}

func TestDocumentRoundTrip(t *testing.T) {
	rate := 40.0
	entries := []DailyEntry{
		mustEntry(t, EntryParams{Date: day(3), Region: "North", Hours: 8, HourType: Regular}),
		mustEntry(t, EntryParams{Date: day(7), Region: "North", Hours: 4, HourType: Overtime, OvertimeRate: &rate}),
		mustEntry(t, EntryParams{Date: day(4), Region: "South", Hours: 8, HourType: Regular}).Quarantine(),
	}
	ts, err := NewEmployeeTimesheet("Jane Roe", entries, day(7))
	require.NoError(t, err)
	pd, err := NewPayrollData(day(7), []*EmployeeTimesheet{ts.WithIdentity("emp-1", "cal-1")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(pd.Document()))
	doc, err := DecodeDocument(&buf)
	require.NoError(t, err)

	back, err := FromDocument(doc)
	require.NoError(t, err)
	got, ok := back.Timesheet("Jane Roe")
	require.True(t, ok)
	assert.Equal(t, "emp-1", got.EmployeeID())
	assert.Equal(t, "cal-1", got.PayrollCalendarID())
	require.Len(t, got.EntriesByRegion(UnknownRegion), 1)
	assert.Equal(t, "South", got.EntriesByRegion(UnknownRegion)[0].OriginalRegion())
}
