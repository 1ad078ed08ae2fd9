package consolidate

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func march(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func rate(v float64) *float64 { return &v }

func fixtureInput() Input {
	end := march(10)
	site := sheets.NewIntermediate(sheets.KindSite)
	site.PayPeriodEnd = &end
	site.Employees = []sheets.RawEmployee{
		{Name: "Jane Citizen", Entries: []sheets.RawEntry{
			{Date: march(4), Region: "North", Hours: 8, HourType: payroll.Regular},
			{Date: march(5), Region: "North", Hours: 8, HourType: payroll.Holiday},
			{Date: march(6), Region: "Southside", Hours: 8, HourType: payroll.Regular},
			{Date: march(10), Region: "North", Hours: 5, HourType: payroll.Overtime},
		}},
		{Name: "Bob Builder", Entries: []sheets.RawEntry{
			{Date: march(4), Region: "North", Hours: 7.5, HourType: payroll.Regular},
		}},
	}

	travel := sheets.NewIntermediate(sheets.KindTravel)
	travel.Employees = []sheets.RawEmployee{
		{Name: "Jane Citizen", Entries: []sheets.RawEntry{{Date: payroll.SentinelDate, Region: "Depot", Hours: 2.5, HourType: payroll.Travel}}},
		{Name: "Bob Builder", Entries: []sheets.RawEntry{{Date: payroll.SentinelDate, Region: "Travel", Hours: 6, HourType: payroll.Travel}}},
	}

	overtime := sheets.NewIntermediate(sheets.KindOvertime)
	overtime.Overtime["jane citizen"] = sheets.OvertimeRate{HasCustomRate: true, Rate: rate(45.5)}
	overtime.Overtime["Bob Builder"] = sheets.OvertimeRate{HasCustomRate: false, Rate: rate(30)}

	return Input{
		Site:         site,
		Travel:       travel,
		Overtime:     overtime,
		ValidRegions: map[string]struct{}{"North": {}, "Depot": {}, "Travel": {}},
	}
}

func TestConsolidate(t *testing.T) {
	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), fixtureInput())
	require.NoError(t, err)

	data := res.Data
	assert.Equal(t, march(10), data.PayPeriodEnd())
	assert.Equal(t, []string{"Bob Builder", "Jane Citizen"}, data.Names())
	assert.Empty(t, res.Warnings)
	assert.False(t, res.Extended)

	jane, ok := data.Timesheet("Jane Citizen")
	require.True(t, ok)
	entries := jane.Entries()
	require.Len(t, entries, 5)

	assert.Equal(t, payroll.UnknownRegion, entries[2].Region())
	assert.Equal(t, "Southside", entries[2].OriginalRegion())
	assert.False(t, entries[2].RegionValid())

	assert.Equal(t, payroll.Overtime, entries[3].HourType())
	r, ok := entries[3].OvertimeRate()
	assert.True(t, ok)
	assert.Equal(t, 45.5, r)

	assert.Equal(t, payroll.Travel, entries[4].HourType())
	assert.Equal(t, march(10), entries[4].Date())

	assert.Equal(t, []string{"Southside"}, res.UnknownRegions.Regions)
	assert.Equal(t, []UnknownRegionEntry{{EmployeeName: "Jane Citizen", OriginalRegion: "Southside", EntryDate: "2024-03-06", Hours: 8}}, res.UnknownRegions.Entries)
}

func TestConsolidateWithoutRegionValidation(t *testing.T) {
	in := fixtureInput()
	in.ValidRegions = nil
	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.UnknownRegions.Empty())
}

func TestConsolidateNameMapping(t *testing.T) {
	in := fixtureInput()
	in.Names = MapNames{"Jane Citizen": "Jane Citizen-Smith"}
	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Jane Citizen-Smith"}, res.Data.Names())
	assert.Equal(t, []string{"Bob Builder"}, res.Excluded)

	ts, _ := res.Data.Timesheet("Jane Citizen-Smith")
	// the register is keyed by the source name
	for _, e := range ts.Entries() {
		if e.HourType() == payroll.Overtime {
			r, ok := e.OvertimeRate()
			assert.True(t, ok)
			assert.Equal(t, 45.5, r)
		}
	}
}

func TestConsolidateFailures(t *testing.T) {
	c := NewConsolidator(DefaultRules())

	in := fixtureInput()
	in.Site.PayPeriodEnd = nil
	_, err := c.Consolidate(context.Background(), in)
	assert.True(t, errors.Is(err, payroll.ErrStructural))

	in = fixtureInput()
	in.Travel.Kind = sheets.KindSite
	_, err = c.Consolidate(context.Background(), in)
	assert.True(t, errors.Is(err, payroll.ErrStructural))

	in = fixtureInput()
	in.Names = MapNames{}
	_, err = c.Consolidate(context.Background(), in)
	assert.True(t, errors.Is(err, payroll.ErrBusinessRule))

	in = fixtureInput()
	in.Site.Employees[1].Entries = append(in.Site.Employees[1].Entries,
		sheets.RawEntry{Date: time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC), Region: "North", Hours: 8, HourType: payroll.Regular})
	_, err = c.Consolidate(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrBusinessRule))
	assert.Contains(t, err.Error(), "date range too large")
}

func TestConsolidateMixedPeriodExtendsEnd(t *testing.T) {
	in := fixtureInput()
	early := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	in.Site.PayPeriodEnd = &early
	in.Site.Employees[1].Entries = append(in.Site.Employees[1].Entries,
		sheets.RawEntry{Date: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), Region: "North", Hours: 8, HourType: payroll.Regular})

	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, march(10), res.Data.PayPeriodEnd())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "mixed pay periods")
}

func TestConsolidateWarnsOutsideWindow(t *testing.T) {
	in := fixtureInput()
	in.Site.Employees[1].Entries = append(in.Site.Employees[1].Entries,
		sheets.RawEntry{Date: time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC), Region: "North", Hours: 8, HourType: payroll.Regular})

	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1 entries have dates outside")
}

func TestExportDedupesAndHidesUnknownHours(t *testing.T) {
	in := fixtureInput()
	bob := &in.Site.Employees[1]
	bob.Entries = append(bob.Entries,
		sheets.RawEntry{Date: march(4), Region: "North", Hours: 7.5, HourType: payroll.Regular},
		sheets.RawEntry{Date: march(5), Region: "Nowhere", Hours: 3, HourType: payroll.Regular},
		sheets.RawEntry{Date: march(5), Region: "Elsewhere", Hours: 4, HourType: payroll.Regular},
	)
	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), in)
	require.NoError(t, err)

	ts, _ := res.Data.Timesheet("Bob Builder")
	assert.Equal(t, 5, ts.Len())

	doc := Export(res.Data)
	assert.Equal(t, "2024-03-10", doc.PayPeriodEndDate)
	require.Len(t, doc.Employees, 2)
	entries := doc.Employees[0].DailyEntries
	require.Len(t, entries, 3)
	assert.Equal(t, "North", entries[0].RegionName)
	assert.Equal(t, payroll.UnknownRegion, entries[1].RegionName)
	assert.Equal(t, 0.0, entries[1].Hours)
	assert.Equal(t, payroll.Travel, entries[2].HourType)

	assert.Equal(t, doc, Export(res.Data))
	assert.Equal(t, []string{"Elsewhere", "Nowhere", "Southside"}, res.UnknownRegions.Regions)
	assert.Len(t, res.UnknownRegions.Entries, 3)
}

func TestSummaries(t *testing.T) {
	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), fixtureInput())
	require.NoError(t, err)

	s := Summarize(res.Data)
	assert.Equal(t, 2, s.TotalEmployees)
	assert.Equal(t, 7, s.TotalEntries)
	assert.InDelta(t, 45.0, s.TotalHours, 1e-9)
	assert.InDelta(t, 23.5, s.HoursByType[payroll.Regular], 1e-9)
	assert.Equal(t, []string{"Depot", "North", "Travel", payroll.UnknownRegion}, s.Regions)
	assert.Equal(t, DateRange{Start: "2024-03-04", End: "2024-03-10"}, s.DateRange)

	ot := SummarizeOvertime(res.Data)
	assert.Equal(t, 5.0, ot.TotalHours)
	assert.Equal(t, []string{"Jane Citizen"}, ot.WithCustomRate)
	assert.Empty(t, ot.WithoutRate)
}

func TestUnknownRegionExports(t *testing.T) {
	res, err := NewConsolidator(DefaultRules()).Consolidate(context.Background(), fixtureInput())
	require.NoError(t, err)

	var csvBuf bytes.Buffer
	require.NoError(t, res.UnknownRegions.WriteCSV(&csvBuf))
	assert.Equal(t, "employee_name,original_region,entry_date,hours\nJane Citizen,Southside,2024-03-06,8\n", csvBuf.String())

	var xlsxBuf bytes.Buffer
	require.NoError(t, res.UnknownRegions.WriteXLSX(&xlsxBuf))
	f, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(unknownEntriesSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Southside", v)
	v, err = f.GetCellValue(unknownRegionsSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Southside", v)
}
