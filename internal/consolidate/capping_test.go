package consolidate

import (
	"context"
	"math"
	"testing"

	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteWith(entries ...sheets.RawEntry) *sheets.Intermediate {
	site := sheets.NewIntermediate(sheets.KindSite)
	site.Employees = []sheets.RawEmployee{{Name: "Jane Citizen", Entries: entries}}
	return site
}

func regular(d int, hours float64) sheets.RawEntry {
	return sheets.RawEntry{Date: march(d), Region: "North", Hours: hours, HourType: payroll.Regular}
}

func overtime(d int, hours float64) sheets.RawEntry {
	return sheets.RawEntry{Date: march(d), Region: "North", Hours: hours, HourType: payroll.Overtime}
}

func regularTotal(site *sheets.Intermediate) float64 {
	total := 0.0
	for _, e := range site.Employees[0].Entries {
		if e.HourType == payroll.Regular {
			total += e.Hours
		}
	}
	return total
}

func TestCapRegularHoursTrimsLatestFirst(t *testing.T) {
	site := siteWith(regular(4, 9), regular(5, 9), regular(6, 9), regular(7, 9), regular(8, 9), overtime(10, 5))

	adj := CapRegularHours(context.Background(), site, 40)
	require.Len(t, adj, 1)
	assert.Equal(t, 45.0, adj[0].RegularHours)
	assert.Equal(t, 5.0, adj[0].Removed)

	entries := site.Employees[0].Entries
	require.Len(t, entries, 6)
	assert.Equal(t, 9.0, entries[3].Hours)
	assert.Equal(t, 4.0, entries[4].Hours)
	assert.Equal(t, 40.0, regularTotal(site))
}

func TestCapRegularHoursDropsEmptiedEntries(t *testing.T) {
	site := siteWith(regular(4, 10), regular(5, 10), regular(6, 10), regular(7, 10), regular(8, 4), regular(9, 1), overtime(10, 2))

	adj := CapRegularHours(context.Background(), site, 40)
	require.Len(t, adj, 1)
	assert.Equal(t, 2, adj[0].DroppedRows)

	entries := site.Employees[0].Entries
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Greater(t, e.Hours, 0.0)
	}
	assert.Equal(t, 40.0, regularTotal(site))
}

func TestCapRegularHoursLeavesOthersAlone(t *testing.T) {
	noOvertime := siteWith(regular(4, 10), regular(5, 10), regular(6, 10), regular(7, 10), regular(8, 5))
	assert.Empty(t, CapRegularHours(context.Background(), noOvertime, 40))
	assert.Equal(t, 45.0, regularTotal(noOvertime))

	underCap := siteWith(regular(4, 8), regular(5, 8), overtime(10, 3))
	assert.Empty(t, CapRegularHours(context.Background(), underCap, 40))
	assert.Len(t, underCap.Employees[0].Entries, 3)

	assert.Nil(t, CapRegularHours(context.Background(), nil, 40))
}

func TestCapRegularHoursSkipsNonFiniteHours(t *testing.T) {
	site := siteWith(regular(4, 20), regular(5, 25), regular(6, math.NaN()), overtime(10, 2))

	var adj []CapAdjustment
	require.NotPanics(t, func() { adj = CapRegularHours(context.Background(), site, 40) })
	require.Len(t, adj, 1)
	assert.Equal(t, 5.0, adj[0].Removed)

	entries := site.Employees[0].Entries
	require.Len(t, entries, 4)
	assert.Equal(t, 20.0, entries[1].Hours)
	assert.True(t, math.IsNaN(entries[2].Hours))
}
