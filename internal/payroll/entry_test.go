package payroll

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDailyEntryHoursBounds(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		ok    bool
	}{
		{"zero", 0, false},
		{"negative", -1, false},
		{"fraction", 0.25, true},
		{"full day", 24, true},
		{"over a day", 24.01, false},
		{"not a number", math.NaN(), false},
		{"infinite", math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewDailyEntry(EntryParams{Date: day(4), Region: "North", Hours: tt.hours, HourType: Regular})
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBusinessRule))
				return
			}
			require.NoError(t, err)
			assert.Greater(t, e.Hours(), 0.0)
			assert.LessOrEqual(t, e.Hours(), MaxHoursPerDay)
		})
	}
}

func TestNewDailyEntryRegionRules(t *testing.T) {
	_, err := NewDailyEntry(EntryParams{Date: day(4), Region: "  ", Hours: 8, HourType: Regular})
	require.ErrorIs(t, err, ErrBusinessRule)

	_, err = NewDailyEntry(EntryParams{Date: day(4), Region: UnknownRegion, Hours: 8, HourType: Regular})
	require.ErrorIs(t, err, ErrBusinessRule, "Unknown needs the invalid marker")

	e, err := NewDailyEntry(EntryParams{Date: day(4), Region: UnknownRegion, OriginalRegion: "South", Hours: 8, HourType: Regular, RegionInvalid: true})
	require.NoError(t, err)
	assert.False(t, e.RegionValid())
	assert.Equal(t, "South", e.OriginalRegion())
}

func TestDailyEntryIsImmutable(t *testing.T) {
	rate := 32.5
	e, err := NewDailyEntry(EntryParams{Date: day(4), Region: "North", Hours: 8, HourType: Overtime, OvertimeRate: &rate})
	require.NoError(t, err)
	rate = 1

	got, ok := e.OvertimeRate()
	require.True(t, ok)
	assert.Equal(t, 32.5, got)

	shorter, err := e.WithHours(3)
	require.NoError(t, err)
	assert.Equal(t, 8.0, e.Hours())
	assert.Equal(t, 3.0, shorter.Hours())

	_, err = e.WithHours(0)
	assert.ErrorIs(t, err, ErrBusinessRule)
}

func TestQuarantineKeepsOriginalRegion(t *testing.T) {
	e, err := NewDailyEntry(EntryParams{Date: day(4), Region: "South", Hours: 6, HourType: Regular})
	require.NoError(t, err)

	q := e.Quarantine()
	assert.Equal(t, UnknownRegion, q.Region())
	assert.Equal(t, "South", q.OriginalRegion())
	assert.False(t, q.RegionValid())
	assert.Equal(t, q, q.Quarantine())
}

func TestParseHourType(t *testing.T) {
	ht, err := ParseHourType(" overtime ")
	require.NoError(t, err)
	assert.Equal(t, Overtime, ht)
	assert.Equal(t, "Overtime Hours", ht.Label())

	_, err = ParseHourType("SICK")
	assert.ErrorIs(t, err, ErrBusinessRule)
}

func TestNewDailyEntryRejectsBadOvertimeRates(t *testing.T) {
	for _, rate := range []float64{-1, math.NaN(), math.Inf(1)} {
		r := rate
		_, err := NewDailyEntry(EntryParams{Date: day(4), Region: "North", Hours: 8, HourType: Overtime, OvertimeRate: &r})
		assert.ErrorIs(t, err, ErrBusinessRule, "rate %v", rate)
	}
}
