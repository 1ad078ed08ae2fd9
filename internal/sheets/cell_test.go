package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCell(t *testing.T) {
	tests := []struct {
		raw  string
		want Cell
	}{
		{"", Cell{Kind: CellEmpty}},
		{"   ", Cell{Kind: CellEmpty}},
		{"HOL", Cell{Kind: CellHoliday}},
		{"hol", Cell{Kind: CellHoliday}},
		{"8", Cell{Kind: CellNumeric, Number: 8}},
		{"7,5", Cell{Kind: CellNumeric, Number: 7.5}},
		{"-1", Cell{Kind: CellNumeric, Number: -1}},
		{"Southside", Cell{Kind: CellLiteral, Text: "Southside"}},
		{" NaN ", Cell{Kind: CellLiteral, Text: "NaN"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCell(tt.raw, DefaultHolidayToken))
		})
	}
}

func TestParseDateCell(t *testing.T) {
	want := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-10", "10/3/2024", "2024-03-10 00:00:00", "45361"} {
		got, ok := ParseDateCell(raw)
		if assert.True(t, ok, raw) {
			assert.Equal(t, want, got, raw)
		}
	}

	for _, raw := range []string{"", "8", "7.5", "Southside", "HOL"} {
		_, ok := ParseDateCell(raw)
		assert.False(t, ok, raw)
	}
}

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber("2,25")
	assert.True(t, ok)
	assert.Equal(t, 2.25, n)

	_, ok = ParseNumber("Inf")
	assert.False(t, ok)
	_, ok = ParseNumber("eight")
	assert.False(t, ok)
}
