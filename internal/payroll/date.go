package payroll

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// UnknownRegion replaces a region name that failed validation.
const UnknownRegion = "Unknown"

// SentinelDate stands in for source rows without a real date (travel logs).
// Consolidation swaps it for the pay-period end date.
var SentinelDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func IsSentinel(t time.Time) bool {
	return t.Year() == SentinelDate.Year()
}

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
