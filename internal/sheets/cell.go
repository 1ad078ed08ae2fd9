package sheets

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/xuri/excelize/v2"
)

// CellKind tags the variant held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumeric
	CellHoliday
	CellLiteral
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellNumeric:
		return "numeric"
	case CellHoliday:
		return "holiday"
	case CellLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Cell is a classified grid value. Number is set for CellNumeric and Text
// for CellLiteral.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// ClassifyCell is the single place a raw grid string becomes a typed value.
func ClassifyCell(raw, holidayToken string) Cell {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Cell{Kind: CellEmpty}
	}
	if holidayToken != "" && strings.EqualFold(value, holidayToken) {
		return Cell{Kind: CellHoliday}
	}
	if n, ok := ParseNumber(value); ok {
		return Cell{Kind: CellNumeric, Number: n}
	}
	return Cell{Kind: CellLiteral, Text: value}
}

// ParseNumber parses a decimal that may use a comma as the separator.
func ParseNumber(raw string) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Excel serials outside this range are treated as plain numbers so hour
// values never read as dates.
const (
	minDateSerial = 20000
	maxDateSerial = 80000
)

var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
	"2.1.2006",
	"1.2.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// ParseDateCell reads ISO and day-first or month-first text dates, and
// Excel serial numbers.
func ParseDateCell(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial >= minDateSerial && serial <= maxDateSerial {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return payroll.Day(parsed), true
			}
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return payroll.Day(parsed), true
		}
	}
	return time.Time{}, false
}
