package sheets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phillip-england/payrollsync/internal/payroll"
)

const overtimeTotalsNote = "Overtime from totals column"

// SiteReader reads site roster timesheets: one page per region, a header row
// of dates, and one employee per row below it.
type SiteReader struct {
	settings SiteSettings
	detector Detector
}

func NewSiteReader(s SiteSettings) *SiteReader {
	return &SiteReader{
		settings: s,
		detector: Detector{
			Threshold: s.DetectionThreshold,
			Rules:     []Rule{SiteHeaderTextRule(s), SiteDateRowRule(s), SiteEmployeeRule(s)},
		},
	}
}

func (r *SiteReader) Kind() Kind { return KindSite }

func (r *SiteReader) Detector() Detector { return r.detector }

// SiteHeaderTextRule looks for "week ending" or "region" labels near the top.
func SiteHeaderTextRule(s SiteSettings) Rule {
	return Rule{Name: "header-text", Check: func(p *Page) bool {
		return containsText(p, s.HeaderScanRows, s.HeaderScanColumns, "week ending", "region")
	}}
}

// SiteDateRowRule looks for a row with enough parseable dates.
func SiteDateRowRule(s SiteSettings) Rule {
	return Rule{Name: "date-row", Check: func(p *Page) bool {
		_, ok := findDateRow(p, s)
		return ok
	}}
}

// SiteEmployeeRule looks for a plausible employee name where rows begin.
func SiteEmployeeRule(s SiteSettings) Rule {
	return Rule{Name: "employee-rows", Check: func(p *Page) bool {
		for row := s.EmployeeStartRow; row < s.EmployeeStartRow+s.EmployeeProbeRows && row <= p.MaxRow(); row++ {
			if IsEmployeeName(p.Cell(row, s.EmployeeNameColumn), s) {
				return true
			}
		}
		return false
	}}
}

func (r *SiteReader) ValidateWorkbook(wb *Workbook) bool {
	return anyPage(wb, r.detector.Matches)
}

var errNoDates = errors.New("no date header row found")

func (r *SiteReader) ParseWorkbook(wb *Workbook) (*Intermediate, error) {
	out := newResult(KindSite, wb)
	var allDates []time.Time

	for _, page := range wb.Pages {
		ev := r.detector.Evaluate(page)
		if !ev.Passed() {
			out.Report.skip(wb.Source, page.Name, "not a site timesheet: %s", ev)
			continue
		}
		if out.PayPeriodEnd == nil {
			if end, ok := weekEnding(page, r.settings); ok {
				out.PayPeriodEnd = &end
			}
		}
		dates, err := r.parsePage(page, out)
		if err != nil {
			out.Report.skip(wb.Source, page.Name, "%v", err)
			continue
		}
		allDates = append(allDates, dates...)
		out.Report.parsed(page.Name)
	}

	if len(out.Report.Parsed) == 0 {
		return nil, &NoPageError{Kind: KindSite, Source: wb.Source, Report: out.Report}
	}
	if out.PayPeriodEnd == nil && len(allDates) > 0 {
		end := latest(allDates)
		out.PayPeriodEnd = &end
	}
	return out, nil
}

func (r *SiteReader) parsePage(page *Page, out *Intermediate) ([]time.Time, error) {
	s := r.settings
	region := strings.TrimSpace(page.Name)
	if region == "" {
		return nil, fmt.Errorf("page has no name to use as region")
	}

	dateRow, ok := findDateRow(page, s)
	if !ok {
		dateRow = s.DateRow
	}
	dates := datesFromRow(page, dateRow, s.DateStartColumn)
	if len(dates) == 0 {
		for try := max(1, dateRow-2); try <= min(page.MaxRow(), dateRow+2); try++ {
			if dates = datesFromRow(page, try, s.DateStartColumn); len(dates) > 0 {
				break
			}
		}
	}
	if len(dates) == 0 {
		return nil, errNoDates
	}

	overtimeDate := dates[len(dates)-1]
	if out.PayPeriodEnd != nil {
		overtimeDate = *out.PayPeriodEnd
	}

	maxCol := page.MaxCol()
	for row := s.EmployeeStartRow; row <= page.MaxRow(); row++ {
		name := page.Cell(row, s.EmployeeNameColumn)
		if !IsEmployeeName(name, s) {
			continue
		}
		var entries []RawEntry
		for i, date := range dates {
			col := s.DateStartColumn + i
			if col > maxCol {
				break
			}
			entry, ok := r.entryForCell(ClassifyCell(page.Cell(row, col), s.HolidayToken), date, region)
			if ok {
				entries = append(entries, entry)
			}
		}
		if s.OvertimeColumn > 0 && s.OvertimeColumn <= maxCol {
			if hours, ok := ParseNumber(page.Cell(row, s.OvertimeColumn)); ok && hours > 0 {
				entries = append(entries, RawEntry{
					Date:     overtimeDate,
					Region:   region,
					Hours:    hours,
					HourType: payroll.Overtime,
					Notes:    overtimeTotalsNote,
				})
			}
		}
		emp := out.Employee(name)
		emp.Entries = append(emp.Entries, entries...)
	}
	return dates, nil
}

func (r *SiteReader) entryForCell(cell Cell, date time.Time, region string) (RawEntry, bool) {
	switch cell.Kind {
	case CellEmpty:
		return RawEntry{}, false
	case CellHoliday:
		return RawEntry{Date: date, Region: region, Hours: r.settings.HolidayHours, HourType: payroll.Holiday}, true
	case CellLiteral:
		return RawEntry{Date: date, Region: cell.Text, Hours: r.settings.RegionOverrideHours, HourType: payroll.Regular}, true
	case CellNumeric:
		if cell.Number <= 0 {
			return RawEntry{}, false
		}
		return RawEntry{Date: date, Region: region, Hours: cell.Number, HourType: payroll.Regular}, true
	default:
		panic(fmt.Sprintf("sheets: unhandled cell kind %v", cell.Kind))
	}
}

func findDateRow(p *Page, s SiteSettings) (int, bool) {
	maxCol := min(p.MaxCol(), DefaultMaxDateScanColumns)
	for row := 1; row <= s.DateRowSearchRange && row <= p.MaxRow(); row++ {
		found := 0
		for col := 1; col <= maxCol; col++ {
			if _, ok := ParseDateCell(p.Cell(row, col)); ok {
				found++
			}
			if found >= s.MinHeaderDates {
				return row, true
			}
		}
	}
	return 0, false
}

// datesFromRow reads consecutive dates from startCol, stopping at the first
// non-date once any date has been seen.
func datesFromRow(p *Page, row, startCol int) []time.Time {
	var dates []time.Time
	for col := startCol; col <= p.MaxCol(); col++ {
		date, ok := ParseDateCell(p.Cell(row, col))
		if ok {
			dates = append(dates, date)
			continue
		}
		if len(dates) > 0 {
			break
		}
	}
	return dates
}

func weekEnding(p *Page, s SiteSettings) (time.Time, bool) {
	for row := 1; row < s.HeaderScanRows && row <= p.MaxRow(); row++ {
		for col := 1; col <= s.HeaderScanColumns; col++ {
			if strings.Contains(strings.ToLower(p.Cell(row, col)), "week ending") {
				return ParseDateCell(p.Cell(row, col+1))
			}
		}
	}
	return time.Time{}, false
}

func latest(dates []time.Time) time.Time {
	out := dates[0]
	for _, d := range dates[1:] {
		if d.After(out) {
			out = d
		}
	}
	return out
}
