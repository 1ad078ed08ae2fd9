package sheets

import (
	"github.com/phillip-england/payrollsync/internal/payroll"
)

const travelNote = "Travel time entry"

// TravelReader reads travel-time logs: name, site and hours in fixed columns,
// with no dates of their own.
type TravelReader struct {
	settings TravelSettings
	detector Detector
}

func NewTravelReader(s TravelSettings) *TravelReader {
	return &TravelReader{
		settings: s,
		detector: Detector{
			Threshold: s.DetectionThreshold,
			Rules:     []Rule{TravelTitleRule(s), TravelEmployeeRule(s)},
		},
	}
}

func (r *TravelReader) Kind() Kind { return KindTravel }

func (r *TravelReader) Detector() Detector { return r.detector }

// TravelTitleRule looks for a "travel time" caption near the top.
func TravelTitleRule(s TravelSettings) Rule {
	return Rule{Name: "travel-title", Check: func(p *Page) bool {
		return containsText(p, s.TitleRows, s.TitleColumns, "travel time")
	}}
}

// TravelEmployeeRule looks for one real-looking employee with positive hours.
func TravelEmployeeRule(s TravelSettings) Rule {
	return Rule{Name: "employee-hours", Check: func(p *Page) bool {
		for row := s.DataStartRow; row <= s.ProbeEndRow && row <= p.MaxRow(); row++ {
			name := p.Cell(row, s.NameColumn)
			if name == "" || IsPlaceholderName(name, s.FakeNamePatterns) || !hasFirstAndLastName(name) {
				continue
			}
			if hours, ok := ParseNumber(p.Cell(row, s.HoursColumn)); ok && hours > 0 {
				return true
			}
		}
		return false
	}}
}

func (r *TravelReader) ValidateWorkbook(wb *Workbook) bool {
	return anyPage(wb, r.detector.Matches)
}

func (r *TravelReader) ParseWorkbook(wb *Workbook) (*Intermediate, error) {
	s := r.settings
	out := newResult(KindTravel, wb)

	for _, page := range wb.Pages {
		ev := r.detector.Evaluate(page)
		if !ev.Passed() {
			out.Report.skip(wb.Source, page.Name, "not a travel time log: %s", ev)
			continue
		}
		for row := s.DataStartRow; row <= page.MaxRow(); row++ {
			name := page.Cell(row, s.NameColumn)
			if name == "" || IsPlaceholderName(name, s.FakeNamePatterns) {
				continue
			}
			hours, ok := ParseNumber(page.Cell(row, s.HoursColumn))
			if !ok || hours <= 0 {
				continue
			}
			region := page.Cell(row, s.SiteColumn)
			if region == "" {
				region = s.DefaultRegion
			}
			emp := out.Employee(name)
			emp.Entries = append(emp.Entries, RawEntry{
				Date:     payroll.SentinelDate,
				Region:   region,
				Hours:    hours,
				HourType: payroll.Travel,
				Notes:    travelNote,
			})
		}
		out.Report.parsed(page.Name)
	}

	if len(out.Report.Parsed) == 0 {
		return nil, &NoPageError{Kind: KindTravel, Source: wb.Source, Report: out.Report}
	}
	return out, nil
}
