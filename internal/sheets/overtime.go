package sheets

import (
	"strings"
)

var yesNoFlags = map[string]bool{
	"yes": true, "y": true, "true": true, "1": true,
	"no": false, "n": false, "false": false, "0": false,
}

// OvertimeReader reads the overtime-rate register. Only one page is used.
type OvertimeReader struct {
	settings OvertimeSettings
	detector Detector
}

func NewOvertimeReader(s OvertimeSettings) *OvertimeReader {
	return &OvertimeReader{
		settings: s,
		detector: Detector{
			Threshold: s.DetectionThreshold,
			Rules:     []Rule{OvertimeHeaderRule(s), OvertimeNameRule(s), OvertimeFlagRule(s)},
		},
	}
}

func (r *OvertimeReader) Kind() Kind { return KindOvertime }

func (r *OvertimeReader) Detector() Detector { return r.detector }

// HasTitlePhrase checks row 1 for the register's exact title.
func (r *OvertimeReader) HasTitlePhrase(p *Page) bool {
	cols := min(p.MaxCol(), r.settings.MaxSearchColumns)
	values := make([]string, 0, cols)
	for c := 1; c <= cols; c++ {
		values = append(values, strings.ToLower(p.Cell(1, c)))
	}
	return strings.Contains(strings.Join(values, " "), r.settings.TitlePhrase)
}

// OvertimeHeaderRule looks for overtime or employee header keywords.
func OvertimeHeaderRule(s OvertimeSettings) Rule {
	return Rule{Name: "header-keywords", Check: func(p *Page) bool {
		return containsText(p, s.HeaderRows, s.HeaderColumns, s.HeaderKeywords...)
	}}
}

// OvertimeNameRule looks for a multi-word name in the name columns.
func OvertimeNameRule(s OvertimeSettings) Rule {
	return Rule{Name: "employee-names", Check: func(p *Page) bool {
		for row := s.DataStartRow; row <= s.ProbeEndRow && row <= p.MaxRow(); row++ {
			if hasFirstAndLastName(firstFilled(p, row, s.NameColumns)) {
				return true
			}
		}
		return false
	}}
}

// OvertimeFlagRule looks for a yes/no style flag in columns B to E.
func OvertimeFlagRule(s OvertimeSettings) Rule {
	return Rule{Name: "yes-no-flags", Check: func(p *Page) bool {
		for row := 2; row <= s.ProbeEndRow && row <= p.MaxRow(); row++ {
			for col := 2; col <= 5; col++ {
				if _, ok := yesNoFlags[strings.ToLower(p.Cell(row, col))]; ok {
					return true
				}
			}
		}
		return false
	}}
}

func (r *OvertimeReader) isCandidate(p *Page) bool {
	return r.HasTitlePhrase(p) || r.detector.Matches(p)
}

func (r *OvertimeReader) ValidateWorkbook(wb *Workbook) bool {
	return anyPage(wb, r.isCandidate)
}

func (r *OvertimeReader) ParseWorkbook(wb *Workbook) (*Intermediate, error) {
	out := newResult(KindOvertime, wb)

	var chosen *Page
	for _, page := range wb.Pages {
		if r.HasTitlePhrase(page) {
			chosen = page
			break
		}
	}
	if chosen == nil {
		for _, page := range wb.Pages {
			if r.detector.Matches(page) {
				chosen = page
				break
			}
		}
	}

	for _, page := range wb.Pages {
		switch {
		case chosen == nil:
			out.Report.skip(wb.Source, page.Name, "not an overtime register: %s", r.detector.Evaluate(page))
		case page != chosen:
			out.Report.skip(wb.Source, page.Name, "not used: only the first register page %q is read", chosen.Name)
		}
	}
	if chosen == nil {
		return nil, &NoPageError{Kind: KindOvertime, Source: wb.Source, Report: out.Report}
	}

	r.parsePage(chosen, out)
	out.Report.parsed(chosen.Name)
	return out, nil
}

func (r *OvertimeReader) parsePage(page *Page, out *Intermediate) {
	s := r.settings
	keptRow := map[string]int{}
	for row := s.DataStartRow; row <= page.MaxRow(); row++ {
		name := firstFilled(page, row, s.NameColumns)
		if name == "" {
			continue
		}
		if first, dup := keptRow[name]; dup {
			out.Report.Duplicates = append(out.Report.Duplicates, Duplicate{
				Name:        name,
				KeptPage:    page.Name,
				KeptRow:     first,
				SkippedPage: page.Name,
				SkippedRow:  row,
			})
			continue
		}

		var flag, rawRate string
		for i, col := range s.FlagColumns {
			if v := strings.ToLower(page.Cell(row, col)); v != "" {
				flag = v
				if i < len(s.RateColumns) {
					rawRate = page.Cell(row, s.RateColumns[i])
				}
				break
			}
		}

		// A flagged row keeps its flag with no rate when the rate is blank or not
		// positive; text that is not a number clears the flag.
		entry := OvertimeRate{}
		if yesNoFlags[flag] {
			entry.HasCustomRate = true
			if strings.TrimSpace(rawRate) != "" {
				rate, ok := ParseNumber(rawRate)
				switch {
				case !ok:
					entry.HasCustomRate = false
				case rate > 0:
					entry.Rate = &rate
				}
			}
		}
		out.Overtime[name] = entry
		out.Employee(name)
		keptRow[name] = row
	}
}

func firstFilled(p *Page, row int, cols []int) string {
	for _, col := range cols {
		if v := p.Cell(row, col); v != "" {
			return v
		}
	}
	return ""
}
