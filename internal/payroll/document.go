package payroll

import (
	"encoding/json"
	"fmt"
	"io"
)

// Document is the canonical intermediate JSON shape handed to payload building.
type Document struct {
	PayPeriodEndDate string             `json:"pay_period_end_date"`
	Employees        []EmployeeDocument `json:"employees"`
}

type EmployeeDocument struct {
	EmployeeName      string          `json:"employee_name"`
	EmployeeID        string          `json:"employee_id,omitempty"`
	PayrollCalendarID string          `json:"payroll_calendar_id,omitempty"`
	DailyEntries      []EntryDocument `json:"daily_entries"`
}

type EntryDocument struct {
	EntryDate      string   `json:"entry_date"`
	RegionName     string   `json:"region_name"`
	Hours          float64  `json:"hours"`
	HourType       HourType `json:"hour_type"`
	OvertimeRate   *float64 `json:"overtime_rate"`
	OriginalRegion string   `json:"original_region,omitempty"`
	RegionValid    *bool    `json:"region_valid,omitempty"`
}

// Document renders the full-fidelity view, including quarantine metadata.
func (p *PayrollData) Document() Document {
	doc := Document{PayPeriodEndDate: FormatDate(p.payPeriodEnd)}
	for _, ts := range p.timesheets {
		emp := EmployeeDocument{
			EmployeeName:      ts.Name(),
			EmployeeID:        ts.EmployeeID(),
			PayrollCalendarID: ts.PayrollCalendarID(),
		}
		for _, e := range ts.entries {
			valid := e.RegionValid()
			ed := EntryDocument{
				EntryDate:   FormatDate(e.Date()),
				RegionName:  e.Region(),
				Hours:       e.Hours(),
				HourType:    e.HourType(),
				RegionValid: &valid,
			}
			if rate, ok := e.OvertimeRate(); ok {
				ed.OvertimeRate = &rate
			}
			if e.OriginalRegion() != e.Region() {
				ed.OriginalRegion = e.OriginalRegion()
			}
			emp.DailyEntries = append(emp.DailyEntries, ed)
		}
		doc.Employees = append(doc.Employees, emp)
	}
	return doc
}

// FromDocument rebuilds PayrollData from either the full or the export view.
// Zero-hour entries only occur in the export view as redacted placeholders
// and are dropped.
func FromDocument(doc Document) (*PayrollData, error) {
	end, err := ParseDate(doc.PayPeriodEndDate)
	if err != nil {
		return nil, NewStructuralError("document", "invalid pay_period_end_date", err)
	}
	var timesheets []*EmployeeTimesheet
	for _, emp := range doc.Employees {
		var entries []DailyEntry
		for _, ed := range emp.DailyEntries {
			if ed.Hours == 0 {
				continue
			}
			date, err := ParseDate(ed.EntryDate)
			if err != nil {
				return nil, NewStructuralError("document", "invalid entry_date for "+emp.EmployeeName, err)
			}
			invalid := ed.RegionName == UnknownRegion || (ed.RegionValid != nil && !*ed.RegionValid)
			entry, err := NewDailyEntry(EntryParams{
				Date:           date,
				Region:         ed.RegionName,
				Hours:          ed.Hours,
				HourType:       ed.HourType,
				OvertimeRate:   ed.OvertimeRate,
				OriginalRegion: ed.OriginalRegion,
				RegionInvalid:  invalid,
			})
			if err != nil {
				return nil, fmt.Errorf("employee %s: %w", emp.EmployeeName, err)
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			continue
		}
		ts, err := NewEmployeeTimesheet(emp.EmployeeName, entries, end)
		if err != nil {
			return nil, err
		}
		timesheets = append(timesheets, ts.WithIdentity(emp.EmployeeID, emp.PayrollCalendarID))
	}
	return NewPayrollData(end, timesheets)
}

// DecodeDocument reads a canonical JSON document.
func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, NewStructuralError("document", "decode payroll json", err)
	}
	return doc, nil
}
