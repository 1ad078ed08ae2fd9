package consolidate

import (
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/xuri/excelize/v2"
)

// UnknownRegionEntry is one quarantined entry, with its real hours.
type UnknownRegionEntry struct {
	EmployeeName   string  `json:"employee_name" csv:"employee_name"`
	OriginalRegion string  `json:"original_region" csv:"original_region"`
	EntryDate      string  `json:"entry_date" csv:"entry_date"`
	Hours          float64 `json:"hours" csv:"hours"`
}

// UnknownRegionReport lists the regions that failed validation and every
// entry moved to the Unknown region because of them.
type UnknownRegionReport struct {
	Regions []string             `json:"unknown_regions"`
	Entries []UnknownRegionEntry `json:"unknown_region_entries"`
}

// NewUnknownRegionReport rebuilds a report from stored entries.
func NewUnknownRegionReport(entries []UnknownRegionEntry) UnknownRegionReport {
	r := UnknownRegionReport{Entries: entries}
	r.finish()
	return r
}

func (r *UnknownRegionReport) add(employee string, e payroll.DailyEntry) {
	r.Entries = append(r.Entries, UnknownRegionEntry{
		EmployeeName:   employee,
		OriginalRegion: e.OriginalRegion(),
		EntryDate:      payroll.FormatDate(e.Date()),
		Hours:          e.Hours(),
	})
}

func (r *UnknownRegionReport) finish() {
	seen := map[string]struct{}{}
	r.Regions = r.Regions[:0]
	for _, e := range r.Entries {
		if e.OriginalRegion == "" {
			continue
		}
		if _, ok := seen[e.OriginalRegion]; ok {
			continue
		}
		seen[e.OriginalRegion] = struct{}{}
		r.Regions = append(r.Regions, e.OriginalRegion)
	}
	sort.Strings(r.Regions)
}

func (r UnknownRegionReport) Empty() bool { return len(r.Entries) == 0 }

// WriteCSV writes one row per quarantined entry.
func (r UnknownRegionReport) WriteCSV(w io.Writer) error {
	rows := r.Entries
	if rows == nil {
		rows = []UnknownRegionEntry{}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write unknown region csv: %w", err)
	}
	return nil
}

const (
	unknownEntriesSheet = "Unknown Entries"
	unknownRegionsSheet = "Regions"
)

// WriteXLSX writes an audit workbook: the entries on one sheet and the
// distinct regions on another.
func (r UnknownRegionReport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", unknownEntriesSheet); err != nil {
		return fmt.Errorf("write unknown region xlsx: %w", err)
	}
	header := []any{"Employee Name", "Original Region", "Entry Date", "Hours"}
	if err := f.SetSheetRow(unknownEntriesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write unknown region xlsx: %w", err)
	}
	for i, e := range r.Entries {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{e.EmployeeName, e.OriginalRegion, e.EntryDate, e.Hours}
		if err := f.SetSheetRow(unknownEntriesSheet, cell, &row); err != nil {
			return fmt.Errorf("write unknown region xlsx: %w", err)
		}
	}

	if _, err := f.NewSheet(unknownRegionsSheet); err != nil {
		return fmt.Errorf("write unknown region xlsx: %w", err)
	}
	if err := f.SetCellValue(unknownRegionsSheet, "A1", "Region"); err != nil {
		return fmt.Errorf("write unknown region xlsx: %w", err)
	}
	for i, region := range r.Regions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(unknownRegionsSheet, cell, region); err != nil {
			return fmt.Errorf("write unknown region xlsx: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write unknown region xlsx: %w", err)
	}
	return nil
}
