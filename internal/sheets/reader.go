package sheets

import (
	"fmt"

	"github.com/phillip-england/payrollsync/internal/payroll"
)

// Reader turns one kind of spreadsheet into an Intermediate.
type Reader interface {
	Kind() Kind
	// ValidateWorkbook reports whether at least one page looks like this kind.
	ValidateWorkbook(wb *Workbook) bool
	// ParseWorkbook skips pages that fail detection or parsing and records why.
	ParseWorkbook(wb *Workbook) (*Intermediate, error)
}

// NoPageError is returned when a workbook has no page of the requested kind.
// The report says why each page was rejected.
type NoPageError struct {
	Kind   Kind
	Source string
	Report Report
}

func (e *NoPageError) Error() string {
	return fmt.Sprintf("%s: no %s page found (%d pages rejected)", e.Source, e.Kind, len(e.Report.Skipped))
}

func (e *NoPageError) Is(target error) bool { return target == payroll.ErrStructural }

// ValidateFormat opens path and runs the reader's detection. It never fails;
// unreadable files simply do not match.
func ValidateFormat(r Reader, path string, extensions []string) bool {
	wb, err := OpenWorkbook(path, extensions)
	if err != nil {
		return false
	}
	return r.ValidateWorkbook(wb)
}

// Parse opens path and parses it with r.
func Parse(r Reader, path string, extensions []string) (*Intermediate, error) {
	wb, err := OpenWorkbook(path, extensions)
	if err != nil {
		return nil, err
	}
	return r.ParseWorkbook(wb)
}

// Readers returns the three readers in detection order.
func Readers(s Settings) []Reader {
	return []Reader{NewSiteReader(s.Site), NewOvertimeReader(s.Overtime), NewTravelReader(s.Travel)}
}

// Detect returns the first reader that accepts the workbook.
func Detect(wb *Workbook, readers ...Reader) (Reader, bool) {
	for _, r := range readers {
		if r.ValidateWorkbook(wb) {
			return r, true
		}
	}
	return nil, false
}

func newResult(kind Kind, wb *Workbook) *Intermediate {
	in := NewIntermediate(kind)
	in.Sources = []string{wb.Source}
	in.Report.Skipped = append(in.Report.Skipped, wb.Unreadable...)
	return in
}

func anyPage(wb *Workbook, match func(*Page) bool) bool {
	for _, p := range wb.Pages {
		if match(p) {
			return true
		}
	}
	return false
}
