package sheets

import "fmt"

// Diagnostic explains why a page contributed nothing.
type Diagnostic struct {
	Source string `json:"source"`
	Page   string `json:"page"`
	Reason string `json:"reason"`
}

// Duplicate records an overtime register row dropped in favour of an earlier one.
type Duplicate struct {
	Name        string `json:"employee_name"`
	KeptPage    string `json:"kept_page"`
	KeptRow     int    `json:"kept_row"`
	SkippedPage string `json:"skipped_page"`
	SkippedRow  int    `json:"skipped_row"`
}

// Report collects ingestion diagnostics for one or more files.
type Report struct {
	Parsed     []string     `json:"parsed_pages"`
	Skipped    []Diagnostic `json:"skipped_pages"`
	Duplicates []Duplicate  `json:"duplicates"`
}

func (r *Report) skip(source, page, format string, args ...any) {
	r.Skipped = append(r.Skipped, Diagnostic{Source: source, Page: page, Reason: fmt.Sprintf(format, args...)})
}

func (r *Report) parsed(page string) {
	r.Parsed = append(r.Parsed, page)
}

func (r *Report) Merge(other Report) {
	r.Parsed = append(r.Parsed, other.Parsed...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Duplicates = append(r.Duplicates, other.Duplicates...)
}

// SkipReason returns the recorded reason for a page, if it was skipped.
func (r Report) SkipReason(page string) (string, bool) {
	for _, d := range r.Skipped {
		if d.Page == page {
			return d.Reason, true
		}
	}
	return "", false
}
