package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/sheets"
)

// File is one input spreadsheet. Kind is optional; when empty the file is
// classified by detection.
type File struct {
	Path string      `json:"path"`
	Kind sheets.Kind `json:"file_type,omitempty"`
}

// Detection records how an input was classified.
type Detection struct {
	Source   string      `json:"source"`
	Kind     sheets.Kind `json:"file_type"`
	Labelled bool        `json:"labelled"`
}

// Loaded holds the merged Intermediate of each kind. Kinds with no input
// are nil.
type Loaded struct {
	Site        *sheets.Intermediate
	Travel      *sheets.Intermediate
	Overtime    *sheets.Intermediate
	Detections  []Detection
	Diagnostics []sheets.Diagnostic
}

func (l *Loaded) slot(kind sheets.Kind) **sheets.Intermediate {
	switch kind {
	case sheets.KindSite:
		return &l.Site
	case sheets.KindTravel:
		return &l.Travel
	case sheets.KindOvertime:
		return &l.Overtime
	}
	return nil
}

// Names lists every source name across the loaded kinds, first seen first.
func (l *Loaded) Names() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range []*sheets.Intermediate{l.Site, l.Travel, l.Overtime} {
		if it == nil {
			continue
		}
		names := it.Names()
		if it.Kind == sheets.KindOvertime {
			registered := make([]string, 0, len(it.Overtime))
			for name := range it.Overtime {
				registered = append(registered, name)
			}
			sort.Strings(registered)
			names = append(names, registered...)
		}
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Sources lists every file that contributed.
func (l *Loaded) Sources() []string {
	var out []string
	for _, d := range l.Detections {
		out = append(out, d.Source)
	}
	return out
}

func readerFor(kind sheets.Kind, readers []sheets.Reader) (sheets.Reader, bool) {
	for _, r := range readers {
		if r.Kind() == kind {
			return r, true
		}
	}
	return nil, false
}

// Load reads and parses every file. Labelled files skip detection; a file
// that matches no reader fails the whole load.
func (p *Pipeline) Load(ctx context.Context, files []File) (*Loaded, error) {
	if len(files) == 0 {
		return nil, payroll.NewStructuralError("", "no input files", nil)
	}
	log := logging.FromContext(ctx)
	readers := sheets.Readers(p.settings)
	out := &Loaded{}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wb, err := sheets.OpenWorkbook(f.Path, p.settings.Extensions)
		if err != nil {
			return nil, err
		}

		var reader sheets.Reader
		labelled := f.Kind != ""
		if labelled {
			r, ok := readerFor(f.Kind, readers)
			if !ok {
				return nil, payroll.NewStructuralError(f.Path, fmt.Sprintf("unknown file type %q", f.Kind), nil)
			}
			reader = r
		} else {
			r, ok := sheets.Detect(wb, readers...)
			if !ok {
				return nil, payroll.NewStructuralError(f.Path, "file does not look like a site timesheet, travel log or overtime register", nil)
			}
			reader = r
		}

		it, err := reader.ParseWorkbook(wb)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("file", filepath.Base(f.Path)).
			Str("file_type", string(reader.Kind())).
			Bool("labelled", labelled).
			Int("employees", len(it.Employees)).
			Int("entries", it.EntryCount()).
			Msg("parsed input")

		out.Detections = append(out.Detections, Detection{Source: f.Path, Kind: reader.Kind(), Labelled: labelled})
		out.Diagnostics = append(out.Diagnostics, it.Report.Skipped...)
		slot := out.slot(reader.Kind())
		if *slot == nil {
			*slot = it
		} else {
			(*slot).Absorb(it)
		}
	}
	return out, nil
}
