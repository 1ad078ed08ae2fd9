package sheets

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/xuri/excelize/v2"
)

const maxXLSRows = 100000

// Page is one grid of a workbook. Cell coordinates are 1-based.
type Page struct {
	Name string
	Rows [][]string
}

// Cell returns the trimmed value at row, col or "" when out of range.
func (p *Page) Cell(row, col int) string {
	if row < 1 || row > len(p.Rows) {
		return ""
	}
	return cellValue(p.Rows[row-1], col-1)
}

func (p *Page) MaxRow() int { return len(p.Rows) }

func (p *Page) MaxCol() int {
	maxCol := 0
	for _, row := range p.Rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	return maxCol
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Workbook is a fully read spreadsheet file; no handle stays open.
type Workbook struct {
	Source string
	Pages  []*Page
	// Unreadable lists pages that failed to load.
	Unreadable []Diagnostic
}

// OpenWorkbook reads the file at path after checking its extension.
func OpenWorkbook(path string, extensions []string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, payroll.NewStructuralError(path, "open spreadsheet", err)
	}
	defer f.Close()
	return ReadWorkbook(f, path, extensions)
}

// ReadWorkbook loads every page of a spreadsheet. The format is chosen by
// the filename extension, which must be in the allowed list.
func ReadWorkbook(reader io.Reader, filename string, extensions []string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtension(ext, extensions) {
		return nil, payroll.NewStructuralError(filename, fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, payroll.NewStructuralError(filename, "read spreadsheet", err)
	}

	var wb *Workbook
	switch ext {
	case ".xls":
		wb, err = readXLS(data, filename)
	case ".csv":
		wb, err = readCSV(data, filename)
	default:
		wb, err = readXLSX(data, filename)
	}
	if err != nil {
		return nil, payroll.NewStructuralError(filename, "parse spreadsheet", err)
	}
	if len(wb.Pages) == 0 {
		return nil, payroll.NewStructuralError(filename, "no readable worksheet found", nil)
	}
	return wb, nil
}

func SupportedExtension(ext string, extensions []string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range extensions {
		if strings.ToLower(strings.TrimSpace(allowed)) == ext {
			return true
		}
	}
	return false
}

func readXLSX(data []byte, filename string) (*Workbook, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	wb := &Workbook{Source: filename}
	for _, name := range file.GetSheetList() {
		rows, err := file.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			wb.Unreadable = append(wb.Unreadable, Diagnostic{Source: filename, Page: name, Reason: "unreadable: " + err.Error()})
			continue
		}
		wb.Pages = append(wb.Pages, &Page{Name: name, Rows: rows})
	}
	return wb, nil
}

func readXLS(data []byte, filename string) (*Workbook, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}

	wb := &Workbook{Source: filename}
	for i := 0; i < workbook.NumSheets(); i++ {
		sheet := workbook.GetSheet(i)
		if sheet == nil {
			continue
		}
		page := &Page{Name: sheet.Name}
		for r := 0; r <= int(sheet.MaxRow) && r < maxXLSRows; r++ {
			row := sheet.Row(r)
			if row == nil {
				page.Rows = append(page.Rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			page.Rows = append(page.Rows, cells)
		}
		wb.Pages = append(wb.Pages, page)
	}
	return wb, nil
}

func readCSV(data []byte, filename string) (*Workbook, error) {
	reader := gocsv.LazyCSVReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	if std, ok := reader.(*csv.Reader); ok {
		std.FieldsPerRecord = -1
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return &Workbook{Source: filename, Pages: []*Page{{Name: name, Rows: rows}}}, nil
}
