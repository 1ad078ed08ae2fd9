package sheets

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fixturePage struct {
	name  string
	cells map[string]any
}

func writeXLSX(t *testing.T, filename string, pages ...fixturePage) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, page := range pages {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", page.name))
		} else {
			_, err := f.NewSheet(page.name)
			require.NoError(t, err)
		}
		for axis, value := range page.cells {
			require.NoError(t, f.SetCellValue(page.name, axis, value))
		}
	}

	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, f.SaveAs(path))
	return path
}

func sitePage(name string) fixturePage {
	return fixturePage{name: name, cells: map[string]any{
		"A1": "Region", "B1": name,
		"A3": "Week Ending", "B3": "2024-03-10",
		"C9": "2024-03-04", "D9": "2024-03-05", "E9": "2024-03-06", "F9": "2024-03-07",
		"G9": "2024-03-08", "H9": "2024-03-09", "I9": "2024-03-10",
		"B11": "EMPLOYEE NAME",
		"B12": "Jane Citizen", "C12": 8, "D12": "HOL", "E12": "Southside", "F12": 0, "K12": 5,
		"B13": "To be signed by supervisor",
		"B14": "Bob Builder", "C14": "7,5",
	}}
}

func travelPage() fixturePage {
	return fixturePage{name: "Travel", cells: map[string]any{
		"A1": "Travel Time Log",
		"A2": "Jane Citizen", "B2": "Depot", "D2": "2,5",
		"A3": "Test Person", "B3": "Depot", "D3": 3,
		"A4": "Bob Builder", "D4": 6,
		"A5": "Carl Jones", "B5": "Depot", "D5": -2,
	}}
}

func overtimePage(name string) fixturePage {
	return fixturePage{name: name, cells: map[string]any{
		"A1": "Overtime rate for employees",
		"A2": "Jane Citizen", "C2": "Yes", "D2": 45.5,
		"A3": "Bob Builder", "C3": "No", "D3": 30,
		"B4": "Carl Jones", "D4": "y", "E4": 50,
		"A5": "Jane Citizen", "C5": "yes", "D5": 99,
		"A6": "Dana Scully", "C6": "yes", "D6": "n/a",
		"A7": "Eve Moneypenny", "C7": "yes",
		"A8": "Finn Adams", "C8": "yes", "D8": 0,
	}}
}
