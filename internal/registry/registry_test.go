package registry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeFile(t, "roster.csv", "\xef\xbb\xbfemployee_id,name,payroll_calendar_id\n"+
		"e-1, Jane Citizen ,cal-1\n"+
		"e-2,Bob Builder,\n"+
		",,\n")

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, []identity.Employee{
		{ID: "e-1", Name: "Jane Citizen", PayrollCalendarID: "cal-1"},
		{ID: "e-2", Name: "Bob Builder"},
	}, roster)
}

func TestReadRosterWithoutCalendarColumn(t *testing.T) {
	roster, err := ReadRoster(strings.NewReader("employee_id,name\ne-1,Jane Citizen\n"))
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Empty(t, roster[0].PayrollCalendarID)
}

func TestReadRosterRejectsBadRows(t *testing.T) {
	_, err := ReadRoster(strings.NewReader("employee_id,name\ne-1,\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrStructural))
	assert.Contains(t, err.Error(), "line 2")

	_, err = ReadRoster(strings.NewReader("employee_id,name\ne-1,Jane\ne-1,Bob\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used on line 2")

	_, err = ReadRoster(strings.NewReader("  \n"))
	assert.True(t, errors.Is(err, payroll.ErrStructural))
}

func TestWriteRosterRoundTrip(t *testing.T) {
	in := []identity.Employee{{ID: "e-1", Name: "Jane Citizen", PayrollCalendarID: "cal-1"}}
	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, in))
	out, err := ReadRoster(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadRegions(t *testing.T) {
	lines := writeFile(t, "regions.txt", "# valid sites\nNorth\n\nSouth\nNorth\n  Depot  \n")
	got, err := LoadRegions(lines)
	require.NoError(t, err)
	assert.Equal(t, []string{"Depot", "North", "South"}, got)

	csvPath := writeFile(t, "regions.csv", "region\nSouth\nNorth\n")
	got, err = LoadRegions(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"North", "South"}, got)
}

func TestRegionSet(t *testing.T) {
	assert.Nil(t, RegionSet(nil))
	set := RegionSet([]string{"North"})
	assert.Contains(t, set, "North")
	assert.Len(t, set, 1)
}

func TestParseMappings(t *testing.T) {
	m, err := ParseMappings([]byte(`
regions:
  North: trk-north
  Travel: null
earnings:
  regular: er-regular
  OVERTIME: er-overtime
`))
	require.NoError(t, err)
	require.Contains(t, m.Tracking, "North")
	require.NotNil(t, m.Tracking["North"])
	assert.Equal(t, "trk-north", *m.Tracking["North"])
	require.Contains(t, m.Tracking, "Travel")
	assert.Nil(t, m.Tracking["Travel"])
	assert.Equal(t, map[payroll.HourType]string{
		payroll.Regular:  "er-regular",
		payroll.Overtime: "er-overtime",
	}, m.Earnings)
}

func TestParseMappingsRejectsUnknownHourType(t *testing.T) {
	_, err := ParseMappings([]byte("earnings:\n  SICK: er-sick\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrStructural))
	assert.Contains(t, err.Error(), "SICK")
}

func TestMappingsRoundTrip(t *testing.T) {
	path := writeFile(t, "mappings.yaml", "regions:\n  North: trk-north\n  Travel: null\nearnings:\n  TRAVEL: er-travel\n")
	m, err := LoadMappings(path)
	require.NoError(t, err)

	data, err := MarshalMappings(m)
	require.NoError(t, err)
	again, err := ParseMappings(data)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}
