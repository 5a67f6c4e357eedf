package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vvka-141/payetl/pkg/payetl"
)

func writeXLSX(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func readAll(r Reader) ([][]string, error) {
	var out [][]string
	for {
		row, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, row)
	}
}

func TestOpen_XLSXStreamsRows(t *testing.T) {
	path := writeXLSX(t, [][]any{
		{"a", "b", "c"},
		{"1", 2, "x"},
		{},
		{"", "", "z"},
	})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	rows, err := readAll(r)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"1", "2", "x"}, rows[1])
	assert.True(t, IsBlankRow(rows[2]))
	assert.Equal(t, []string{"", "", "z"}, rows[3])
}

func TestOpen_UppercaseExtension(t *testing.T) {
	src := writeXLSX(t, [][]any{{"h"}})
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	upper := filepath.Join(t.TempDir(), "REPORT.XLSX")
	require.NoError(t, os.WriteFile(upper, data, 0o644))

	r, err := Open(upper)
	require.NoError(t, err)
	defer r.Close()
	row, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"h"}, row)
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("/tmp/report.csv")
	assert.ErrorIs(t, err, payetl.ErrUnsupportedFormat)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestIsBlankRow(t *testing.T) {
	tests := []struct {
		row  []string
		want bool
	}{
		{nil, true},
		{[]string{}, true},
		{[]string{"", "  ", "\t"}, true},
		{[]string{"", "x"}, false},
		{[]string{"0"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBlankRow(tt.row), "%q", tt.row)
	}
}

func TestNullIfBlank(t *testing.T) {
	assert.Nil(t, NullIfBlank(""))
	assert.Nil(t, NullIfBlank("   "))
	assert.Equal(t, "0", NullIfBlank("0"))
	assert.Equal(t, " a ", NullIfBlank(" a "))
}

func TestOpen_XLSXReturnsStoredValues(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	currency, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	shortDate, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	clock, err := f.NewStyle(&excelize.Style{NumFmt: 20})
	require.NoError(t, err)
	stampFmt := "yyyy-mm-dd hh:mm"
	stamp, err := f.NewStyle(&excelize.Style{CustomNumFmt: &stampFmt})
	require.NoError(t, err)
	hoursFmt := `0.00 "hrs"`
	hours, err := f.NewStyle(&excelize.Style{CustomNumFmt: &hoursFmt})
	require.NoError(t, err)

	cells := []struct {
		ref   string
		value any
		style int
	}{
		{"A1", 1234.5, currency},
		{"B1", 45693, shortDate},
		{"C1", 8.25, 0},
		{"D1", 0.375, clock},
		{"E1", 45693.5, stamp},
		{"F1", 7.5, hours},
		{"G1", "2025-02-05", 0},
	}
	for _, c := range cells {
		require.NoError(t, f.SetCellValue(sheet, c.ref, c.value))
		if c.style != 0 {
			require.NoError(t, f.SetCellStyle(sheet, c.ref, c.ref, c.style))
		}
	}
	path := filepath.Join(t.TempDir(), "formatted.xlsx")
	require.NoError(t, f.SaveAs(path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	rows, err := readAll(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"1234.5",
		"2025-02-05",
		"8.25",
		"09:00:00",
		"2025-02-05 12:00:00",
		"7.5",
		"2025-02-05",
	}, rows[0])
}

func TestClassifyCustomFormat(t *testing.T) {
	tests := []struct {
		format string
		want   dateKind
	}{
		{"yyyy-mm-dd", dateOnly},
		{"d-mmm-yy", dateOnly},
		{"h:mm AM/PM", timeOnly},
		{"m/d/yyyy h:mm", dateTime},
		{`#,##0.00 "days"`, notDate},
		{`[Red]#,##0.00`, notDate},
		{`0.0\h`, notDate},
		{"0.00", notDate},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCustomFormat(tt.format))
		})
	}
}

func TestOpen_XLSLegacyWorkbook(t *testing.T) {
	r, err := Open(filepath.Join("testdata", "charges.xls"))
	require.NoError(t, err)
	defer r.Close()

	rows, err := readAll(r)
	require.NoError(t, err)
	require.Len(t, rows, 9, "rows 0 through the last stored row, gaps included")

	assert.Equal(t, []string{"Clinic Charges"}, rows[0])
	for i := 1; i <= 4; i++ {
		assert.True(t, IsBlankRow(rows[i]), "row %d", i)
	}
	assert.Equal(t, []string{"EE ID", "Employee", "Redundant", "Shift Date"}, rows[5])
	assert.Equal(t, []string{"101", "Ann", "x", "45693"}, rows[6])
	assert.True(t, IsBlankRow(rows[7]))
	assert.Equal(t, []string{"", "Bob", "y", "7.25"}, rows[8], "row starting at the second column keeps its offset")
}

func TestOpen_XLSRejectsNonWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.xls")
	require.NoError(t, os.WriteFile(path, []byte("not a compound document"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
