// Package sheet reads the first worksheet of .xls and .xlsx payroll exports
// one row at a time.
package sheet

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/vvka-141/payetl/pkg/payetl"
)

// Reader yields the rows of a worksheet in order.
// Next returns ok=false once the sheet is exhausted.
type Reader interface {
	Next() (row []string, ok bool, err error)
	Close() error
}

// Open picks a reader by file extension.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return openXLSX(path)
	case ".xls":
		return openXLS(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, payetl.ErrUnsupportedFormat)
	}
}

// xlsxReader yields stored cell values rather than Excel's display text, so
// "1,234.50" loads as 1234.5. Date and time formatted serials are rendered as
// ISO 8601.
type xlsxReader struct {
	file     *excelize.File
	sheet    string
	rows     *excelize.Rows
	row      int
	date1904 bool
	kinds    map[int]dateKind
}

func openXLSX(path string) (*xlsxReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	name := f.GetSheetName(0)
	if name == "" {
		_ = f.Close()
		return nil, fmt.Errorf("%s: no worksheet found: %w", path, payetl.ErrUnsupportedFormat)
	}
	rows, err := f.Rows(name)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", name, path, err)
	}
	r := &xlsxReader{file: f, sheet: name, rows: rows, kinds: make(map[int]dateKind)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	return r, nil
}

func (r *xlsxReader) Next() ([]string, bool, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	r.row++
	cols, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, err
	}
	for i, v := range cols {
		if v == "" {
			continue
		}
		serial, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		kind, err := r.kindAt(i+1, r.row)
		if err != nil {
			return nil, false, err
		}
		if kind != notDate {
			cols[i] = r.formatSerial(serial, kind, v)
		}
	}
	return cols, true, nil
}

func (r *xlsxReader) kindAt(col, row int) (dateKind, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return notDate, err
	}
	idx, err := r.file.GetCellStyle(r.sheet, cell)
	if err != nil {
		return notDate, fmt.Errorf("failed to read style of %s: %w", cell, err)
	}
	if kind, ok := r.kinds[idx]; ok {
		return kind, nil
	}
	kind := notDate
	if style, err := r.file.GetStyle(idx); err == nil && style != nil {
		kind = classifyNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	r.kinds[idx] = kind
	return kind, nil
}

func (r *xlsxReader) formatSerial(serial float64, kind dateKind, raw string) string {
	t, err := excelize.ExcelDateToTime(serial, r.date1904)
	if err != nil {
		return raw
	}
	t = t.Round(time.Second)
	whole := serial == math.Trunc(serial)
	switch {
	case kind == timeOnly && serial < 1:
		return t.Format("15:04:05")
	case kind == dateOnly && whole:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

type dateKind int

const (
	notDate dateKind = iota
	dateOnly
	timeOnly
	dateTime
)

// classifyNumFmt maps a number format to the kind of temporal value it
// displays. Built-in ids follow ECMA-376 §18.8.30 plus the CJK locale ids.
func classifyNumFmt(id int, custom *string) dateKind {
	switch {
	case id >= 14 && id <= 17, id >= 27 && id <= 31, id >= 34 && id <= 36, id >= 50 && id <= 58:
		return dateOnly
	case id >= 18 && id <= 21, id >= 32 && id <= 33, id >= 45 && id <= 47:
		return timeOnly
	case id == 22:
		return dateTime
	}
	if custom == nil {
		return notDate
	}
	return classifyCustomFormat(*custom)
}

// classifyCustomFormat inspects format tokens outside quoted literals,
// escapes and bracketed sections such as colours and locales.
func classifyCustomFormat(format string) dateKind {
	var hasDate, hasTime bool
	inQuote := false
	inBracket := false
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			}
			continue
		case inBracket:
			if c == ']' {
				inBracket = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '[':
			inBracket = true
		case '\\', '_', '*':
			i++
		case 'y', 'Y', 'd', 'D':
			hasDate = true
		case 'h', 'H', 's', 'S':
			hasTime = true
		}
	}
	switch {
	case hasDate && hasTime:
		return dateTime
	case hasDate:
		return dateOnly
	case hasTime:
		return timeOnly
	}
	return notDate
}

func (r *xlsxReader) Close() error {
	rowsErr := r.rows.Close()
	if err := r.file.Close(); err != nil {
		return err
	}
	return rowsErr
}

// xlsReader walks the first sheet of a legacy BIFF workbook.
type xlsReader struct {
	file  *os.File
	sheet *xls.WorkSheet
	next  int
}

func openXLS(path string) (*xlsReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: no worksheet found: %w", path, payetl.ErrUnsupportedFormat)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		f.Close()
		return nil, fmt.Errorf("%s: no worksheet found: %w", path, payetl.ErrUnsupportedFormat)
	}
	return &xlsReader{file: f, sheet: sheet}, nil
}

func (r *xlsReader) Next() ([]string, bool, error) {
	if r.next > int(r.sheet.MaxRow) {
		return nil, false, nil
	}
	row := rowAt(r.sheet, r.next)
	r.next++
	if row == nil {
		return []string{}, true, nil
	}
	cells := make([]string, row.LastCol())
	for c := row.FirstCol(); c < row.LastCol(); c++ {
		cells[c] = row.Col(c)
	}
	return cells, true, nil
}

// rowAt returns nil for rows the workbook never stored. WorkSheet.Row
// dereferences the missing entry, so the panic is the only signal.
func rowAt(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func (r *xlsReader) Close() error {
	return r.file.Close()
}

// IsBlankRow reports whether every cell is empty or whitespace.
func IsBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// NullIfBlank maps blank cells to nil so they load as SQL NULL.
func NullIfBlank(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
