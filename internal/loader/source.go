package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vvka-141/payetl/internal/sheet"
)

// RowSource yields insert-ready rows one at a time. Every row has exactly
// the width the source was opened with; blank cells are nil.
type RowSource interface {
	Next() ([]any, bool, error)
	Close() error
}

// CSVSource reads a cleaned CSV, skipping its header row.
type CSVSource struct {
	file  *os.File
	r     *csv.Reader
	width int
}

// OpenCSV opens path and consumes the header.
func OpenCSV(path string, width int) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return &CSVSource{file: f, r: r, width: width}, nil
}

func (s *CSVSource) Next() ([]any, bool, error) {
	rec, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return fit(rec, s.width), true, nil
}

func (s *CSVSource) Close() error {
	return s.file.Close()
}

// SpreadsheetSource reads a sheet whose first row is the header. Blank rows
// are skipped.
type SpreadsheetSource struct {
	r     sheet.Reader
	width int
}

// OpenSpreadsheet opens path and consumes the header.
func OpenSpreadsheet(path string, width int) (*SpreadsheetSource, error) {
	r, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	if _, _, err := r.Next(); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return &SpreadsheetSource{r: r, width: width}, nil
}

func (s *SpreadsheetSource) Next() ([]any, bool, error) {
	for {
		row, ok, err := s.r.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		if sheet.IsBlankRow(row) {
			continue
		}
		return fit(row, s.width), true, nil
	}
}

func (s *SpreadsheetSource) Close() error {
	return s.r.Close()
}

// fit maps cells to nil-for-blank and pads or truncates to width.
func fit(cells []string, width int) []any {
	out := make([]any, width)
	for i := 0; i < width && i < len(cells); i++ {
		out[i] = sheet.NullIfBlank(cells[i])
	}
	return out
}
