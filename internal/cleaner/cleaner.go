// Package cleaner reshapes provider and staff charge exports into flat CSV
// tables: it strips the title region above the header, drops the redundant
// column and concatenates same-category files.
package cleaner

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/vvka-141/payetl/internal/logging"
	"github.com/vvka-141/payetl/internal/sheet"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// Table is one cleaned category: a header and its data rows in file order.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cleaner holds the layout of the source exports.
type Cleaner struct {
	// SkipRows leading rows are discarded before the header row.
	SkipRows int
	// DropColumn is removed from the header and every row wide enough to have it.
	DropColumn int
	// OutDir receives the cleaned CSV files.
	OutDir string
	Logger payetl.Logger
}

// New returns a Cleaner with the standard export layout.
func New(outDir string, logger payetl.Logger) *Cleaner {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Cleaner{
		SkipRows:   payetl.DefaultHeaderSkipRows,
		DropColumn: payetl.DroppedColumnIndex,
		OutDir:     outDir,
		Logger:     logger,
	}
}

// CleanFile reads one export. A file with nothing after the skip region
// returns a nil header.
func (c *Cleaner) CleanFile(path string) ([]string, [][]string, error) {
	r, err := sheet.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	for i := 0; i < c.SkipRows; i++ {
		_, ok, err := r.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !ok {
			return nil, nil, nil
		}
	}

	header, ok, err := r.Next()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !ok {
		return nil, nil, nil
	}
	header = c.dropColumn(trimTrailingBlank(header))

	var rows [][]string
	for {
		row, ok, err := r.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !ok {
			break
		}
		row = c.dropColumn(row)
		if sheet.IsBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// CleanFiles concatenates the files of one category. Every header must equal
// the first non-empty file's header.
func (c *Cleaner) CleanFiles(paths []string) (*Table, error) {
	var table *Table
	for _, p := range paths {
		header, rows, err := c.CleanFile(p)
		if err != nil {
			return nil, err
		}
		if header == nil {
			c.Logger.Verbose("%s has no rows after the first %d, skipping", p, c.SkipRows)
			continue
		}
		if table == nil {
			table = &Table{Header: header}
		} else if !slices.Equal(header, table.Header) {
			return nil, &payetl.HeaderMismatchError{Path: p, Want: table.Header, Got: header}
		}
		table.Rows = append(table.Rows, rows...)
		c.Logger.Verbose("Cleaned %s: %d rows", p, len(rows))
	}
	if table == nil {
		return nil, payetl.ErrNoData
	}
	return table, nil
}

// WriteCSV writes the table to OutDir/name and returns the path.
func (c *Cleaner) WriteCSV(t *Table, name string) (string, error) {
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(c.OutDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// CleanProviderAndStaff cleans both categories and only then writes
// cleaned_clinic_ccprov.csv and cleaned_clinic_ccstaff.csv.
func (c *Cleaner) CleanProviderAndStaff(providerPaths, staffPaths []string) (string, string, error) {
	provider, err := c.CleanFiles(providerPaths)
	if err != nil {
		return "", "", fmt.Errorf("provider files: %w", err)
	}
	staff, err := c.CleanFiles(staffPaths)
	if err != nil {
		return "", "", fmt.Errorf("staff files: %w", err)
	}

	providerCSV, err := c.WriteCSV(provider, payetl.CleanedProviderFile)
	if err != nil {
		return "", "", err
	}
	staffCSV, err := c.WriteCSV(staff, payetl.CleanedStaffFile)
	if err != nil {
		return "", "", err
	}
	c.Logger.Info("Cleaned %d provider rows and %d staff rows", len(provider.Rows), len(staff.Rows))
	return providerCSV, staffCSV, nil
}

func (c *Cleaner) dropColumn(row []string) []string {
	if c.DropColumn < 0 || len(row) <= c.DropColumn {
		return row
	}
	out := make([]string, 0, len(row)-1)
	out = append(out, row[:c.DropColumn]...)
	return append(out, row[c.DropColumn+1:]...)
}

func trimTrailingBlank(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}
