package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vvka-141/payetl/pkg/payetl"
)

// mockConnector counts Connect calls and either delegates or fails.
type mockConnector struct {
	mu       sync.Mutex
	calls    int
	delegate payetl.Connector
}

func (m *mockConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delegate == nil {
		return nil, fmt.Errorf("%w: no database in unit tests", payetl.ErrConnectionFailed)
	}
	return m.delegate.Connect(ctx)
}

func (m *mockConnector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recordingLogger keeps every line for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Verbose(format string, args ...interface{}) { l.add(format, args...) }
func (l *recordingLogger) Info(format string, args ...interface{})    { l.add(format, args...) }
func (l *recordingLogger) Error(format string, args ...interface{})   { l.add(format, args...) }

// chargeExport renders a provider/staff export: five title rows, a header
// with the redundant third column, then data rows of 24 cells.
func chargeExport(t *testing.T, headerTag string, ids ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sh := f.GetSheetName(0)

	require.NoError(t, f.SetCellStr(sh, "A1", "Cost Center Charge Report"))
	require.NoError(t, f.SetCellStr(sh, "A3", "Clinic"))

	header := make([]any, 24)
	for i := range header {
		header[i] = fmt.Sprintf("col%d", i)
	}
	header[2] = "Dept Code"
	header[23] = "Total Pay" + headerTag
	require.NoError(t, f.SetSheetRow(sh, "A6", &header))

	for i, id := range ids {
		row := make([]any, 24)
		row[0] = id
		row[1] = "Employee " + id
		row[2] = "dropped"
		row[3] = "2024-03-01"
		row[5] = "REG"
		row[10] = "08:00"
		row[23] = "100.00"
		require.NoError(t, f.SetSheetRow(sh, fmt.Sprintf("A%d", 7+i), &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// laborExport renders a labor summary: header on row one, then rows.
func laborExport(t *testing.T, ids ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sh := f.GetSheetName(0)

	header := make([]any, 25)
	for i := range header {
		header[i] = fmt.Sprintf("h%d", i)
	}
	require.NoError(t, f.SetSheetRow(sh, "A1", &header))
	for i, id := range ids {
		row := []any{"ACME", id, "Last", "First"}
		require.NoError(t, f.SetSheetRow(sh, fmt.Sprintf("A%d", 2+i), &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
