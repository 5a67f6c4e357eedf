// Package loader replaces the warehouse tables with the cleaned payroll
// rows: truncate, then conflict-tolerant batched inserts.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/payetl/internal/logging"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// TxStarter begins a transaction. *pgxpool.Pool and *pgx.Conn satisfy it.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Sources holds one row source per destination table.
type Sources struct {
	Provider RowSource
	Staff    RowSource
	Labor    RowSource
}

// Close closes every non-nil source.
func (s Sources) Close() error {
	var errs []error
	for _, src := range []RowSource{s.Provider, s.Staff, s.Labor} {
		if src != nil {
			errs = append(errs, src.Close())
		}
	}
	return errors.Join(errs...)
}

// Loader inserts rows in batches of BatchSize.
//
// By default the truncate and every batch commit on their own, so a failure
// mid-load leaves the tables partially filled. With Atomic set the whole load
// is one transaction and a failure leaves the previous contents untouched.
type Loader struct {
	BatchSize int
	Atomic    bool
	Logger    payetl.Logger
}

// New returns a Loader; a non-positive batchSize selects the default.
func New(batchSize int, atomic bool, logger payetl.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = payetl.DefaultBatchSize
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Loader{BatchSize: batchSize, Atomic: atomic, Logger: logger}
}

type execFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

// Load truncates the three tables and inserts provider, staff and labor rows
// in that order.
func (l *Loader) Load(ctx context.Context, db TxStarter, src Sources) (payetl.LoadStats, error) {
	if l.Atomic {
		var stats payetl.LoadStats
		err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			var err error
			stats, err = l.run(ctx, tx.Exec, src)
			return err
		})
		return stats, err
	}

	perStatement := func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		var tag pgconn.CommandTag
		err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			var err error
			tag, err = tx.Exec(ctx, sql, args...)
			return err
		})
		return tag, err
	}
	return l.run(ctx, perStatement, src)
}

// LoadFiles opens the cleaned CSVs and the labor spreadsheet and loads them.
func (l *Loader) LoadFiles(ctx context.Context, db TxStarter, providerCSV, staffCSV, laborPath string) (payetl.LoadStats, error) {
	var src Sources
	defer func() { _ = src.Close() }()

	provider, err := OpenCSV(providerCSV, ProviderTable.Width())
	if err != nil {
		return payetl.LoadStats{}, err
	}
	src.Provider = provider

	staff, err := OpenCSV(staffCSV, StaffTable.Width())
	if err != nil {
		return payetl.LoadStats{}, err
	}
	src.Staff = staff

	labor, err := OpenSpreadsheet(laborPath, LaborTable.Width())
	if err != nil {
		return payetl.LoadStats{}, err
	}
	src.Labor = labor

	return l.Load(ctx, db, src)
}

func (l *Loader) run(ctx context.Context, exec execFunc, src Sources) (payetl.LoadStats, error) {
	var stats payetl.LoadStats

	if _, err := exec(ctx, TruncateSQL()); err != nil {
		return stats, fmt.Errorf("%w: truncate: %w", payetl.ErrLoadFailed, err)
	}
	l.Logger.Verbose("Truncated %s, %s, %s", ProviderTable.Name, StaffTable.Name, LaborTable.Name)

	steps := []struct {
		spec TableSpec
		src  RowSource
	}{
		{ProviderTable, src.Provider},
		{StaffTable, src.Staff},
		{LaborTable, src.Labor},
	}
	for _, step := range steps {
		ts, err := l.loadTable(ctx, exec, step.spec, step.src)
		stats.Tables = append(stats.Tables, ts)
		if err != nil {
			return stats, err
		}
		l.Logger.Info("Loaded %s: %d inserted, %d skipped", ts.Table, ts.Inserted, ts.Skipped)
	}
	return stats, nil
}

func (l *Loader) loadTable(ctx context.Context, exec execFunc, spec TableSpec, src RowSource) (payetl.TableStats, error) {
	ts := payetl.TableStats{Table: spec.Name}
	if src == nil {
		return ts, nil
	}

	size := min(l.BatchSize, spec.MaxBatch())
	buf := make([]any, 0, size*spec.Width())
	rows := 0

	flush := func() error {
		if rows == 0 {
			return nil
		}
		ts.Batches++
		tag, err := exec(ctx, BuildInsert(spec, rows), buf...)
		if err != nil {
			return fmt.Errorf("%w: %s batch %d: %w", payetl.ErrLoadFailed, spec.Name, ts.Batches, err)
		}
		inserted := tag.RowsAffected()
		ts.Inserted += inserted
		ts.Skipped += int64(rows) - inserted
		l.Logger.Verbose("%s batch %d: %d of %d rows inserted", spec.Name, ts.Batches, inserted, rows)
		buf = buf[:0]
		rows = 0
		return nil
	}

	for {
		row, ok, err := src.Next()
		if err != nil {
			return ts, fmt.Errorf("%w: %s: reading source: %w", payetl.ErrLoadFailed, spec.Name, err)
		}
		if !ok {
			break
		}
		buf = append(buf, row...)
		rows++
		if rows == size {
			if err := flush(); err != nil {
				return ts, err
			}
		}
	}
	if err := flush(); err != nil {
		return ts, err
	}
	return ts, nil
}
