package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB records statements and their transaction boundaries.
type fakeDB struct {
	// failOn makes the Nth Exec (1-based) fail.
	failOn int
	// conflicts is how many rows of each INSERT are reported as skipped.
	conflicts int64

	execs     int
	begins    int
	commits   int
	rollbacks int
	stmts     []string
	argCounts []int
}

type fakeTx struct {
	pgx.Tx
	db   *fakeDB
	done bool
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	f.begins++
	return &fakeTx{db: f}, nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f := t.db
	f.execs++
	if f.failOn == f.execs {
		return pgconn.CommandTag{}, errors.New("duplicate key value violates something")
	}
	f.stmts = append(f.stmts, sql)
	f.argCounts = append(f.argCounts, len(args))
	if strings.HasPrefix(sql, "INSERT") {
		rows := int64(strings.Count(sql, "("))
		rows-- // column list
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", rows-f.conflicts)), nil
	}
	return pgconn.NewCommandTag("TRUNCATE TABLE"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.commits++
	return nil
}

// Rollback after Commit is a no-op, as with a real transaction.
func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.rollbacks++
	return nil
}

// sliceSource serves fixed rows.
type sliceSource struct {
	rows   [][]any
	next   int
	closed bool
}

func rowsOf(n, width int) *sliceSource {
	s := &sliceSource{}
	for i := 0; i < n; i++ {
		row := make([]any, width)
		row[0] = fmt.Sprintf("%d", i)
		s.rows = append(s.rows, row)
	}
	return s
}

func (s *sliceSource) Next() ([]any, bool, error) {
	if s.next >= len(s.rows) {
		return nil, false, nil
	}
	s.next++
	return s.rows[s.next-1], true, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}
