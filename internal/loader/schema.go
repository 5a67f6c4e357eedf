package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. Pools, connections and transactions satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// uniqueKeys are the business keys the warehouse deduplicates on.
var uniqueKeys = map[string][]string{
	ProviderTable.Name: {"ee_id", "shift_date", "pay_type", "time_in"},
	StaffTable.Name:    {"ee_id", "shift_date", "pay_type", "time_in"},
	LaborTable.Name:    {"company", "ee_id"},
}

// SchemaSQL returns the reference DDL for the destination tables. Every
// column is text; the warehouse casts on read.
func SchemaSQL() string {
	var b strings.Builder
	b.WriteString("CREATE SCHEMA IF NOT EXISTS app;\n")
	for _, t := range Tables() {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "    %s text,\n", c)
		}
		fmt.Fprintf(&b, "    UNIQUE (%s)\n);\n", strings.Join(uniqueKeys[t.Name], ", "))
	}
	return b.String()
}

// EnsureSchema creates the destination schema and tables if absent.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, SchemaSQL()); err != nil {
		return fmt.Errorf("failed to create warehouse schema: %w", err)
	}
	return nil
}
