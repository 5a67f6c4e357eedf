package loader

import (
	"fmt"
	"strings"

	"github.com/vvka-141/payetl/pkg/payetl"
)

// TableSpec is a destination table and its insert column order.
type TableSpec struct {
	Name    string
	Columns []string
}

var chargeColumns = []string{
	"ee_id", "employee_name", "shift_date", "day", "pay_type",
	"reg_hours", "ot1_hours", "ot2_hours", "unpaid_hours",
	"time_in", "time_out", "cc1", "cc2",
	"reg_charge_rate", "ot_charge_rate",
	"reg_charge_amount", "ot_charge_amount", "total_charge_amount",
	"reg_pay_rate", "ot_pay_rate",
	"reg_paid", "ot_paid", "total_pay_amount",
}

var laborColumns = []string{
	"company", "ee_id", "cntlast", "cntfirst", "cntdept", "cndarea",
	"last_check_dt", "cc1", "cc2",
	"reg_hours", "reg_amount", "ot_hours", "ot_amount",
	"bonus_amount", "other_amount",
	"suta", "futa", "ss_tax", "mcare_tax", "other_tax",
	"ret_ben", "med_ben", "dent_ben", "vis_ben", "oth_ben",
}

var (
	ProviderTable = TableSpec{Name: payetl.TableProvider, Columns: chargeColumns}
	StaffTable    = TableSpec{Name: payetl.TableStaff, Columns: chargeColumns}
	LaborTable    = TableSpec{Name: payetl.TableLabor, Columns: laborColumns}
)

// Tables lists the destination tables in load order.
func Tables() []TableSpec {
	return []TableSpec{ProviderTable, StaffTable, LaborTable}
}

// Width is the number of insert columns.
func (t TableSpec) Width() int {
	return len(t.Columns)
}

// maxParams is PostgreSQL's bind parameter limit per statement.
const maxParams = 65535

// MaxBatch is the largest row count one INSERT can carry for this table.
func (t TableSpec) MaxBatch() int {
	return maxParams / len(t.Columns)
}

// BuildInsert returns a multi-row INSERT for n rows that ignores rows
// colliding with a uniqueness constraint.
func BuildInsert(t TableSpec, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(t.Columns, ", "))
	b.WriteString(") VALUES ")

	width := len(t.Columns)
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", r*width+c+1)
		}
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT DO NOTHING")
	return b.String()
}

// TruncateSQL empties every destination table in one statement.
func TruncateSQL() string {
	names := make([]string, 0, 3)
	for _, t := range Tables() {
		names = append(names, t.Name)
	}
	return "TRUNCATE " + strings.Join(names, ", ")
}
