// Package table holds the in-memory tabular form shared by every pipeline stage.
// A nil cell is missing; NaN floats are treated as missing too.
package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Row map[string]any

// Table is a list of rows with an ordered column set.
type Table struct {
	Columns []string
	Rows    []Row
}

func New(cols []string, rows []Row) *Table {
	return &Table{Columns: append([]string(nil), cols...), Rows: rows}
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// AddColumn appends col to the column order if it is not present yet.
func (t *Table) AddColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

// DropColumns removes cols from the column order and from every row.
// Columns that do not exist are ignored.
func (t *Table) DropColumns(cols ...string) {
	drop := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		drop[c] = struct{}{}
	}
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
	for _, r := range t.Rows {
		for c := range drop {
			delete(r, c)
		}
	}
}

// MapValues replaces every cell with fn(cell), including cells absent from a row.
func (t *Table) MapValues(fn func(any) any) {
	for _, r := range t.Rows {
		for _, c := range t.Columns {
			r[c] = fn(r[c])
		}
	}
}

// Apply replaces the cells of one column with fn(cell). A column that does not
// exist yet is added and fn sees nil for every row.
func (t *Table) Apply(col string, fn func(any) any) {
	t.AddColumn(col)
	for _, r := range t.Rows {
		r[col] = fn(r[col])
	}
}

// DropDuplicates keeps the first row for every distinct combination of subset
// values. Missing values compare equal to each other.
func (t *Table) DropDuplicates(subset ...string) int {
	seen := make(map[string]struct{}, len(t.Rows))
	out := t.Rows[:0]
	dropped := 0
	for _, r := range t.Rows {
		k := rowKey(r, subset)
		if _, ok := seen[k]; ok {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	t.Rows = out
	return dropped
}

// DropMissing removes rows holding a missing value in any subset column.
func (t *Table) DropMissing(subset ...string) int {
	out := t.Rows[:0]
	dropped := 0
	for _, r := range t.Rows {
		keep := true
		for _, c := range subset {
			if IsMissing(r[c]) {
				keep = false
				break
			}
		}
		if !keep {
			dropped++
			continue
		}
		out = append(out, r)
	}
	t.Rows = out
	return dropped
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) int {
	out := t.Rows[:0]
	dropped := 0
	for _, r := range t.Rows {
		if keep(r) {
			out = append(out, r)
		} else {
			dropped++
		}
	}
	t.Rows = out
	return dropped
}

// Column returns the cells of col in row order.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// Distinct counts the distinct non-missing values of col.
func (t *Table) Distinct(col string) int {
	set := map[string]struct{}{}
	for _, r := range t.Rows {
		v := r[col]
		if IsMissing(v) {
			continue
		}
		set[Canonical(v)] = struct{}{}
	}
	return len(set)
}

func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// Canonical renders v as a comparison key.
func Canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func rowKey(r Row, subset []string) string {
	var sb strings.Builder
	for i, c := range subset {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		v := r[c]
		if IsMissing(v) {
			sb.WriteString("\x00NA")
			continue
		}
		// type prefix keeps "1" and 1.0 apart
		sb.WriteString(fmt.Sprintf("%T:", v))
		sb.WriteString(Canonical(v))
	}
	return sb.String()
}
