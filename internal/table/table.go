// Package table holds the normalized tabular representation of query results
// and the conversion rules from the heterogeneous raw shapes that the
// warehouse and the generative agent can return.
package table

import (
	"fmt"
	"sort"
	"time"
)

// Table is an ordered set of named columns with row-major data. All rows have
// the same length as Columns. A zero-column, zero-row table is valid and
// represents "no data".
type Table struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the table holds no data.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// NumRows returns the row count.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the column count.
func (t Table) NumColumns() int {
	return len(t.Columns)
}

// Normalize converts a raw query result into a Table. It never fails:
// unrecognized shapes degrade to the empty table.
//
// Dispatch rules:
//   - Table: returned as-is (result already carries its schema)
//   - sequence of row sequences: multi-column, names synthesized as col_0...
//   - sequence of scalars: single column named "value"
//   - mapping: one-row table, keys as columns
//   - scalar (string, number, bool, time): one-column one-row table
//   - anything else, including nil: empty table
func Normalize(raw any) Table {
	switch v := raw.(type) {
	case nil:
		return Table{}
	case Table:
		return v
	case *Table:
		if v == nil {
			return Table{}
		}
		return *v
	case [][]any:
		return fromRows(v)
	case []any:
		return fromSequence(v)
	case map[string]any:
		return fromMapping(v)
	default:
		if isScalar(raw) {
			return Table{Columns: []string{"value"}, Rows: [][]any{{raw}}}
		}
		return Table{}
	}
}

// fromRows builds a multi-column table from a list of row sequences, padding
// or truncating ragged rows against the width of the first row.
func fromRows(rows [][]any) Table {
	if len(rows) == 0 {
		return Table{}
	}
	width := len(rows[0])
	if width == 0 {
		return Table{}
	}
	cols := make([]string, width)
	for i := range cols {
		cols[i] = fmt.Sprintf("col_%d", i)
	}
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		r := make([]any, width)
		copy(r, row)
		out = append(out, r)
	}
	return Table{Columns: cols, Rows: out}
}

// fromSequence handles []any input: if every element is itself a sequence the
// input is a list of rows, otherwise it is a single "value" column.
func fromSequence(seq []any) Table {
	if len(seq) == 0 {
		return Table{}
	}
	rows := make([][]any, 0, len(seq))
	allRows := true
	for _, el := range seq {
		switch row := el.(type) {
		case []any:
			rows = append(rows, row)
		default:
			allRows = false
		}
		if !allRows {
			break
		}
	}
	if allRows {
		return fromRows(rows)
	}
	out := make([][]any, 0, len(seq))
	for _, el := range seq {
		out = append(out, []any{el})
	}
	return Table{Columns: []string{"value"}, Rows: out}
}

// fromMapping builds a one-row table from a mapping. Go maps have no insertion
// order, so keys are emitted in sorted order for determinism.
func fromMapping(m map[string]any) Table {
	if len(m) == 0 {
		return Table{}
	}
	cols := sortedKeys(m)
	row := make([]any, 0, len(cols))
	for _, k := range cols {
		row = append(row, m[k])
	}
	return Table{Columns: cols, Rows: [][]any{row}}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time:
		return true
	}
	return false
}

// AsFloat coerces a cell value to a float64, reporting whether the value is
// numeric. Used by the plot reduction and rendering paths.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// FormatCell renders a cell value for display. Timestamps use a compact
// minute-resolution format.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format("2006-01-02 15:04")
	case string:
		return t
	default:
		return fmt.Sprintf("%v", v)
	}
}
