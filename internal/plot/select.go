// Package plot reduces result tables to a chart-friendly subset of rows and
// renders them as in-memory PNG bar charts.
package plot

import (
	"fmt"
	"sort"

	"github.com/fathomdata/salesdesk/internal/table"
)

// DefaultMaxItems is the default cap on chart rows.
const DefaultMaxItems = 10

// Spec is a reduced table plus a human-readable note on how it was reduced.
type Spec struct {
	Table    table.Table
	Strategy string
}

// SelectForPlot shrinks a table to at most maxItems rows. Small tables pass
// through unchanged. Larger tables with a numeric second column are sorted by
// that column descending and truncated; anything else keeps the first
// maxItems rows in original order. Sort inspection never propagates a
// failure: a non-numeric or mixed column falls back to the first-N branch.
func SelectForPlot(t table.Table, maxItems int) Spec {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	if t.NumRows() <= maxItems {
		return Spec{Table: t, Strategy: "All data shown (within visualization limits)"}
	}

	if t.NumColumns() >= 2 && numericColumn(t, 1) {
		sorted := make([][]any, len(t.Rows))
		copy(sorted, t.Rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, _ := table.AsFloat(sorted[i][1])
			b, _ := table.AsFloat(sorted[j][1])
			return a > b
		})
		return Spec{
			Table:    table.Table{Columns: t.Columns, Rows: sorted[:maxItems]},
			Strategy: fmt.Sprintf("Showing top %d items sorted by %s", maxItems, t.Columns[1]),
		}
	}

	return Spec{
		Table:    table.Table{Columns: t.Columns, Rows: t.Rows[:maxItems]},
		Strategy: fmt.Sprintf("Showing first %d items", maxItems),
	}
}

// numericColumn reports whether every value in column idx is numeric.
func numericColumn(t table.Table, idx int) bool {
	for _, row := range t.Rows {
		if idx >= len(row) {
			return false
		}
		if _, ok := table.AsFloat(row[idx]); !ok {
			return false
		}
	}
	return true
}
