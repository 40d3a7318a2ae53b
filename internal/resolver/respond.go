package resolver

import (
	"strings"

	"github.com/fathomdata/salesdesk/internal/table"
)

// FormatBody renders a table as message text. Multi-column tables become
// pipe-separated rows; single-column tables become a bulleted list; every
// cell is escaped before interpolation.
func FormatBody(t table.Table, escape func(string) string) string {
	if t.Empty() {
		return "Query returned no results."
	}

	if t.NumColumns() == 1 {
		lines := make([]string, 0, t.NumRows())
		for _, row := range t.Rows {
			lines = append(lines, "- "+escape(table.FormatCell(row[0])))
		}
		return strings.Join(lines, "\n")
	}

	lines := make([]string, 0, t.NumRows())
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, escape(table.FormatCell(v)))
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}
