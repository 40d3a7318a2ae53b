package plot

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/fathomdata/salesdesk/internal/table"
)

const (
	chartWidth  = 1024
	chartHeight = 640

	// Rotate x labels past this row count to avoid overlap.
	rotateLabelsAbove = 5
)

// Render draws a bar chart for the table: x labels from the first column,
// bar heights from the second. Returns nil bytes (and no error) when the
// table is not chartable: empty, fewer than two columns, or a non-numeric
// second column. The strategy note, when present, is appended to the title
// on a second line.
func Render(t table.Table, title, strategy string) ([]byte, error) {
	if t.Empty() || t.NumColumns() < 2 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, t.NumRows())
	for _, row := range t.Rows {
		y, ok := table.AsFloat(row[1])
		if !ok {
			return nil, nil
		}
		bars = append(bars, chart.Value{
			Label: table.FormatCell(row[0]),
			Value: y,
		})
	}

	if strategy != "" {
		title = fmt.Sprintf("%s\n(%s)", title, strategy)
	}

	xStyle := chart.Style{}
	if t.NumRows() > rotateLabelsAbove {
		xStyle.TextRotationDegrees = 45
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: barWidth(t.NumRows()),
		XAxis:    xStyle,
		YAxis: chart.YAxis{
			Name: t.Columns[1],
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// barWidth scales bars down as the row count grows so the chart stays inside
// its fixed width.
func barWidth(rows int) int {
	if rows <= 0 {
		return 60
	}
	w := (chartWidth - 100) / rows
	if w > 80 {
		w = 80
	}
	if w < 12 {
		w = 12
	}
	return w
}
