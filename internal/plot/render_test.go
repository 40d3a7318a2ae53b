package plot

import (
	"bytes"
	"testing"

	"github.com/fathomdata/salesdesk/internal/table"
	"github.com/stretchr/testify/require"
)

// pngMagic is the PNG file signature.
var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestAI_Plot_RenderValidTable(t *testing.T) {
	t.Parallel()

	in := table.Table{
		Columns: []string{"date", "total"},
		Rows: [][]any{
			{"2024-01-01", 120},
			{"2024-01-02", 340},
			{"2024-01-03", 210},
		},
	}

	img, err := Render(in, "Results for: daily sales trend", "All data shown")
	require.NoError(t, err)
	require.NotEmpty(t, img)
	require.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestAI_Plot_RenderManyRowsRotatesLabels(t *testing.T) {
	t.Parallel()

	spec := SelectForPlot(numericTable(25), 10)
	img, err := Render(spec.Table, "top items", spec.Strategy)
	require.NoError(t, err)
	require.NotEmpty(t, img)
}

func TestAI_Plot_RenderUnchartableTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   table.Table
	}{
		{name: "empty table", in: table.Table{}},
		{
			name: "single column",
			in:   table.Table{Columns: []string{"value"}, Rows: [][]any{{1}, {2}}},
		},
		{
			name: "zero rows",
			in:   table.Table{Columns: []string{"a", "b"}},
		},
		{
			name: "non-numeric second column",
			in:   table.Table{Columns: []string{"a", "b"}, Rows: [][]any{{"x", "y"}}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			img, err := Render(tt.in, "title", "")
			require.NoError(t, err)
			require.Nil(t, img)
		})
	}
}
