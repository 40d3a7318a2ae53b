package templates

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAI_Templates_LoadYAML(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "queries.yaml", `
queries:
  - description: daily sales trend
    query: SELECT date, total FROM sales GROUP BY date
  - description: top customers by revenue
    query: SELECT customer, SUM(amount) FROM sales GROUP BY customer ORDER BY 2 DESC
`)

	repo := Load(path, testLogger())
	require.False(t, repo.Empty())
	require.Len(t, repo.Templates, 2)
	require.Equal(t, "daily sales trend", repo.Templates[0].Description)
	require.Contains(t, repo.Templates[1].Query, "SUM(amount)")
}

func TestAI_Templates_LoadJSON(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "queries.json", `{"queries": [{"description": "monthly totals", "query": "SELECT month, SUM(total) FROM sales GROUP BY month"}]}`)

	repo := Load(path, testLogger())
	require.Len(t, repo.Templates, 1)
	require.Equal(t, "monthly totals", repo.Templates[0].Description)
}

func TestAI_Templates_LoadMissingFile(t *testing.T) {
	t.Parallel()

	repo := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), testLogger())
	require.True(t, repo.Empty())
}

func TestAI_Templates_LoadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "{{{{"},
		{name: "no queries key", content: `{"other": []}`},
		{name: "empty document", content: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeTemp(t, "bad.yaml", tt.content)
			repo := Load(path, testLogger())
			require.True(t, repo.Empty())
		})
	}
}

func TestAI_Templates_Descriptions(t *testing.T) {
	t.Parallel()

	repo := &Repository{Templates: []Template{
		{Description: "a", Query: "SELECT 1"},
		{Description: "b", Query: "SELECT 2"},
	}}
	require.Equal(t, []string{"a", "b"}, repo.Descriptions())

	var nilRepo *Repository
	require.True(t, nilRepo.Empty())
	require.Nil(t, nilRepo.Descriptions())
}
