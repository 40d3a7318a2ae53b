package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fathomdata/salesdesk/internal/table"
	"github.com/fathomdata/salesdesk/internal/templates"
	"github.com/stretchr/testify/require"
)

type mockQuerier struct {
	result  table.Table
	err     error
	queries []string
}

func (m *mockQuerier) Query(_ context.Context, sql string) (table.Table, error) {
	m.queries = append(m.queries, sql)
	return m.result, m.err
}

type mockAgent struct {
	result any
	err    error
	calls  int
}

func (m *mockAgent) Resolve(context.Context, string) (any, error) {
	m.calls++
	return m.result, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func salesRepo() *templates.Repository {
	return &templates.Repository{Templates: []templates.Template{
		{Description: "daily sales trend", Query: "SELECT date, total FROM sales GROUP BY date"},
	}}
}

func newResolver(t *testing.T, repo *templates.Repository, q Querier, a Agent, opts ...func(*Config)) *Resolver {
	t.Helper()
	cfg := Config{Logger: testLogger(), Repository: repo, Querier: q, Agent: a}
	for _, opt := range opts {
		opt(&cfg)
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

// Scenario A: a matching template, three result rows, chart attached.
func TestAI_Resolver_TemplatePath(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{result: table.Table{
		Columns: []string{"date", "total"},
		Rows: [][]any{
			{"2024-01-01", 100},
			{"2024-01-02", 250},
			{"2024-01-03", 175},
		},
	}}
	a := &mockAgent{}

	r := newResolver(t, salesRepo(), q, a)
	resp := r.Resolve(context.Background(), "show me daily sales")

	require.Equal(t, SourceTemplate, resp.Source)
	require.Equal(t, []string{"SELECT date, total FROM sales GROUP BY date"}, q.queries)
	require.Zero(t, a.calls)

	require.Equal(t, 2, resp.Table.NumColumns())
	require.Equal(t, 3, resp.Table.NumRows())
	require.Equal(t, "daily sales trend", resp.Title)
	require.Contains(t, resp.Text, "Based on similar intent")
	require.Contains(t, resp.Text, "daily sales trend")
	require.Contains(t, resp.Text, "2024-01-02 | 250")
	require.Contains(t, resp.Strategy, "All data shown")
	require.NotEmpty(t, resp.Chart)
}

// Scenario B: empty repository and a failing agent produce a combined error
// response with an empty table and no chart.
func TestAI_Resolver_BothPathsFail(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{}
	a := &mockAgent{err: fmt.Errorf("model unavailable")}

	r := newResolver(t, &templates.Repository{}, q, a)
	resp := r.Resolve(context.Background(), "anything")

	require.Equal(t, SourceError, resp.Source)
	require.Contains(t, resp.Text, "Both retrieval and agent failed")
	require.Contains(t, resp.Text, "no SQL template found")
	require.Contains(t, resp.Text, "model unavailable")
	require.True(t, resp.Table.Empty())
	require.Nil(t, resp.Chart)
	require.Empty(t, q.queries)
	require.Equal(t, 1, a.calls)
}

// Scenario C: 25 numeric rows reduce to the top 10 sorted descending.
func TestAI_Resolver_LargeResultTopN(t *testing.T) {
	t.Parallel()

	result := table.Table{Columns: []string{"product", "revenue"}}
	for i := 0; i < 25; i++ {
		result.Rows = append(result.Rows, []any{fmt.Sprintf("product_%d", i), i * 7})
	}
	q := &mockQuerier{result: result}

	r := newResolver(t, salesRepo(), q, &mockAgent{})
	resp := r.Resolve(context.Background(), "daily sales trend")

	require.Equal(t, SourceTemplate, resp.Source)
	// The full table is kept in the response; reduction applies to the chart.
	require.Equal(t, 25, resp.Table.NumRows())
	require.Contains(t, resp.Strategy, "top 10")
	require.Contains(t, resp.Strategy, "revenue")
	require.NotEmpty(t, resp.Chart)
}

func TestAI_Resolver_TemplateFailureFallsToAgent(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{err: fmt.Errorf("table sales does not exist")}
	a := &mockAgent{result: map[string]any{"result": table.Table{
		Columns: []string{"total"},
		Rows:    [][]any{{int64(42)}},
	}}}

	r := newResolver(t, salesRepo(), q, a)
	resp := r.Resolve(context.Background(), "daily sales trend")

	require.Equal(t, SourceAgent, resp.Source)
	require.Equal(t, 1, a.calls)
	require.Contains(t, resp.Text, "Generated via SQL agent")
	require.Equal(t, 1, resp.Table.NumRows())
	require.Equal(t, "daily sales trend", resp.Title)
}

func TestAI_Resolver_AgentRawResultWithoutMapping(t *testing.T) {
	t.Parallel()

	a := &mockAgent{result: []any{"north", "south"}}

	r := newResolver(t, &templates.Repository{}, &mockQuerier{}, a)
	resp := r.Resolve(context.Background(), "list regions")

	require.Equal(t, SourceAgent, resp.Source)
	require.Equal(t, []string{"value"}, resp.Table.Columns)
	require.Contains(t, resp.Text, "- north")
	// Single-column tables are not chartable.
	require.Nil(t, resp.Chart)
}

func TestAI_Resolver_MinMatchScoreDefersToAgent(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{}
	a := &mockAgent{result: "no data"}

	r := newResolver(t, salesRepo(), q, a, func(c *Config) { c.MinMatchScore = 0.9 })
	resp := r.Resolve(context.Background(), "completely unrelated question about weather")

	require.Equal(t, SourceAgent, resp.Source)
	require.Empty(t, q.queries)
}

func TestAI_Resolver_EscapeAppliedToInterpolatedValues(t *testing.T) {
	t.Parallel()

	repo := &templates.Repository{Templates: []templates.Template{
		{Description: "totals *by* region", Query: "SELECT region, total FROM sales"},
	}}
	q := &mockQuerier{result: table.Table{
		Columns: []string{"region", "total"},
		Rows:    [][]any{{"<east>", 10}},
	}}

	escape := func(s string) string {
		r := strings.NewReplacer("*", `\*`, "<", "&lt;", ">", "&gt;")
		return r.Replace(s)
	}

	r := newResolver(t, repo, q, &mockAgent{}, func(c *Config) { c.Escape = escape })
	resp := r.Resolve(context.Background(), "totals *by* region")

	require.Contains(t, resp.Text, `totals \*by\* region`)
	require.Contains(t, resp.Text, "&lt;east&gt;")
}

func TestAI_Resolver_EmptyResultTextOnly(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{result: table.Table{Columns: []string{"date", "total"}}}

	r := newResolver(t, salesRepo(), q, &mockAgent{})
	resp := r.Resolve(context.Background(), "daily sales trend")

	require.Equal(t, SourceTemplate, resp.Source)
	require.Contains(t, resp.Text, "Query returned no results.")
	require.Nil(t, resp.Chart)
}

func TestAI_Resolver_ContextPropagates(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	q := &mockQuerier{result: table.Table{Columns: []string{"value"}, Rows: [][]any{{1}}}}
	r := newResolver(t, salesRepo(), q, &mockAgent{})
	resp := r.Resolve(ctx, "daily sales trend")
	require.Equal(t, SourceTemplate, resp.Source)
}

func TestAI_Resolver_FormatBody(t *testing.T) {
	t.Parallel()

	ident := func(s string) string { return s }

	require.Equal(t, "Query returned no results.", FormatBody(table.Table{}, ident))

	single := table.Table{Columns: []string{"value"}, Rows: [][]any{{"a"}, {"b"}}}
	require.Equal(t, "- a\n- b", FormatBody(single, ident))

	multi := table.Table{
		Columns: []string{"date", "total"},
		Rows: [][]any{
			{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), 99},
		},
	}
	require.Equal(t, "2024-05-01 12:00 | 99", FormatBody(multi, ident))
}
