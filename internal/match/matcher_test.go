package match

import (
	"testing"

	"github.com/fathomdata/salesdesk/internal/templates"
	"github.com/stretchr/testify/require"
)

func testRepo() *templates.Repository {
	return &templates.Repository{Templates: []templates.Template{
		{Description: "daily sales trend", Query: "SELECT date, total FROM sales GROUP BY date"},
		{Description: "top customers by revenue", Query: "SELECT customer, revenue FROM sales ORDER BY revenue DESC"},
		{Description: "orders per region last month", Query: "SELECT region, COUNT(*) FROM orders GROUP BY region"},
	}}
}

func TestAI_Match_ExactDescriptionWins(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	for _, tpl := range repo.Templates {
		m, err := Best(tpl.Description, repo, MethodCosine)
		require.NoError(t, err)
		require.NotNil(t, m)
		require.Equal(t, tpl.Description, m.Description)
		require.Equal(t, tpl.Query, m.Query)
		require.InDelta(t, 1.0, m.Score, 1e-9)
	}
}

func TestAI_Match_SimilarQuestion(t *testing.T) {
	t.Parallel()

	m, err := Best("show me daily sales", testRepo(), MethodCosine)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "daily sales trend", m.Description)
	require.Greater(t, m.Score, 0.0)
}

func TestAI_Match_EmptyRepository(t *testing.T) {
	t.Parallel()

	m, err := Best("anything", &templates.Repository{}, MethodCosine)
	require.NoError(t, err)
	require.Nil(t, m)

	m, err = Best("anything", nil, MethodCosine)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestAI_Match_UnsupportedMethod(t *testing.T) {
	t.Parallel()

	tests := []string{"bm25", "jaccard", "", "COSINE"}
	for _, method := range tests {
		_, err := Best("anything", testRepo(), Method(method))
		require.ErrorIs(t, err, ErrUnsupportedMethod)
	}
}

func TestAI_Match_AlwaysReturnsMatchForNonEmptyRepo(t *testing.T) {
	t.Parallel()

	// No confidence threshold: even an orthogonal question returns the best
	// (possibly zero-score) match.
	m, err := Best("completely unrelated gibberish zzz", testRepo(), MethodCosine)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.GreaterOrEqual(t, m.Score, 0.0)
}

func TestAI_Match_TieBreaksToFirstTemplate(t *testing.T) {
	t.Parallel()

	repo := &templates.Repository{Templates: []templates.Template{
		{Description: "weekly revenue", Query: "SELECT 1"},
		{Description: "weekly revenue", Query: "SELECT 2"},
	}}
	m, err := Best("weekly revenue", repo, MethodCosine)
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", m.Query)
}
