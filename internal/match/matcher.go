// Package match finds the template whose description is closest to a user
// question, using TF-IDF term weighting and cosine similarity over the
// combined vocabulary of the question and every template description.
package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/fathomdata/salesdesk/internal/templates"
)

// Method selects the similarity scoring method.
type Method string

const (
	// MethodCosine scores by cosine similarity of TF-IDF vectors.
	MethodCosine Method = "cosine"
)

// ErrUnsupportedMethod is returned for any method other than cosine. Other
// methods must fail loudly rather than silently substituting cosine.
var ErrUnsupportedMethod = errors.New("unsupported similarity method")

// Match is the chosen template plus its similarity score against the question.
type Match struct {
	Description string
	Query       string
	Score       float64
}

// tokenPattern matches word tokens of two or more characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Best returns the template whose description scores highest against the
// question. Ties resolve to the first template in repository order. A nil or
// empty repository yields a nil match. No minimum score is enforced here;
// callers wanting a confidence floor check Match.Score themselves.
func Best(question string, repo *templates.Repository, method Method) (*Match, error) {
	if method != MethodCosine {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if repo.Empty() {
		return nil, nil
	}

	corpus := repo.Descriptions()
	docs := make([][]string, 0, len(corpus)+1)
	docs = append(docs, tokenize(question))
	for _, d := range corpus {
		docs = append(docs, tokenize(d))
	}

	vectors := vectorize(docs)

	bestIdx := 0
	bestScore := math.Inf(-1)
	for i := 1; i < len(vectors); i++ {
		score := cosine(vectors[0], vectors[i])
		if score > bestScore {
			bestScore = score
			bestIdx = i - 1
		}
	}

	tpl := repo.Templates[bestIdx]
	return &Match{
		Description: tpl.Description,
		Query:       tpl.Query,
		Score:       bestScore,
	}, nil
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// vectorize builds L2-normalized TF-IDF vectors over the shared vocabulary of
// all documents. IDF uses the smoothed form ln((1+n)/(1+df)) + 1 so terms
// present in every document still carry weight.
func vectorize(docs [][]string) []map[string]float64 {
	n := float64(len(docs))

	df := make(map[string]float64)
	counts := make([]map[string]float64, len(docs))
	for i, doc := range docs {
		tf := make(map[string]float64)
		for _, tok := range doc {
			tf[tok]++
		}
		counts[i] = tf
		for tok := range tf {
			df[tok]++
		}
	}

	idf := make(map[string]float64, len(df))
	for tok, d := range df {
		idf[tok] = math.Log((1+n)/(1+d)) + 1
	}

	vectors := make([]map[string]float64, len(docs))
	for i, tf := range counts {
		vec := make(map[string]float64, len(tf))
		var norm float64
		for tok, count := range tf {
			w := count * idf[tok]
			vec[tok] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for tok := range vec {
				vec[tok] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// cosine computes the dot product of two L2-normalized sparse vectors.
func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for tok, wa := range a {
		if wb, ok := b[tok]; ok {
			dot += wa * wb
		}
	}
	return dot
}
