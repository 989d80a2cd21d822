// Package recommend ranks establishments by similarity to the first one whose
// trade name contains a query.
package recommend

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

var (
	// ErrEmptyQuery is returned before searching when the query has no text.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrInvalidCount is returned when fewer than one recommendation is requested.
	ErrInvalidCount = errors.New("recommendation count must be at least 1")
	// ErrMisaligned is returned when the matrix was not built from the table.
	ErrMisaligned = errors.New("similarity matrix does not match table")
)

// Scorer gives the similarity between two rows of a table.
type Scorer interface {
	Len() int
	At(i, j int) float64
}

// Item is one ranked establishment.
type Item struct {
	Index    int     `json:"index"`
	Score    float64 `json:"score"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Locality string  `json:"locality"`
}

// Result is the outcome of a query. Found is false when no trade name matched;
// that is a normal outcome, not an error.
type Result struct {
	Query string `json:"query"`
	Found bool   `json:"found"`
	// Match is the establishment the query resolved to (score 1).
	Match Item `json:"match"`
	// Matches counts every row whose trade name contains the query; only the
	// first one in table order is used.
	Matches int    `json:"matches"`
	Items   []Item `json:"items"`
}

// Recommend finds the first row whose trade name contains query (case
// insensitive) and returns up to n other rows by descending similarity, ties
// in row order. n is clamped to the number of other rows.
func Recommend(query string, t *dataset.Table, m Scorer, n int) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	if n < 1 {
		return Result{}, ErrInvalidCount
	}
	if m == nil || m.Len() != t.Len() {
		return Result{}, ErrMisaligned
	}
	res := Result{Query: query}
	idx, matches := Find(t, query)
	if idx < 0 {
		return res, nil
	}
	res.Found = true
	res.Matches = matches
	res.Match = item(t, idx, 1)

	others := make([]int, 0, t.Len()-1)
	for j := 0; j < t.Len(); j++ {
		if j != idx {
			others = append(others, j)
		}
	}
	sort.SliceStable(others, func(a, b int) bool {
		return m.At(idx, others[a]) > m.At(idx, others[b])
	})
	if n > len(others) {
		n = len(others)
	}
	res.Items = make([]Item, n)
	for k, j := range others[:n] {
		res.Items[k] = item(t, j, m.At(idx, j))
	}
	return res, nil
}

// Find returns the first row whose trade name contains query and the total
// number of matching rows. It returns -1 when nothing matches.
func Find(t *dataset.Table, query string) (first, matches int) {
	first = -1
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return first, 0
	}
	caser := cases.Fold()
	for i := 0; i < t.Len(); i++ {
		if strings.Contains(caser.String(norm.NFC.String(t.Name(i))), q) {
			if first < 0 {
				first = i
			}
			matches++
		}
	}
	return first, matches
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func item(t *dataset.Table, i int, score float64) Item {
	return Item{Index: i, Score: score, Name: t.Name(i), Category: t.Category(i), Locality: t.Locality(i)}
}
