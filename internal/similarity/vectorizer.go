package similarity

import (
	"math"
	"sort"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into bag-of-words terms: NFC-normalized, lowercased
// runs of letters, digits or underscores at least two runes long. There is no
// stemming and no stopword removal.
func Tokenize(text string) []string {
	text = cases.Lower(language.Und).String(norm.NFC.String(text))
	var out []string
	start := -1
	flush := func(end int) {
		if start >= 0 && utf8.RuneCountInString(text[start:end]) >= 2 {
			out = append(out, text[start:end])
		}
		start = -1
	}
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return out
}

// Vector is a sparse term-count vector with ascending term indices.
type Vector struct {
	Indices []int
	Counts  []float64
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var s float64
	for _, c := range v.Counts {
		s += c * c
	}
	return math.Sqrt(s)
}

// Dot returns the dot product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			dot += v.Counts[i] * o.Counts[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// CosineSim between two vectors. Returns 0 if either vector is all zero.
func CosineSim(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	s := a.Dot(b) / (na * nb)
	if s > 1 {
		s = 1
	}
	return s
}

// Vectorizer maps documents to term-count vectors over a fixed vocabulary.
type Vectorizer struct {
	vocab map[string]int
	terms []string
}

// Fit learns a sorted vocabulary from docs.
func Fit(docs []string) *Vectorizer {
	seen := map[string]struct{}{}
	for _, d := range docs {
		for _, tok := range Tokenize(d) {
			seen[tok] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return &Vectorizer{vocab: vocab, terms: terms}
}

// Terms returns the vocabulary in index order.
func (v *Vectorizer) Terms() []string { return v.terms }

// Transform counts the known terms of doc. Unknown terms are ignored.
func (v *Vectorizer) Transform(doc string) Vector {
	counts := map[int]float64{}
	for _, tok := range Tokenize(doc) {
		if i, ok := v.vocab[tok]; ok {
			counts[i]++
		}
	}
	out := Vector{Indices: make([]int, 0, len(counts))}
	for i := range counts {
		out.Indices = append(out.Indices, i)
	}
	sort.Ints(out.Indices)
	out.Counts = make([]float64, len(out.Indices))
	for k, i := range out.Indices {
		out.Counts[k] = counts[i]
	}
	return out
}
