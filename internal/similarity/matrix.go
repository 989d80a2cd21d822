package similarity

import "github.com/KaramelBytes/rntrec/internal/dataset"

// FeatureText is the text compared between establishments.
func FeatureText(category, locality string) string {
	return category + " " + locality
}

// Matrix is the all-pairs cosine similarity of row feature texts. Rows with
// the same feature text share one entry of a distinct-feature table, so memory
// grows with the number of distinct texts rather than with rows squared.
//
// The R×R view is symmetric with values in [0,1]. The diagonal is 1; two
// different rows whose feature text has no terms score 0.
type Matrix struct {
	feature []int
	sim     [][]float64
	empty   []bool
}

// Build computes the similarity matrix of a cleaned table, aligned to row order.
func Build(t *dataset.Table) *Matrix {
	texts := make([]string, t.Len())
	for i := range texts {
		texts[i] = FeatureText(t.Category(i), t.Locality(i))
	}
	return FromTexts(texts)
}

// FromTexts computes the similarity matrix of arbitrary feature texts.
func FromTexts(texts []string) *Matrix {
	m := &Matrix{feature: make([]int, len(texts))}
	ids := map[string]int{}
	var distinct []string
	for i, s := range texts {
		id, ok := ids[s]
		if !ok {
			id = len(distinct)
			ids[s] = id
			distinct = append(distinct, s)
		}
		m.feature[i] = id
	}

	vz := Fit(distinct)
	vecs := make([]Vector, len(distinct))
	m.empty = make([]bool, len(distinct))
	for i, s := range distinct {
		vecs[i] = vz.Transform(s)
		m.empty[i] = len(vecs[i].Indices) == 0
	}
	m.sim = make([][]float64, len(distinct))
	for a := range m.sim {
		m.sim[a] = make([]float64, len(distinct))
	}
	for a := range vecs {
		m.sim[a][a] = 1
		if m.empty[a] {
			m.sim[a][a] = 0
		}
		for b := a + 1; b < len(vecs); b++ {
			s := CosineSim(vecs[a], vecs[b])
			m.sim[a][b] = s
			m.sim[b][a] = s
		}
	}
	return m
}

// Len returns the number of rows (and columns).
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.feature)
}

// Features returns the number of distinct feature texts.
func (m *Matrix) Features() int { return len(m.sim) }

// At returns the similarity between rows i and j.
func (m *Matrix) At(i, j int) float64 {
	if i == j {
		return 1
	}
	return m.sim[m.feature[i]][m.feature[j]]
}

// Row returns the similarities of row i to every row, in row order.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, len(m.feature))
	fi := m.feature[i]
	for j, fj := range m.feature {
		out[j] = m.sim[fi][fj]
	}
	out[i] = 1
	return out
}
