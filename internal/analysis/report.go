package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

// Options controls report construction.
type Options struct {
	// Name labels the report, usually the source file name.
	Name string
	// TopK limits the category and locality tables; 0 or less keeps every value.
	TopK int
}

// DefaultOptions returns the defaults used by the CLI and API.
func DefaultOptions() Options {
	return Options{TopK: 10}
}

// CategoryCount is one row of a frequency table.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// NumSummary describes the valid numbers of one capacity column. Valid is
// false when the column holds no numbers, in which case the statistics are zero.
type NumSummary struct {
	Column string  `json:"column"`
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Valid  bool    `json:"valid"`
}

// Cardinality holds the dataset size figures.
type Cardinality struct {
	Rows       int `json:"rows"`
	Localities int `json:"localities"`
	Categories int `json:"categories"`
}

// Report bundles every aggregate view of a table.
type Report struct {
	Name        string          `json:"name,omitempty"`
	Cardinality Cardinality     `json:"cardinality"`
	Categories  []CategoryCount `json:"categories"`
	Localities  []CategoryCount `json:"localities"`
	Stats       []NumSummary    `json:"stats"`
}

// Build computes the full report for t.
func Build(t *dataset.Table, opt Options) *Report {
	return &Report{
		Name:        opt.Name,
		Cardinality: Cardinalities(t),
		Categories:  TopCategories(t, opt.TopK),
		Localities:  TopLocalities(t, opt.TopK),
		Stats:       SummaryStats(t),
	}
}

// TopCategories counts establishments per category.
func TopCategories(t *dataset.Table, k int) []CategoryCount {
	if t.Len() == 0 {
		return []CategoryCount{}
	}
	return ValueCounts(t, t.CategoryColumn(), k)
}

// TopLocalities counts establishments per locality. With k <= 0 it is the
// full locality distribution.
func TopLocalities(t *dataset.Table, k int) []CategoryCount {
	if t.Len() == 0 {
		return []CategoryCount{}
	}
	return ValueCounts(t, t.LocalityColumn(), k)
}

// ValueCounts returns the distinct values of column col by descending count.
// Equal counts keep the order in which values first appear. k <= 0 returns all.
func ValueCounts(t *dataset.Table, col int, k int) []CategoryCount {
	out := []CategoryCount{}
	pos := map[string]int{}
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, col)
		if p, ok := pos[v]; ok {
			out[p].Count++
			continue
		}
		pos[v] = len(out)
		out = append(out, CategoryCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// SummaryStats summarizes rooms, beds and employees in that order. Cells
// without a number are skipped.
func SummaryStats(t *dataset.Table) []NumSummary {
	out := make([]NumSummary, 0, len(dataset.Capacities))
	for _, c := range dataset.Capacities {
		s := NumSummary{Label: c.String()}
		if t.Len() > 0 {
			s.Column = t.CapacityColumn(c)
		}
		var vals []float64
		for i := 0; i < t.Len(); i++ {
			if v := t.Capacity(i, c); v.Valid {
				vals = append(vals, v.Value)
			}
		}
		summarize(&s, vals)
		out = append(out, s)
	}
	return out
}

func summarize(s *NumSummary, vals []float64) {
	s.Count = len(vals)
	if s.Count == 0 {
		return
	}
	s.Valid = true
	// Welford
	var n int
	var mean, m2 float64
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, x := range vals {
		n++
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	s.Mean = mean
	if n > 1 {
		s.Std = math.Sqrt(m2 / float64(n-1))
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	s.Median = quantile(sorted, 0.5)
}

// Cardinalities returns the row count and the number of distinct localities
// and categories.
func Cardinalities(t *dataset.Table) Cardinality {
	c := Cardinality{Rows: t.Len()}
	if t.Len() == 0 {
		return c
	}
	c.Localities = distinct(t, t.LocalityColumn())
	c.Categories = distinct(t, t.CategoryColumn())
	return c
}

func distinct(t *dataset.Table, col int) int {
	seen := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		seen[t.Value(i, col)] = struct{}{}
	}
	return len(seen)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Markdown renders a compact text summary of the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Establishments: %d\n", r.Cardinality.Rows))
	b.WriteString(fmt.Sprintf("Localities: %d\n", r.Cardinality.Localities))
	b.WriteString(fmt.Sprintf("Categories: %d\n", r.Cardinality.Categories))

	writeCounts(&b, "TOP CATEGORIES", r.Categories)
	writeCounts(&b, "TOP LOCALITIES", r.Localities)

	if len(r.Stats) > 0 {
		b.WriteString("\n[CAPACITY]\n")
		for _, s := range r.Stats {
			name := s.Label
			if s.Column != "" {
				name = fmt.Sprintf("%s (%s)", s.Label, s.Column)
			}
			if !s.Valid {
				b.WriteString(fmt.Sprintf("- %s: %s\n", name, dataset.NotAvailable))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: n=%d, mean %.2f, median %.2f, std %.2f, min %g, max %g\n",
				name, s.Count, s.Mean, s.Median, s.Std, s.Min, s.Max))
		}
	}
	return b.String()
}

func writeCounts(b *strings.Builder, title string, rows []CategoryCount) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("\n[" + title + "]\n")
	b.WriteString("| value | count |\n| --- | --- |\n")
	for _, kv := range rows {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", safeVal(kv.Value), kv.Count))
	}
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
