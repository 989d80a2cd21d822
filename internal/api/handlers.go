package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/rntrec/internal/analysis"
	"github.com/KaramelBytes/rntrec/internal/metrics"
	"github.com/KaramelBytes/rntrec/internal/recommend"
	"github.com/KaramelBytes/rntrec/internal/snapshot"
)

// Health handles GET /healthz. It does not touch the dataset.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, nil, time.Now(), map[string]string{"status": "ok"})
}

// Ready handles GET /readyz: 200 once the configured source loads, 503 otherwise.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := s.load(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, r, snap, start, map[string]any{
		"status":   "ready",
		"rows":     snap.Table.Len(),
		"features": snap.Matrix.Features(),
		"built_at": snap.BuiltAt.UTC(),
	})
}

// Recommendations handles GET /api/v1/recommendations?q=<name>&n=<count>.
// A query that matches nothing is a successful reply with found=false.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		metrics.RecordRecommendation("invalid")
		respondErr(w, r, recommend.ErrEmptyQuery)
		return
	}
	n, err := s.count(r)
	if err != nil {
		metrics.RecordRecommendation("invalid")
		respondErr(w, r, err)
		return
	}
	snap, err := s.load(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := recommend.Recommend(q, snap.Table, snap.Matrix, n)
	if err != nil {
		metrics.RecordRecommendation("invalid")
		respondErr(w, r, err)
		return
	}
	if res.Found {
		metrics.RecordRecommendation("found")
	} else {
		metrics.RecordRecommendation("not_found")
	}
	respondData(w, r, snap, start, res)
}

// count reads n: absent means the configured default, below 1 is invalid and
// above the configured maximum is out of range.
func (s *Server) count(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return s.cfg.Count(0)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", recommend.ErrInvalidCount, raw)
	}
	return s.cfg.Count(n)
}

// topK reads k: absent means the configured top-k, 0 means every value.
func (s *Server) topK(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return s.cfg.ReportTopK, true
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 {
		respondError(w, r, http.StatusBadRequest, CodeInvalidParameter, "k must be a non-negative integer", map[string]any{"k": raw})
		return 0, false
	}
	return k, true
}

// withSnapshot runs fn against the current snapshot and replies with its result.
func (s *Server) withSnapshot(w http.ResponseWriter, r *http.Request, fn func(*snapshot.Snapshot) any) {
	start := time.Now()
	snap, err := s.load(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, r, snap, start, fn(snap))
}

// Categories handles GET /api/v1/reports/categories?k=.
func (s *Server) Categories(w http.ResponseWriter, r *http.Request) {
	k, ok := s.topK(w, r)
	if !ok {
		return
	}
	s.withSnapshot(w, r, func(snap *snapshot.Snapshot) any {
		return analysis.TopCategories(snap.Table, k)
	})
}

// Localities handles GET /api/v1/reports/localities?k=.
func (s *Server) Localities(w http.ResponseWriter, r *http.Request) {
	k, ok := s.topK(w, r)
	if !ok {
		return
	}
	s.withSnapshot(w, r, func(snap *snapshot.Snapshot) any {
		return analysis.TopLocalities(snap.Table, k)
	})
}

// Stats handles GET /api/v1/reports/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	s.withSnapshot(w, r, func(snap *snapshot.Snapshot) any {
		return analysis.SummaryStats(snap.Table)
	})
}

// Cardinalities handles GET /api/v1/reports/cardinalities.
func (s *Server) Cardinalities(w http.ResponseWriter, r *http.Request) {
	s.withSnapshot(w, r, func(snap *snapshot.Snapshot) any {
		return analysis.Cardinalities(snap.Table)
	})
}

// Summary handles GET /api/v1/reports/summary?k=: every report in one reply.
func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	k, ok := s.topK(w, r)
	if !ok {
		return
	}
	s.withSnapshot(w, r, func(snap *snapshot.Snapshot) any {
		return analysis.Build(snap.Table, analysis.Options{Name: snap.Source, TopK: k})
	})
}
