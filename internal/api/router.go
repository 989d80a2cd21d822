// Package api exposes recommendations and reports as JSON over HTTP for a
// presentation shell.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/rntrec/internal/config"
	"github.com/KaramelBytes/rntrec/internal/dataset"
	"github.com/KaramelBytes/rntrec/internal/logging"
	"github.com/KaramelBytes/rntrec/internal/metrics"
	"github.com/KaramelBytes/rntrec/internal/snapshot"
)

// Loader returns the current snapshot.
type Loader func(ctx context.Context) (*snapshot.Snapshot, error)

// StoreLoader loads path through store with opt.
func StoreLoader(store *snapshot.Store, path string, opt dataset.Options) Loader {
	return func(ctx context.Context) (*snapshot.Snapshot, error) {
		return store.Load(ctx, path, opt)
	}
}

// Server holds the handlers' dependencies.
type Server struct {
	cfg  *config.Global
	load Loader
}

// NewServer returns a server reading snapshots from load.
func NewServer(cfg *config.Global, load Loader) *Server {
	return &Server{cfg: cfg, load: load}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         86400,
		}))
	}

	r.Get("/healthz", s.Health)
	r.Get("/readyz", s.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		}
		r.Use(instrument)

		r.Get("/recommendations", s.Recommendations)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/categories", s.Categories)
			r.Get("/localities", s.Localities)
			r.Get("/stats", s.Stats)
			r.Get("/cardinalities", s.Cardinalities)
			r.Get("/summary", s.Summary)
		})
	})
	return r
}

// requestID tags the request context and response with an X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// instrument records request metrics by route pattern and logs each request.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		metrics.RecordAPIRequest(r.Method, pattern, strconv.Itoa(status), d)
		logging.Ctx(r.Context()).Debug().
			Str("method", r.Method).
			Str("route", pattern).
			Int("status", status).
			Dur("took", d).
			Msg("request")
	})
}
