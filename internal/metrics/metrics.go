// Package metrics registers the Prometheus instruments exposed at /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

var (
	// Dataset loading
	LoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rntrec_load_duration_seconds",
			Help:    "Time to parse, clean and index a registry source",
			Buckets: prometheus.DefBuckets,
		},
	)

	LoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rntrec_load_errors_total",
			Help: "Failed registry loads by error kind",
		},
		[]string{"kind"},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rntrec_dataset_rows",
			Help: "Rows in the most recently loaded cleaned table",
		},
	)

	DatasetFeatures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rntrec_dataset_distinct_features",
			Help: "Distinct feature texts in the most recently built similarity matrix",
		},
	)

	// Snapshot cache
	SnapshotCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rntrec_snapshot_cache_hits_total",
			Help: "Snapshot lookups served from memory",
		},
	)

	SnapshotCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rntrec_snapshot_cache_misses_total",
			Help: "Snapshot lookups that required a rebuild",
		},
	)

	// Recommendations
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rntrec_recommendations_total",
			Help: "Recommendation queries by outcome",
		},
		[]string{"outcome"}, // "found", "not_found", "invalid"
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rntrec_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rntrec_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordLoad records a dataset load. rows and features are ignored on error.
func RecordLoad(duration time.Duration, rows, features int, err error) {
	LoadDuration.Observe(duration.Seconds())
	if err != nil {
		LoadErrors.WithLabelValues(ErrorKind(err)).Inc()
		return
	}
	DatasetRows.Set(float64(rows))
	DatasetFeatures.Set(float64(features))
}

// ErrorKind labels a load error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, dataset.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, dataset.ErrSourceUnavailable):
		return "source_unavailable"
	default:
		return "other"
	}
}

// RecordCache records a snapshot cache lookup.
func RecordCache(hit bool) {
	if hit {
		SnapshotCacheHits.Inc()
	} else {
		SnapshotCacheMisses.Inc()
	}
}

// RecordRecommendation records the outcome of a recommendation query.
func RecordRecommendation(outcome string) {
	Recommendations.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
