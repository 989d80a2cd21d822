package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

func TestRecordLoad(t *testing.T) {
	RecordLoad(10*time.Millisecond, 42, 7, nil)
	if got := testutil.ToFloat64(DatasetRows); got != 42 {
		t.Fatalf("rows gauge = %v", got)
	}
	if got := testutil.ToFloat64(DatasetFeatures); got != 7 {
		t.Fatalf("features gauge = %v", got)
	}

	before := testutil.ToFloat64(LoadErrors.WithLabelValues("schema_mismatch"))
	err := &dataset.LoadError{Kind: dataset.ErrSchemaMismatch, Err: errors.New("missing column")}
	RecordLoad(time.Millisecond, 0, 0, fmt.Errorf("load: %w", err))
	if got := testutil.ToFloat64(LoadErrors.WithLabelValues("schema_mismatch")); got != before+1 {
		t.Fatalf("schema_mismatch errors = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(DatasetRows); got != 42 {
		t.Fatalf("failed load must not reset rows gauge, got %v", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&dataset.LoadError{Kind: dataset.ErrSourceUnavailable, Err: errors.New("x")}, "source_unavailable"},
		{&dataset.LoadError{Kind: dataset.ErrSchemaMismatch, Err: errors.New("x")}, "schema_mismatch"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestRecordCacheAndRecommendation(t *testing.T) {
	hits, misses := testutil.ToFloat64(SnapshotCacheHits), testutil.ToFloat64(SnapshotCacheMisses)
	RecordCache(true)
	RecordCache(false)
	RecordCache(false)
	if testutil.ToFloat64(SnapshotCacheHits) != hits+1 || testutil.ToFloat64(SnapshotCacheMisses) != misses+2 {
		t.Fatalf("cache counters not updated")
	}
	before := testutil.ToFloat64(Recommendations.WithLabelValues("found"))
	RecordRecommendation("found")
	if testutil.ToFloat64(Recommendations.WithLabelValues("found")) != before+1 {
		t.Fatalf("recommendation counter not updated")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	RecordAPIRequest("GET", "/healthz", "200", 3*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/healthz", "200")); got != before+1 {
		t.Fatalf("api counter = %v, want %v", got, before+1)
	}
}
