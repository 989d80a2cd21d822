package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/KaramelBytes/rntrec/internal/config"
	"github.com/KaramelBytes/rntrec/internal/dataset"
	"github.com/KaramelBytes/rntrec/internal/logging"
	"github.com/KaramelBytes/rntrec/internal/recommend"
	"github.com/KaramelBytes/rntrec/internal/snapshot"
)

// Error codes
const (
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeSchemaMismatch    = "SCHEMA_MISMATCH"
	CodeEmptyQuery        = "EMPTY_QUERY"
	CodeInvalidCount      = "INVALID_COUNT"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodeInternal          = "INTERNAL_ERROR"
)

// Response is the envelope of every API reply.
type Response struct {
	Status   string   `json:"status"`
	Data     any      `json:"data"`
	Metadata Metadata `json:"metadata"`
	Error    *Error   `json:"error,omitempty"`
}

// Metadata describes the snapshot a reply was computed from.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	Snapshot    string    `json:"snapshot,omitempty"`
	Source      string    `json:"source,omitempty"`
	Rows        int       `json:"rows,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// Error is the machine-readable failure of a reply.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func metadataFor(r *http.Request, snap *snapshot.Snapshot, start time.Time) Metadata {
	md := Metadata{
		Timestamp:   time.Now().UTC(),
		RequestID:   logging.RequestID(r.Context()),
		QueryTimeMS: time.Since(start).Milliseconds(),
	}
	if snap != nil {
		md.Snapshot = snap.ID
		md.Source = snap.Source
		md.Rows = snap.Table.Len()
	}
	return md
}

func respondJSON(w http.ResponseWriter, status int, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("write response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, snap *snapshot.Snapshot, start time.Time, data any) {
	respondJSON(w, http.StatusOK, &Response{
		Status:   "success",
		Data:     data,
		Metadata: metadataFor(r, snap, start),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	respondJSON(w, status, &Response{
		Status:   "error",
		Metadata: metadataFor(r, nil, time.Now()),
		Error:    &Error{Code: code, Message: message, Details: details},
	})
}

// classify maps a failure to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, dataset.ErrSchemaMismatch):
		return http.StatusServiceUnavailable, CodeSchemaMismatch
	case errors.Is(err, dataset.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, CodeSourceUnavailable
	case errors.Is(err, recommend.ErrEmptyQuery):
		return http.StatusBadRequest, CodeEmptyQuery
	case errors.Is(err, recommend.ErrInvalidCount), errors.Is(err, config.ErrCountRange):
		return http.StatusBadRequest, CodeInvalidCount
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	ev := logging.Ctx(r.Context()).Warn()
	if status >= 500 && status != http.StatusServiceUnavailable {
		ev = logging.Ctx(r.Context()).Error()
	}
	ev.Err(err).Str("code", code).Int("status", status).Msg("api error")

	var details map[string]any
	var le *dataset.LoadError
	if errors.As(err, &le) && le.Path != "" {
		details = map[string]any{"source": le.Path}
	}
	respondError(w, r, status, code, err.Error(), details)
}
