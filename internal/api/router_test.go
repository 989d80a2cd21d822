package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/KaramelBytes/rntrec/internal/config"
	"github.com/KaramelBytes/rntrec/internal/dataset"
	"github.com/KaramelBytes/rntrec/internal/snapshot"
)

const fixture = "DEPARTAMENTO,RAZON_SOCIAL_ESTABLECIMIENTO,CATEGORIA,MUNICIPIO,NUMERO_DE_EMPLEADOS,NUMERO_DE_CAMAS,NUMERO_DE_HABITACIONES\n" +
	"QUINDIO,Hotel Sol,Hospedaje,Armenia,1,2,3\n" +
	"QUINDIO,Hotel Luna,Hospedaje,Armenia,2,4,2\n" +
	"QUINDIO,Café Rio,Restaurante,Calarcá,3,,\n" +
	"CALDAS,Hotel Nevado,Hospedaje,Manizales,5,10,8\n"

func testConfig() *config.Global {
	return &config.Global{
		Region:           dataset.DefaultRegion,
		RecommendDefault: 5,
		RecommendMin:     1,
		RecommendMax:     10,
		ReportTopK:       10,
		CacheSize:        2,
	}
}

func newTestServer(t *testing.T, body string) (*httptest.Server, *config.Global) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rnt.csv")
	if body != "" {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := snapshot.New(2)
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Source = path
	srv := httptest.NewServer(NewServer(cfg, StoreLoader(store, path, cfg.DatasetOptions())).Handler())
	t.Cleanup(srv.Close)
	return srv, cfg
}

type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *Error          `json:"error"`
}

func get(t *testing.T, url string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, env
}

func TestRecommendationsFound(t *testing.T) {
	srv, _ := newTestServer(t, fixture)
	status, env := get(t, srv.URL+"/api/v1/recommendations?q=hotel%20sol&n=2")
	if status != http.StatusOK || env.Status != "success" {
		t.Fatalf("status = %d %s, error = %+v", status, env.Status, env.Error)
	}
	var res struct {
		Found bool `json:"found"`
		Match struct {
			Name string `json:"name"`
		} `json:"match"`
		Items []struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Match.Name != "Hotel Sol" || len(res.Items) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Items[0].Name != "Hotel Luna" || res.Items[0].Score != 1 {
		t.Fatalf("first item = %+v", res.Items[0])
	}
	if env.Metadata.Snapshot == "" || env.Metadata.Rows != 3 || env.Metadata.RequestID == "" {
		t.Fatalf("metadata = %+v", env.Metadata)
	}
}

func TestRecommendationsNotFoundIsSuccess(t *testing.T) {
	srv, _ := newTestServer(t, fixture)
	status, env := get(t, srv.URL+"/api/v1/recommendations?q=Hotel%20Nevado")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(string(env.Data), `"found":false`) {
		t.Fatalf("expected found=false, got %s", env.Data)
	}
}

func TestRecommendationsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, fixture)
	cases := []struct {
		query string
		code  string
	}{
		{"?q=", CodeEmptyQuery},
		{"?q=%20%20", CodeEmptyQuery},
		{"?q=hotel&n=0", CodeInvalidCount},
		{"?q=hotel&n=abc", CodeInvalidCount},
		{"?q=hotel&n=11", CodeInvalidCount},
	}
	for _, c := range cases {
		status, env := get(t, srv.URL+"/api/v1/recommendations"+c.query)
		if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != c.code {
			t.Errorf("%s: status %d, error %+v; want 400 %s", c.query, status, env.Error, c.code)
		}
	}
}

func TestMissingSourceIs503(t *testing.T) {
	srv, _ := newTestServer(t, "")
	status, env := get(t, srv.URL+"/api/v1/reports/stats")
	if status != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != CodeSourceUnavailable {
		t.Fatalf("status %d, error %+v", status, env.Error)
	}
	status, _ = get(t, srv.URL+"/readyz")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d", status)
	}
	status, _ = get(t, srv.URL+"/healthz")
	if status != http.StatusOK {
		t.Fatalf("healthz status = %d", status)
	}
}

func TestSchemaMismatchIs503(t *testing.T) {
	srv, _ := newTestServer(t, "A,B\n1,2\n")
	status, env := get(t, srv.URL+"/api/v1/reports/cardinalities")
	if status != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != CodeSchemaMismatch {
		t.Fatalf("status %d, error %+v", status, env.Error)
	}
}

func TestReports(t *testing.T) {
	srv, _ := newTestServer(t, fixture)

	_, env := get(t, srv.URL+"/api/v1/reports/categories?k=1")
	if string(env.Data) != `[{"value":"Hospedaje","count":2}]` {
		t.Fatalf("categories = %s", env.Data)
	}
	_, env = get(t, srv.URL+"/api/v1/reports/localities?k=0")
	if !strings.Contains(string(env.Data), `"Calarcá"`) {
		t.Fatalf("localities = %s", env.Data)
	}
	_, env = get(t, srv.URL+"/api/v1/reports/cardinalities")
	if string(env.Data) != `{"rows":3,"localities":2,"categories":2}` {
		t.Fatalf("cardinalities = %s", env.Data)
	}
	_, env = get(t, srv.URL+"/api/v1/reports/stats")
	if !strings.Contains(string(env.Data), `"label":"rooms"`) {
		t.Fatalf("stats = %s", env.Data)
	}
	_, env = get(t, srv.URL+"/api/v1/reports/summary")
	if !strings.Contains(string(env.Data), `"cardinality"`) || !strings.Contains(string(env.Data), `"stats"`) {
		t.Fatalf("summary = %s", env.Data)
	}
	status, env := get(t, srv.URL+"/api/v1/reports/categories?k=-1")
	if status != http.StatusBadRequest || env.Error.Code != CodeInvalidParameter {
		t.Fatalf("negative k: %d %+v", status, env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, fixture)
	get(t, srv.URL+"/api/v1/reports/stats")
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "rntrec_api_requests_total") {
		t.Fatalf("metrics output missing api counter")
	}
}

func TestCORSAndRequestID(t *testing.T) {
	store, _ := snapshot.New(1)
	cfg := testConfig()
	cfg.CORSOrigins = []string{"http://localhost:5173"}
	loader := func(ctx context.Context) (*snapshot.Snapshot, error) {
		return store.FromBytes(ctx, "rnt.csv", []byte(fixture), cfg.DatasetOptions())
	}
	h := NewServer(cfg, loader).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/cardinalities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
	if rec.Header().Get("X-Request-ID") != "req-1" {
		t.Fatalf("request id not echoed")
	}
}

func TestRateLimit(t *testing.T) {
	store, _ := snapshot.New(1)
	cfg := testConfig()
	cfg.RateLimit = 1
	loader := func(ctx context.Context) (*snapshot.Snapshot, error) {
		return store.FromBytes(ctx, "rnt.csv", []byte(fixture), cfg.DatasetOptions())
	}
	h := NewServer(cfg, loader).Handler()
	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/stats", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
