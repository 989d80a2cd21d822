package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Region != dataset.DefaultRegion || c.Source != dataset.DefaultSource {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.RecommendDefault != 5 || c.RecommendMin != 1 || c.RecommendMax != 10 || c.ReportTopK != 10 {
		t.Fatalf("unexpected count defaults: %+v", c)
	}
	if c.Schema.TradeName != dataset.DefaultSchema().TradeName {
		t.Fatalf("schema default = %q", c.Schema.TradeName)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "region: CALDAS\nreport_top_k: 3\nschema:\n  locality: CIUDAD\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RNTREC_REPORT_TOP_K", "7")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Region != "CALDAS" || c.Schema.Locality != "CIUDAD" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.ReportTopK != 7 {
		t.Fatalf("env should override file, got %d", c.ReportTopK)
	}
	opt := c.DatasetOptions()
	if opt.Region != "CALDAS" || opt.Schema.Locality != "CIUDAD" || opt.Schema.Category != "CATEGORIA" {
		t.Fatalf("dataset options = %+v", opt)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("recommend_min: 0\nlog_format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"RecommendMin", "LogFormat"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestSetAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Set("delimiter", ";"); err != nil {
		t.Fatalf("Set delimiter: %v", err)
	}
	if err := c.Set("recommend_max", "20"); err != nil {
		t.Fatalf("Set recommend_max: %v", err)
	}
	if err := c.Set("recommend_max", "abc"); err == nil {
		t.Fatalf("expected invalid int error")
	}
	if err := c.Set("recommend_min", "30"); err == nil || c.RecommendMin != 1 {
		t.Fatalf("min above max must be rejected and leave config unchanged")
	}
	if err := c.Set("nope", "x"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.Delimiter != ";" || back.RecommendMax != 20 {
		t.Fatalf("round trip lost values: %+v", back)
	}
	if back.DatasetOptions().Delimiter != ';' {
		t.Fatalf("delimiter rune not applied")
	}
	for _, k := range Keys {
		if _, ok := back.Get(k); !ok {
			t.Fatalf("Get(%q) not supported", k)
		}
	}
}

func TestCount(t *testing.T) {
	c := &Global{RecommendDefault: 5, RecommendMin: 1, RecommendMax: 10}
	if n, err := c.Count(0); err != nil || n != 5 {
		t.Fatalf("Count(0) = %d, %v", n, err)
	}
	if n, err := c.Count(3); err != nil || n != 3 {
		t.Fatalf("Count(3) = %d, %v", n, err)
	}
	if _, err := c.Count(11); !errors.Is(err, ErrCountRange) {
		t.Fatalf("Count(11) err = %v", err)
	}
}
