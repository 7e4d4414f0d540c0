package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Pipeline.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Pipeline.Workers)
	}
	if cfg.Classifier.Threshold != 0.65 {
		t.Errorf("Threshold = %v, want 0.65", cfg.Classifier.Threshold)
	}
	if cfg.Checkpoints.Backend != "local" {
		t.Errorf("Backend = %q, want local", cfg.Checkpoints.Backend)
	}
	if len(cfg.Export.Formats) != 1 || cfg.Export.Formats[0] != "json" {
		t.Errorf("Formats = %v, want [json]", cfg.Export.Formats)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should be disabled by default")
	}
}

func TestMergeOverlaysNonZero(t *testing.T) {
	m := NewManager()
	m.merge(&Config{
		Pipeline:   PipelineConfig{Provider: "nyc_opendata", Workers: 8},
		Classifier: ClassifierConfig{Threshold: 0.5},
		Export:     ExportConfig{Formats: []string{"parquet", "duckdb"}},
	})

	cfg := m.Get()
	if cfg.Pipeline.Provider != "nyc_opendata" {
		t.Errorf("Provider = %q", cfg.Pipeline.Provider)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("Workers = %d", cfg.Pipeline.Workers)
	}
	if cfg.Classifier.Threshold != 0.5 {
		t.Errorf("Threshold = %v", cfg.Classifier.Threshold)
	}
	if len(cfg.Export.Formats) != 2 {
		t.Errorf("Formats = %v", cfg.Export.Formats)
	}
	// untouched fields keep defaults
	if cfg.Pipeline.RawDir != "raw" {
		t.Errorf("RawDir = %q, want raw", cfg.Pipeline.RawDir)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
pipeline:
  raw_dir: /data/raw
  provider: chicago
export:
  compression: zstd
checkpoints:
  backend: redis
  redis_address: localhost:6379
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.loadFile(path); err != nil {
		t.Fatalf("loadFile: %v", err)
	}

	cfg := m.Get()
	if cfg.Pipeline.RawDir != "/data/raw" {
		t.Errorf("RawDir = %q", cfg.Pipeline.RawDir)
	}
	if cfg.Pipeline.Provider != "chicago" {
		t.Errorf("Provider = %q", cfg.Pipeline.Provider)
	}
	if cfg.Export.Compression != "zstd" {
		t.Errorf("Compression = %q", cfg.Export.Compression)
	}
	if cfg.Checkpoints.Backend != "redis" || cfg.Checkpoints.RedisAddress != "localhost:6379" {
		t.Errorf("Checkpoints = %+v", cfg.Checkpoints)
	}
	// defaults survive a partial file
	if cfg.Classifier.Threshold != 0.65 {
		t.Errorf("Threshold = %v, want default", cfg.Classifier.Threshold)
	}
}

func TestLoadFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.loadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ONTOFORGE_PROVIDER", "sf_gov")
	t.Setenv("ONTOFORGE_THRESHOLD", "0.8")
	t.Setenv("ONTOFORGE_REDIS", "redis.internal:6379")

	m := NewManager()
	m.loadEnv()

	cfg := m.Get()
	if cfg.Pipeline.Provider != "sf_gov" {
		t.Errorf("Provider = %q", cfg.Pipeline.Provider)
	}
	if cfg.Classifier.Threshold != 0.8 {
		t.Errorf("Threshold = %v", cfg.Classifier.Threshold)
	}
	if cfg.Checkpoints.Backend != "redis" {
		t.Errorf("Backend = %q, want redis", cfg.Checkpoints.Backend)
	}
	if cfg.Checkpoints.RedisAddress != "redis.internal:6379" {
		t.Errorf("RedisAddress = %q", cfg.Checkpoints.RedisAddress)
	}
}
