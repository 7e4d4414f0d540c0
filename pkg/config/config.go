// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ontoforge configuration.
type Config struct {
	Version int `yaml:"version"`

	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Export      ExportConfig      `yaml:"export"`
	Checkpoints CheckpointsConfig `yaml:"checkpoints"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// PipelineConfig controls dataset processing.
type PipelineConfig struct {
	// RawDir is the directory watched and scanned for provider datasets.
	RawDir string `yaml:"raw_dir"`

	// OutputDir receives ontology records, metadata, and profiles.
	OutputDir string `yaml:"output_dir"`

	// Provider is the default provenance label for loaded datasets.
	Provider string `yaml:"provider"`

	// Workers bounds how many datasets are processed concurrently.
	Workers int `yaml:"workers"`
}

// ClassifierConfig controls row-quality filtering.
type ClassifierConfig struct {
	// Threshold is the drop-probability cutoff.
	Threshold float64 `yaml:"threshold"`

	// ModelPath persists the trained classifier between runs.
	ModelPath string `yaml:"model_path"`
}

// ExportConfig controls output sinks.
type ExportConfig struct {
	// Formats selects sinks: json, parquet, duckdb.
	Formats []string `yaml:"formats"`

	// Compression for the Parquet sink: snappy, zstd, gzip, none.
	Compression string `yaml:"compression"`
}

// CheckpointsConfig controls resume state.
type CheckpointsConfig struct {
	// Backend: local, redis, or s3.
	Backend string `yaml:"backend"`

	Dir string `yaml:"dir"`

	RedisAddress string        `yaml:"redis_address"`
	S3Bucket     string        `yaml:"s3_bucket"`
	Retention    time.Duration `yaml:"retention"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	forgeDir := filepath.Join(homeDir, ".ontoforge")

	return &Config{
		Version: 1,
		Pipeline: PipelineConfig{
			RawDir:    "raw",
			OutputDir: "out",
			Provider:  "unknown",
			Workers:   4,
		},
		Classifier: ClassifierConfig{
			Threshold: 0.65,
			ModelPath: filepath.Join(forgeDir, "row_classifier.json"),
		},
		Export: ExportConfig{
			Formats:     []string{"json"},
			Compression: "snappy",
		},
		Checkpoints: CheckpointsConfig{
			Backend:   "local",
			Dir:       filepath.Join(forgeDir, "checkpoints"),
			Retention: 30 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a manager initialized to defaults.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()
	m.ensureDirs()
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/ontoforge/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".ontoforge", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".ontoforge.yaml"))
	}
	return paths
}

func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	m.merge(&partial)
	return nil
}

// merge overlays non-zero values from src onto the current config.
func (m *Manager) merge(src *Config) {
	if src.Pipeline.RawDir != "" {
		m.config.Pipeline.RawDir = src.Pipeline.RawDir
	}
	if src.Pipeline.OutputDir != "" {
		m.config.Pipeline.OutputDir = src.Pipeline.OutputDir
	}
	if src.Pipeline.Provider != "" {
		m.config.Pipeline.Provider = src.Pipeline.Provider
	}
	if src.Pipeline.Workers != 0 {
		m.config.Pipeline.Workers = src.Pipeline.Workers
	}

	if src.Classifier.Threshold != 0 {
		m.config.Classifier.Threshold = src.Classifier.Threshold
	}
	if src.Classifier.ModelPath != "" {
		m.config.Classifier.ModelPath = src.Classifier.ModelPath
	}

	if len(src.Export.Formats) > 0 {
		m.config.Export.Formats = src.Export.Formats
	}
	if src.Export.Compression != "" {
		m.config.Export.Compression = src.Export.Compression
	}

	if src.Checkpoints.Backend != "" {
		m.config.Checkpoints.Backend = src.Checkpoints.Backend
	}
	if src.Checkpoints.Dir != "" {
		m.config.Checkpoints.Dir = src.Checkpoints.Dir
	}
	if src.Checkpoints.RedisAddress != "" {
		m.config.Checkpoints.RedisAddress = src.Checkpoints.RedisAddress
	}
	if src.Checkpoints.S3Bucket != "" {
		m.config.Checkpoints.S3Bucket = src.Checkpoints.S3Bucket
	}
	if src.Checkpoints.Retention != 0 {
		m.config.Checkpoints.Retention = src.Checkpoints.Retention
	}

	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
		m.config.Telemetry.Enabled = true
	}
}

// loadEnv overlays environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("ONTOFORGE_RAW_DIR"); v != "" {
		m.config.Pipeline.RawDir = v
	}
	if v := os.Getenv("ONTOFORGE_OUTPUT_DIR"); v != "" {
		m.config.Pipeline.OutputDir = v
	}
	if v := os.Getenv("ONTOFORGE_PROVIDER"); v != "" {
		m.config.Pipeline.Provider = v
	}
	if v := os.Getenv("ONTOFORGE_THRESHOLD"); v != "" {
		var threshold float64
		if _, err := fmt.Sscanf(v, "%f", &threshold); err == nil {
			m.config.Classifier.Threshold = threshold
		}
	}
	if v := os.Getenv("ONTOFORGE_REDIS"); v != "" {
		m.config.Checkpoints.Backend = "redis"
		m.config.Checkpoints.RedisAddress = v
	}
	if v := os.Getenv("ONTOFORGE_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

func (m *Manager) ensureDirs() {
	dirs := []string{
		filepath.Dir(m.config.Classifier.ModelPath),
	}
	if m.config.Checkpoints.Backend == "local" {
		dirs = append(dirs, m.config.Checkpoints.Dir)
	}
	for _, dir := range dirs {
		os.MkdirAll(dir, 0o755)
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the config files that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	configDir := filepath.Join(home, ".ontoforge")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0o644)
}

var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the process-wide configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
