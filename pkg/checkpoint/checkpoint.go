// Package checkpoint records per-dataset pipeline progress so interrupted
// runs resume where they stopped and unchanged datasets are skipped.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Pipeline phases, in order.
const (
	PhaseStarting   = "starting"
	PhaseIngested   = "ingested"
	PhaseClassified = "classified"
	PhaseProfiled   = "profiled"
	PhaseExported   = "exported"
	PhaseComplete   = "complete"
)

// Checkpoint tracks one dataset's progress through the pipeline.
type Checkpoint struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Provider   string `json:"provider"`

	// Progress
	Phase             string `json:"phase"`
	RowsIngested      int    `json:"rows_ingested"`
	RowsKept          int    `json:"rows_kept"`
	RowsDropped       int    `json:"rows_dropped"`
	SchemaFingerprint string `json:"schema_fingerprint,omitempty"`
	Strategy          string `json:"strategy,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	path string
	mu   sync.Mutex
}

// Manager handles file-backed checkpoint persistence.
type Manager struct {
	dir    string
	mu     sync.RWMutex
	active map[string]*Checkpoint
}

// NewManager creates a manager over a checkpoint directory.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &Manager{
		dir:    dir,
		active: make(map[string]*Checkpoint),
	}, nil
}

// Create starts a checkpoint for a dataset run and persists it immediately.
func (m *Manager) Create(id, sourcePath, provider string) *Checkpoint {
	cp := &Checkpoint{
		ID:         id,
		SourcePath: sourcePath,
		Provider:   provider,
		Phase:      PhaseStarting,
		StartedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		Metadata:   make(map[string]interface{}),
		path:       filepath.Join(m.dir, id+".checkpoint"),
	}

	m.mu.Lock()
	m.active[id] = cp
	m.mu.Unlock()

	cp.Save()
	return cp
}

// Load reads a checkpoint from disk.
func (m *Manager) Load(id string) (*Checkpoint, error) {
	path := filepath.Join(m.dir, id+".checkpoint")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	cp.path = path

	m.mu.Lock()
	m.active[id] = &cp
	m.mu.Unlock()

	return &cp, nil
}

// Find returns the latest checkpoint for a source path, complete or not.
func (m *Manager) Find(sourcePath string) (*Checkpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var found *Checkpoint
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		if cp.SourcePath != sourcePath {
			continue
		}
		if found == nil || cp.UpdatedAt.After(found.UpdatedAt) {
			cp.path = path
			found = &cp
		}
	}
	if found == nil {
		return nil, os.ErrNotExist
	}
	return found, nil
}

// Delete removes a checkpoint.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()

	return os.Remove(filepath.Join(m.dir, id+".checkpoint"))
}

// ListIncomplete returns checkpoints for runs that did not finish.
func (m *Manager) ListIncomplete() ([]*Checkpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var checkpoints []*Checkpoint
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		if cp.Phase != PhaseComplete {
			cp.path = path
			checkpoints = append(checkpoints, &cp)
		}
	}
	return checkpoints, nil
}

// Cleanup removes checkpoint files older than maxAge.
func (m *Manager) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// SetPhase advances the checkpoint phase. Reaching complete records the
// completion time.
func (c *Checkpoint) SetPhase(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Phase = phase
	c.UpdatedAt = time.Now()
	if phase == PhaseComplete {
		now := time.Now()
		c.CompletedAt = &now
	}
}

// SetCounts records the batch row accounting.
func (c *Checkpoint) SetCounts(ingested, kept, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.RowsIngested = ingested
	c.RowsKept = kept
	c.RowsDropped = dropped
	c.UpdatedAt = time.Now()
}

// SetFingerprint records the dataset's schema fingerprint.
func (c *Checkpoint) SetFingerprint(fp string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SchemaFingerprint = fp
	c.UpdatedAt = time.Now()
}

// SetStrategy records the routed strategy.
func (c *Checkpoint) SetStrategy(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Strategy = strategy
	c.UpdatedAt = time.Now()
}

// SetMetadata sets one metadata value.
func (c *Checkpoint) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Metadata == nil {
		c.Metadata = make(map[string]interface{})
	}
	c.Metadata[key] = value
}

// Save persists the checkpoint atomically.
func (c *Checkpoint) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, c.path)
}

// CanSkip reports whether a new run over the same source may be skipped:
// the previous run completed and the schema has not changed.
func (c *Checkpoint) CanSkip(fingerprint string) bool {
	return c.Phase == PhaseComplete &&
		c.SchemaFingerprint != "" &&
		c.SchemaFingerprint == fingerprint
}

// Duration returns how long the run has been going, or took.
func (c *Checkpoint) Duration() time.Duration {
	if c.CompletedAt != nil {
		return c.CompletedAt.Sub(c.StartedAt)
	}
	return time.Since(c.StartedAt)
}
