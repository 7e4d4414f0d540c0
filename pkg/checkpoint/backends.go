package checkpoint

import (
	"context"
)

// Backend is pluggable checkpoint storage: local files for workstations,
// Redis for shared workers, S3 for serverless runs.
type Backend interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, id string) (*Checkpoint, error)
	Delete(ctx context.Context, id string) error
	ListIncomplete(ctx context.Context) ([]*Checkpoint, error)

	// FindBySource returns the latest checkpoint for a source path.
	FindBySource(ctx context.Context, sourcePath string) (*Checkpoint, error)

	// Name identifies the backend in logs.
	Name() string
}

// MultiBackend writes to a primary backend and mirrors to a secondary on a
// best-effort basis.
type MultiBackend struct {
	primary   Backend
	secondary Backend
}

// NewMultiBackend pairs two backends.
func NewMultiBackend(primary, secondary Backend) *MultiBackend {
	return &MultiBackend{primary: primary, secondary: secondary}
}

func (m *MultiBackend) Save(ctx context.Context, cp *Checkpoint) error {
	if err := m.primary.Save(ctx, cp); err != nil {
		return err
	}
	_ = m.secondary.Save(ctx, cp)
	return nil
}

func (m *MultiBackend) Load(ctx context.Context, id string) (*Checkpoint, error) {
	cp, err := m.primary.Load(ctx, id)
	if err == nil {
		return cp, nil
	}
	return m.secondary.Load(ctx, id)
}

func (m *MultiBackend) Delete(ctx context.Context, id string) error {
	err1 := m.primary.Delete(ctx, id)
	err2 := m.secondary.Delete(ctx, id)
	if err1 != nil {
		return err1
	}
	return err2
}

func (m *MultiBackend) ListIncomplete(ctx context.Context) ([]*Checkpoint, error) {
	return m.primary.ListIncomplete(ctx)
}

func (m *MultiBackend) FindBySource(ctx context.Context, sourcePath string) (*Checkpoint, error) {
	cp, err := m.primary.FindBySource(ctx, sourcePath)
	if err == nil {
		return cp, nil
	}
	return m.secondary.FindBySource(ctx, sourcePath)
}

func (m *MultiBackend) Name() string {
	return m.primary.Name() + "+" + m.secondary.Name()
}

// LocalBackend adapts the file-based Manager to the Backend interface.
type LocalBackend struct {
	mgr *Manager
}

// NewLocalBackend creates a file-backed backend rooted at dir.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	mgr, err := NewManager(dir)
	if err != nil {
		return nil, err
	}
	return &LocalBackend{mgr: mgr}, nil
}

func (b *LocalBackend) Save(ctx context.Context, cp *Checkpoint) error {
	if cp.path == "" {
		cp.path = b.mgr.dir + "/" + cp.ID + ".checkpoint"
	}
	return cp.Save()
}

func (b *LocalBackend) Load(ctx context.Context, id string) (*Checkpoint, error) {
	return b.mgr.Load(id)
}

func (b *LocalBackend) Delete(ctx context.Context, id string) error {
	return b.mgr.Delete(id)
}

func (b *LocalBackend) ListIncomplete(ctx context.Context) ([]*Checkpoint, error) {
	return b.mgr.ListIncomplete()
}

func (b *LocalBackend) FindBySource(ctx context.Context, sourcePath string) (*Checkpoint, error) {
	return b.mgr.Find(sourcePath)
}

func (b *LocalBackend) Name() string {
	return "local"
}

// Manager returns the underlying file manager.
func (b *LocalBackend) Manager() *Manager {
	return b.mgr
}
