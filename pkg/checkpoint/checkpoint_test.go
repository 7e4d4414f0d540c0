package checkpoint

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestCreateSaveLoad(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	cp := mgr.Create("job-1", "raw/licenses.csv", "nyc_dca")
	cp.SetCounts(100, 88, 12)
	cp.SetFingerprint("abc123def4567890")
	cp.SetStrategy("address")
	cp.SetPhase(PhaseProfiled)
	if err := cp.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := mgr.Load("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RowsIngested != 100 || loaded.RowsKept != 88 || loaded.RowsDropped != 12 {
		t.Errorf("counts = %d/%d/%d", loaded.RowsIngested, loaded.RowsKept, loaded.RowsDropped)
	}
	if loaded.SchemaFingerprint != "abc123def4567890" {
		t.Errorf("fingerprint = %q", loaded.SchemaFingerprint)
	}
	if loaded.Strategy != "address" {
		t.Errorf("strategy = %q", loaded.Strategy)
	}
	if loaded.Phase != PhaseProfiled {
		t.Errorf("phase = %q", loaded.Phase)
	}
}

func TestCanSkip(t *testing.T) {
	cp := &Checkpoint{Phase: PhaseComplete, SchemaFingerprint: "aa11"}
	if !cp.CanSkip("aa11") {
		t.Error("complete checkpoint with matching fingerprint must skip")
	}
	if cp.CanSkip("bb22") {
		t.Error("changed fingerprint must not skip")
	}

	cp.Phase = PhaseProfiled
	if cp.CanSkip("aa11") {
		t.Error("incomplete checkpoint must not skip")
	}

	empty := &Checkpoint{Phase: PhaseComplete}
	if empty.CanSkip("") {
		t.Error("empty fingerprints must not skip")
	}
}

func TestFindReturnsLatestForSource(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	older := mgr.Create("job-1", "raw/a.csv", "p")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	older.Save()

	newer := mgr.Create("job-2", "raw/a.csv", "p")
	newer.SetPhase(PhaseComplete)
	newer.Save()

	mgr.Create("job-3", "raw/other.csv", "p")

	found, err := mgr.Find("raw/a.csv")
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != "job-2" {
		t.Errorf("found %q, want job-2", found.ID)
	}
}

func TestFindMissingSource(t *testing.T) {
	dir := t.TempDir()
	mgr, _ := NewManager(dir)
	if _, err := mgr.Find("raw/nope.csv"); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not exist", err)
	}
}

func TestListIncomplete(t *testing.T) {
	dir := t.TempDir()
	mgr, _ := NewManager(dir)

	done := mgr.Create("done", "raw/a.csv", "p")
	done.SetPhase(PhaseComplete)
	done.Save()

	mgr.Create("pending", "raw/b.csv", "p")

	incomplete, err := mgr.ListIncomplete()
	if err != nil {
		t.Fatal(err)
	}
	if len(incomplete) != 1 || incomplete[0].ID != "pending" {
		t.Errorf("incomplete = %v", incomplete)
	}
}

func TestLocalBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	cp := backend.Manager().Create("job-1", "raw/a.csv", "p")
	cp.SetPhase(PhaseIngested)
	if err := backend.Save(ctx, cp); err != nil {
		t.Fatal(err)
	}

	loaded, err := backend.Load(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Phase != PhaseIngested {
		t.Errorf("phase = %q", loaded.Phase)
	}

	bySource, err := backend.FindBySource(ctx, "raw/a.csv")
	if err != nil {
		t.Fatal(err)
	}
	if bySource.ID != "job-1" {
		t.Errorf("id = %q", bySource.ID)
	}

	if err := backend.Delete(ctx, "job-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := backend.Load(ctx, "job-1"); err == nil {
		t.Error("deleted checkpoint still loads")
	}
}

func TestCompletePhaseSetsCompletedAt(t *testing.T) {
	cp := &Checkpoint{StartedAt: time.Now().Add(-time.Minute)}
	cp.SetPhase(PhaseComplete)
	if cp.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}
	if cp.Duration() <= 0 {
		t.Error("duration must be positive")
	}
}
