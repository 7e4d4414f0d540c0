package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsDatasetFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"data/licenses.csv", true},
		{"data/licenses.json", true},
		{"data/licenses.jsonl", true},
		{"data/licenses.ndjson", true},
		{"data/licenses.xlsx", true},
		{"data/LICENSES.CSV", true},
		{"data/notes.txt", false},
		{"data/report.pdf", false},
		{"data/.hidden.csv", false},
		{"data/licenses.csv.tmp", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsDatasetFile(tt.path); got != tt.want {
				t.Errorf("IsDatasetFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatcherFiresOnSettledFile(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	got := make(chan string, 1)
	w.OnDataset = func(path string) error {
		select {
		case got <- path:
		default:
		}
		return nil
	}

	if err := w.WatchDir(dir); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	target := filepath.Join(dir, "arrivals.csv")
	if err := os.WriteFile(target, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-got:
		if path != target {
			t.Errorf("fired for %q, want %q", path, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire")
	}
}

func TestWatcherIgnoresNonDatasets(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	fired := make(chan string, 1)
	w.OnDataset = func(path string) error {
		select {
		case fired <- path:
		default:
		}
		return nil
	}

	if err := w.WatchDir(dir); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-fired:
		t.Errorf("watcher fired for %q", path)
	case <-time.After(1 * time.Second):
	}
}
