// Package watch monitors the raw-data directory and triggers pipeline runs
// when dataset files land or change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// datasetExtensions are the file types worth triggering a run for.
var datasetExtensions = map[string]struct{}{
	".csv":    {},
	".json":   {},
	".jsonl":  {},
	".ndjson": {},
	".xlsx":   {},
}

// Watcher monitors directories for dataset files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	seen     map[string]*fileState
	mu       sync.Mutex
	debounce time.Duration

	// OnDataset runs for each settled dataset file. Errors go to OnError.
	OnDataset func(path string) error
	OnError   func(path string, err error)
}

type fileState struct {
	lastModified time.Time
	size         int64
	processing   bool
}

// NewWatcher creates a watcher with a half-second debounce, long enough for
// portal downloads to finish writing.
func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &Watcher{
		watcher:  fsWatcher,
		seen:     make(map[string]*fileState),
		debounce: 500 * time.Millisecond,
	}, nil
}

// WatchDir starts watching a directory for dataset files.
func (w *Watcher) WatchDir(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("stat watch directory: %w", err)
	}
	return w.watcher.Add(absDir)
}

// Run blocks handling events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	debounceTimers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !IsDatasetFile(event.Name) {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			// Debounce rapid writes into one trigger.
			timerMu.Lock()
			if timer, exists := debounceTimers[absPath]; exists {
				timer.Stop()
			}
			debounceTimers[absPath] = time.AfterFunc(w.debounce, func() {
				w.handleFile(absPath)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleFile(path string) {
	w.mu.Lock()
	state, ok := w.seen[path]
	if !ok {
		state = &fileState{}
		w.seen[path] = state
	}
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	// Skip events that did not actually change the file.
	if stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size {
		return
	}

	w.mu.Lock()
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()

	if w.OnDataset != nil {
		if err := w.OnDataset(path); err != nil {
			if w.OnError != nil {
				w.OnError(path, err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// IsDatasetFile reports whether a path looks like a loadable dataset.
func IsDatasetFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := datasetExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
