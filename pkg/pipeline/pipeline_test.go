package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ontoforge/ontoforge/internal/model"
	"github.com/ontoforge/ontoforge/pkg/checkpoint"
)

const sampleCSV = `business_name,address,city,state,zip_code,phone,latitude,longitude
Acme Fuel,123 Main St,New York,NY,10001,(212) 555-0100,40.7128,-74.0060
Beta Bakery,456 Oak Ave,Brooklyn,NY,11201,(718) 555-0200,40.6782,-73.9442
Gamma Cafe,789 Pine Rd,Queens,NY,11354,(917) 555-0300,40.7282,-73.7949
,,,,,,,
`

func newTestRunner(t *testing.T, opts Options) (*Runner, string) {
	t.Helper()

	workDir := t.TempDir()
	backend, err := checkpoint.NewLocalBackend(filepath.Join(workDir, "checkpoints"))
	if err != nil {
		t.Fatal(err)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(workDir, "out")
	}
	if opts.Provider == "" {
		opts.Provider = "test_provider"
	}
	return NewRunner(opts, backend), workDir
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "businesses.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessDataset(t *testing.T) {
	runner, workDir := newTestRunner(t, Options{})
	path := writeSample(t, workDir)

	res, err := runner.ProcessDataset(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessDataset: %v", err)
	}

	if res.RowsIngested != 4 {
		t.Errorf("RowsIngested = %d, want 4", res.RowsIngested)
	}
	if res.RowsKept != 3 {
		t.Errorf("RowsKept = %d, want 3", res.RowsKept)
	}
	if res.RowsDropped != 1 {
		t.Errorf("RowsDropped = %d, want 1", res.RowsDropped)
	}
	if res.Strategy != "geo" {
		t.Errorf("Strategy = %q, want geo", res.Strategy)
	}
	if res.Skipped {
		t.Error("first run should not be skipped")
	}

	for _, name := range []string{"clean.csv", "ontology.json", "metadata.json", "profile.json"} {
		p := filepath.Join(runner.opts.OutputDir, "businesses", name)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	s := runner.Metrics().Summary()
	if s.DatasetsProcessed != 1 || s.RowsKept != 3 {
		t.Errorf("metrics = %+v", s)
	}
}

func TestProcessDatasetSkipsCompleted(t *testing.T) {
	runner, workDir := newTestRunner(t, Options{})
	path := writeSample(t, workDir)

	if _, err := runner.ProcessDataset(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	res, err := runner.ProcessDataset(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Error("unchanged dataset should be skipped")
	}
	if runner.Metrics().Summary().DatasetsSkipped != 1 {
		t.Error("skip not counted")
	}
}

func TestProcessDatasetForce(t *testing.T) {
	runner, workDir := newTestRunner(t, Options{})
	path := writeSample(t, workDir)

	if _, err := runner.ProcessDataset(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	forced, _ := newTestRunner(t, Options{Force: true, OutputDir: runner.opts.OutputDir})
	// reuse the original backend so the completed checkpoint is visible
	forced.backend = runner.backend

	res, err := forced.ProcessDataset(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped {
		t.Error("forced run should not be skipped")
	}
	if res.RowsKept != 3 {
		t.Errorf("RowsKept = %d, want 3", res.RowsKept)
	}
}

func TestProcessDatasetMissingFile(t *testing.T) {
	runner, workDir := newTestRunner(t, Options{})

	_, err := runner.ProcessDataset(context.Background(), filepath.Join(workDir, "nope.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunAll(t *testing.T) {
	runner, workDir := newTestRunner(t, Options{Workers: 2})

	paths := []string{
		writeSample(t, workDir),
	}
	second := filepath.Join(workDir, "other.csv")
	if err := os.WriteFile(second, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	paths = append(paths, second)

	results, err := runner.RunAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, res := range results {
		if res.SourcePath != paths[i] {
			t.Errorf("result %d path = %q, want %q", i, res.SourcePath, paths[i])
		}
		if res.RowsKept != 3 {
			t.Errorf("result %d RowsKept = %d", i, res.RowsKept)
		}
	}
}

func TestDeduplicator(t *testing.T) {
	a := model.NewRecord()
	a.Set("name", model.String("Acme"))
	a.Set("city", model.String("NYC"))

	// same content, different column order
	b := model.NewRecord()
	b.Set("city", model.String("NYC"))
	b.Set("name", model.String("Acme"))

	c := model.NewRecord()
	c.Set("name", model.String("Beta"))
	c.Set("city", model.String("NYC"))

	d := NewDeduplicator()
	out := d.Filter([]*model.Record{a, b, c})

	if len(out) != 2 {
		t.Fatalf("kept = %d, want 2", len(out))
	}
	if out[0] != a || out[1] != c {
		t.Error("wrong records kept")
	}
	if d.Duplicates() != 1 {
		t.Errorf("Duplicates = %d, want 1", d.Duplicates())
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.json", "notes.txt", ".hidden.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.csv")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("Discover = %v, want %v", paths, want)
	}
}
