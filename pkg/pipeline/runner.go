// Package pipeline runs datasets through ingestion, normalization, quality
// filtering, profiling, strategy routing, ontology formatting, and export.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ontoforge/ontoforge/internal/model"
	"github.com/ontoforge/ontoforge/pkg/checkpoint"
	"github.com/ontoforge/ontoforge/pkg/classifier"
	"github.com/ontoforge/ontoforge/pkg/export"
	"github.com/ontoforge/ontoforge/pkg/ingest"
	"github.com/ontoforge/ontoforge/pkg/normalize"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/profile"
	"github.com/ontoforge/ontoforge/pkg/routing"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

// Options configures a Runner.
type Options struct {
	// Provider is the provenance label stamped on ontology records.
	Provider string

	// OutputDir receives one subdirectory per dataset.
	OutputDir string

	// Formats selects export sinks: json, parquet, duckdb. JSON is always
	// written.
	Formats []string

	// Compression for the Parquet sink.
	Compression string

	// Threshold overrides the classifier drop cutoff when > 0.
	Threshold float64

	// ModelPath persists the trained classifier between runs. Empty disables
	// persistence.
	ModelPath string

	// Workers bounds concurrent datasets in RunAll.
	Workers int

	// Dedupe removes exact duplicate rows after normalization.
	Dedupe bool

	// Force processes a dataset even when a completed checkpoint with a
	// matching schema fingerprint exists.
	Force bool
}

// Result reports one dataset run.
type Result struct {
	JobID        string
	SourcePath   string
	Provider     string
	Strategy     string
	RowsIngested int
	RowsKept     int
	RowsDropped  int
	Duplicates   int
	Skipped      bool
	Duration     time.Duration
	OutputPaths  []string
	Profile      profile.DatasetProfile
}

// Runner executes the dataset pipeline.
type Runner struct {
	opts     Options
	ingestor *ingest.Manager
	profiler *profile.Manager
	router   *routing.Router
	backend  checkpoint.Backend
	tracer   *telemetry.Tracer
	metrics  *telemetry.Metrics

	modelMu sync.Mutex
}

// NewRunner creates a runner over a checkpoint backend.
func NewRunner(opts Options, backend checkpoint.Backend) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Runner{
		opts:     opts,
		ingestor: ingest.NewManager(),
		profiler: profile.NewManager(),
		router:   routing.NewRouter(),
		backend:  backend,
		tracer:   telemetry.NewTracer("ontoforge"),
		metrics:  telemetry.NewMetrics(),
	}
}

// Metrics returns the run counters.
func (r *Runner) Metrics() *telemetry.Metrics { return r.metrics }

// Tracer returns the span recorder.
func (r *Runner) Tracer() *telemetry.Tracer { return r.tracer }

// RunAll processes datasets concurrently, bounded by Options.Workers. Results
// are positionally aligned with paths; a failed dataset leaves a zero Result
// at its position and the first error is returned after all workers finish.
func (r *Runner) RunAll(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := r.ProcessDataset(ctx, path)
			if err != nil {
				r.metrics.AddFailure()
				return fmt.Errorf("dataset %s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// ProcessDataset runs one dataset end to end. A completed checkpoint over the
// same source with an unchanged schema fingerprint short-circuits the run
// unless Options.Force is set.
func (r *Runner) ProcessDataset(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	jobID := uuid.NewString()

	previous, err := r.backend.FindBySource(ctx, path)
	if err != nil && !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("finding checkpoint: %w", err)
	}

	cp := &checkpoint.Checkpoint{
		ID:         jobID,
		SourcePath: path,
		Provider:   r.opts.Provider,
		Phase:      checkpoint.PhaseStarting,
		StartedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		Metadata:   make(map[string]interface{}),
	}
	if err := r.backend.Save(ctx, cp); err != nil {
		return Result{}, fmt.Errorf("saving checkpoint: %w", err)
	}

	var records []*model.Record
	err = telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "ingest", func(ctx context.Context) error {
		var err error
		records, err = r.ingestor.Load(ctx, path)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	ingested := len(records)
	cp.SetCounts(ingested, 0, 0)
	cp.SetPhase(checkpoint.PhaseIngested)
	r.backend.Save(ctx, cp)

	var normalized []*model.Record
	telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "normalize", func(ctx context.Context) error {
		normalized = normalize.Normalize(records)
		return nil
	})

	duplicates := 0
	if r.opts.Dedupe {
		dedup := NewDeduplicator()
		normalized = dedup.Filter(normalized)
		duplicates = dedup.Duplicates()
	}

	var kept []*model.Record
	var dropped int
	err = telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "classify", func(ctx context.Context) error {
		clf := r.loadOrFit(normalized)
		kept, dropped = clf.FilterRecords(normalized)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	cp.SetCounts(ingested, len(kept), dropped)
	cp.SetPhase(checkpoint.PhaseClassified)
	r.backend.Save(ctx, cp)

	var prof profile.DatasetProfile
	telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "profile", func(ctx context.Context) error {
		prof = r.profiler.Evaluate(kept)
		return nil
	})
	cp.SetFingerprint(prof.SchemaFingerprint)
	cp.SetPhase(checkpoint.PhaseProfiled)
	r.backend.Save(ctx, cp)

	if !r.opts.Force && previous != nil && previous.CanSkip(prof.SchemaFingerprint) {
		r.metrics.AddSkipped()
		r.backend.Delete(ctx, jobID)
		return Result{
			JobID:      jobID,
			SourcePath: path,
			Provider:   r.opts.Provider,
			Skipped:    true,
			Duration:   time.Since(start),
			Profile:    prof,
		}, nil
	}

	strategy := r.router.Resolve(prof)
	cp.SetStrategy(string(strategy.Name()))

	enriched := make([]*model.Record, len(kept))
	telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "route", func(ctx context.Context) error {
		for i, rec := range kept {
			enriched[i] = strategy.Apply(rec)
		}
		return nil
	})

	formatter := ontology.NewFormatter(r.opts.Provider, path)
	var ontologyRecs, metadataRecs []*model.Record
	telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "format", func(ctx context.Context) error {
		ontologyRecs, metadataRecs = formatter.FormatRecords(enriched)
		return nil
	})

	var outputs []string
	err = telemetry.InstrumentedStage(ctx, r.tracer, r.metrics, "export", func(ctx context.Context) error {
		var err error
		outputs, err = r.export(path, prof, enriched, ontologyRecs, metadataRecs)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	cp.SetPhase(checkpoint.PhaseExported)
	r.backend.Save(ctx, cp)

	cp.SetPhase(checkpoint.PhaseComplete)
	if err := r.backend.Save(ctx, cp); err != nil {
		return Result{}, fmt.Errorf("saving checkpoint: %w", err)
	}

	r.metrics.AddDataset(int64(ingested), int64(len(kept)), int64(dropped))
	return Result{
		JobID:        jobID,
		SourcePath:   path,
		Provider:     r.opts.Provider,
		Strategy:     string(strategy.Name()),
		RowsIngested: ingested,
		RowsKept:     len(kept),
		RowsDropped:  dropped,
		Duplicates:   duplicates,
		Duration:     time.Since(start),
		OutputPaths:  outputs,
		Profile:      prof,
	}, nil
}

// loadOrFit returns a classifier for the batch. A persisted model is reused
// when present; otherwise the batch trains a fresh one which is persisted
// best-effort for the next run.
func (r *Runner) loadOrFit(records []*model.Record) *classifier.RowDropClassifier {
	r.modelMu.Lock()
	defer r.modelMu.Unlock()

	var clf *classifier.RowDropClassifier
	if r.opts.ModelPath != "" {
		if loaded, err := classifier.Load(r.opts.ModelPath); err == nil {
			clf = loaded
		}
	}
	if clf == nil {
		clf = classifier.New().Fit(records)
		if r.opts.ModelPath != "" {
			clf.Save(r.opts.ModelPath)
		}
	}
	if r.opts.Threshold > 0 {
		clf.Threshold = r.opts.Threshold
	}
	return clf
}

func (r *Runner) export(sourcePath string, prof profile.DatasetProfile, cleanRecs, ontologyRecs, metadataRecs []*model.Record) ([]string, error) {
	base := datasetName(sourcePath)
	dir := filepath.Join(r.opts.OutputDir, base)

	cleanPath := filepath.Join(dir, "clean.csv")
	if err := export.WriteRecordsCSV(cleanPath, cleanRecs); err != nil {
		return nil, err
	}
	ontologyPath := filepath.Join(dir, "ontology.json")
	if err := export.WriteRecordsJSON(ontologyPath, ontologyRecs); err != nil {
		return nil, err
	}
	metadataPath := filepath.Join(dir, "metadata.json")
	if err := export.WriteRecordsJSON(metadataPath, metadataRecs); err != nil {
		return nil, err
	}
	profilePath := filepath.Join(dir, "profile.json")
	if err := export.WriteJSON(profilePath, prof); err != nil {
		return nil, err
	}
	outputs := []string{cleanPath, ontologyPath, metadataPath, profilePath}

	for _, format := range r.opts.Formats {
		switch strings.ToLower(format) {
		case "json":
			// always written above
		case "parquet":
			if len(ontologyRecs) == 0 {
				continue
			}
			sink := &export.ParquetSink{Compression: r.opts.Compression}
			p := filepath.Join(dir, "ontology.parquet")
			if err := sink.WriteRecords(p, ontologyRecs); err != nil {
				return nil, err
			}
			outputs = append(outputs, p)
		case "duckdb":
			if len(ontologyRecs) == 0 {
				continue
			}
			p := filepath.Join(dir, base+".duckdb")
			sink, err := export.NewDuckDBSink(p)
			if err != nil {
				return nil, err
			}
			err = sink.WriteRecords("ontology", ontologyRecs)
			if cerr := sink.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, p)
		default:
			return nil, fmt.Errorf("unknown export format %q", format)
		}
	}
	return outputs, nil
}

// datasetName derives the output subdirectory from a source path.
func datasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover lists processable dataset files directly under dir, sorted.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".json", ".jsonl", ".ndjson", ".xlsx":
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
