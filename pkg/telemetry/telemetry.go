// Package telemetry provides tracing and pipeline metrics with optional
// OpenTelemetry OTLP export.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Tracer records spans for pipeline runs.
type Tracer struct {
	mu sync.RWMutex

	serviceName string
	spans       []*Span
	activeSpans map[string]*Span

	totalSpans int64
}

// NewTracer creates a new tracer.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		spans:       make([]*Span, 0),
		activeSpans: make(map[string]*Span),
	}
}

// StartSpan begins a new trace span.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{
		TraceID:    generateTraceID(),
		SpanID:     generateSpanID(),
		Name:       name,
		StartTime:  time.Now(),
		Attributes: make(map[string]interface{}),
		Status:     SpanStatusOK,
	}

	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentSpanID = parent.SpanID
	}

	t.mu.Lock()
	t.activeSpans[span.SpanID] = span
	t.mu.Unlock()

	return ContextWithSpan(ctx, span), span
}

// EndSpan completes a span and records it.
func (t *Tracer) EndSpan(span *Span) {
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)

	t.mu.Lock()
	delete(t.activeSpans, span.SpanID)
	t.spans = append(t.spans, span)
	atomic.AddInt64(&t.totalSpans, 1)
	t.mu.Unlock()
}

// Spans returns a snapshot of completed spans.
func (t *Tracer) Spans() []*Span {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// Span represents a unit of work within a pipeline run.
type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Attributes   map[string]interface{}
	Status       SpanStatus
	StatusMsg    string
}

// SetAttribute adds a key-value attribute to the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	s.Attributes[key] = value
}

// SetStatus sets the span status.
func (s *Span) SetStatus(status SpanStatus, msg string) {
	s.Status = status
	s.StatusMsg = msg
}

// SpanStatus represents the outcome of a span.
type SpanStatus int

const (
	SpanStatusOK SpanStatus = iota
	SpanStatusError
)

type spanContextKey struct{}

// ContextWithSpan returns a context with the span attached.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

// SpanFromContext retrieves the current span from context.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Metrics aggregates pipeline counters for a run.
type Metrics struct {
	mu sync.RWMutex

	DatasetsProcessed int64
	DatasetsSkipped   int64
	DatasetsFailed    int64
	RowsIngested      int64
	RowsKept          int64
	RowsDropped       int64
	ErrorCount        int64

	stageDurations map[string]time.Duration
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{stageDurations: make(map[string]time.Duration)}
}

// AddDataset records a processed dataset and its row counts.
func (m *Metrics) AddDataset(ingested, kept, dropped int64) {
	atomic.AddInt64(&m.DatasetsProcessed, 1)
	atomic.AddInt64(&m.RowsIngested, ingested)
	atomic.AddInt64(&m.RowsKept, kept)
	atomic.AddInt64(&m.RowsDropped, dropped)
}

// AddSkipped records a dataset skipped via checkpoint resume.
func (m *Metrics) AddSkipped() {
	atomic.AddInt64(&m.DatasetsSkipped, 1)
}

// AddFailure records a dataset that failed processing.
func (m *Metrics) AddFailure() {
	atomic.AddInt64(&m.DatasetsFailed, 1)
	atomic.AddInt64(&m.ErrorCount, 1)
}

// RecordStage accumulates time spent in a named pipeline stage.
func (m *Metrics) RecordStage(stage string, d time.Duration) {
	m.mu.Lock()
	m.stageDurations[stage] += d
	m.mu.Unlock()
}

// StageDuration returns the accumulated time for a stage.
func (m *Metrics) StageDuration(stage string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stageDurations[stage]
}

// Summary returns a snapshot of collected metrics.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	stages := make(map[string]time.Duration, len(m.stageDurations))
	for k, v := range m.stageDurations {
		stages[k] = v
	}
	m.mu.RUnlock()

	return MetricsSummary{
		DatasetsProcessed: atomic.LoadInt64(&m.DatasetsProcessed),
		DatasetsSkipped:   atomic.LoadInt64(&m.DatasetsSkipped),
		DatasetsFailed:    atomic.LoadInt64(&m.DatasetsFailed),
		RowsIngested:      atomic.LoadInt64(&m.RowsIngested),
		RowsKept:          atomic.LoadInt64(&m.RowsKept),
		RowsDropped:       atomic.LoadInt64(&m.RowsDropped),
		ErrorCount:        atomic.LoadInt64(&m.ErrorCount),
		StageDurations:    stages,
	}
}

// MetricsSummary is a snapshot of pipeline metrics.
type MetricsSummary struct {
	DatasetsProcessed int64                    `json:"datasets_processed"`
	DatasetsSkipped   int64                    `json:"datasets_skipped"`
	DatasetsFailed    int64                    `json:"datasets_failed"`
	RowsIngested      int64                    `json:"rows_ingested"`
	RowsKept          int64                    `json:"rows_kept"`
	RowsDropped       int64                    `json:"rows_dropped"`
	ErrorCount        int64                    `json:"error_count"`
	StageDurations    map[string]time.Duration `json:"stage_durations_ns"`
}

// ToJSON serializes the summary to JSON.
func (s MetricsSummary) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func generateTraceID() string {
	return fmt.Sprintf("%016x%016x", time.Now().UnixNano(), time.Now().UnixNano()>>32)
}

func generateSpanID() string {
	return fmt.Sprintf("%016x", time.Now().UnixNano())
}

// InstrumentedStage wraps a pipeline stage with tracing and timing.
func InstrumentedStage(ctx context.Context, tracer *Tracer, metrics *Metrics, name string, op func(ctx context.Context) error) error {
	ctx, span := tracer.StartSpan(ctx, name)
	start := time.Now()

	err := op(ctx)

	elapsed := time.Since(start)
	metrics.RecordStage(name, elapsed)

	if err != nil {
		span.SetStatus(SpanStatusError, err.Error())
		atomic.AddInt64(&metrics.ErrorCount, 1)
	}

	span.SetAttribute("duration_ms", elapsed.Milliseconds())
	tracer.EndSpan(span)

	return err
}
