package profile

import (
	"sort"

	"github.com/ontoforge/ontoforge/internal/model"
)

// ColumnReport combines the statistics, detected patterns, and inferred tags
// for one column.
type ColumnReport struct {
	Summary  ColumnSummary `json:"summary"`
	Patterns []string      `json:"patterns"`
	Tags     []string      `json:"tags"`
}

// DatasetProfile is the aggregate statistical and semantic description of a
// batch. Columns are keyed in first-seen order across the batch; the profile
// is immutable once produced.
type DatasetProfile struct {
	RowCount          int                     `json:"row_count"`
	ColumnCount       int                     `json:"column_count"`
	SchemaFingerprint string                  `json:"schema_fingerprint"`
	ColumnOrder       []string                `json:"column_order"`
	Columns           map[string]ColumnReport `json:"columns"`
}

// Manager orchestrates the analyzers into a per-dataset profile.
type Manager struct{}

// NewManager returns a profile manager.
func NewManager() *Manager { return &Manager{} }

// Evaluate builds a DatasetProfile from a batch. It iterates the batch once,
// collecting each column's full value list in first-seen order, then computes
// the summary, string-pattern matches, and heuristic tags per column. The
// result is a pure function of the input: the same records in the same order
// always produce byte-identical output, fingerprint included. An empty batch
// yields a zeroed profile with an empty column map.
func (m *Manager) Evaluate(records []*model.Record) DatasetProfile {
	var order []string
	columns := make(map[string][]model.Value)

	for _, rec := range records {
		for _, name := range rec.Columns() {
			if _, seen := columns[name]; !seen {
				order = append(order, name)
				columns[name] = make([]model.Value, 0, len(records))
			}
		}
	}
	// Second pass fills every column to the full batch length so absent cells
	// count as nulls in the shared denominator.
	for _, rec := range records {
		for _, name := range order {
			v, ok := rec.Get(name)
			if !ok {
				v = model.Null
			}
			columns[name] = append(columns[name], v)
		}
	}

	reports := make(map[string]ColumnReport, len(order))
	for _, name := range order {
		values := columns[name]
		summary := Summarize(values)

		var strs []string
		for _, v := range values {
			if v.Kind() == model.KindString {
				strs = append(strs, v.Str())
			}
		}
		patterns := DetectPatterns(strs)

		tagSet := make(map[string]struct{})
		for _, t := range HeuristicTags(name, summary) {
			tagSet[t] = struct{}{}
		}
		for _, p := range patterns {
			tagSet[p] = struct{}{}
		}
		tags := make([]string, 0, len(tagSet))
		for t := range tagSet {
			tags = append(tags, t)
		}
		sort.Strings(tags)

		reports[name] = ColumnReport{
			Summary:  summary,
			Patterns: patterns,
			Tags:     tags,
		}
	}

	return DatasetProfile{
		RowCount:          len(records),
		ColumnCount:       len(order),
		SchemaFingerprint: Fingerprint(order),
		ColumnOrder:       order,
		Columns:           reports,
	}
}

// ColumnTags returns the tag set for a column, or nil when absent.
func (p DatasetProfile) ColumnTags(name string) []string {
	if rep, ok := p.Columns[name]; ok {
		return rep.Tags
	}
	return nil
}

// HasTag reports whether any column carries the given tag.
func (p DatasetProfile) HasTag(tag string) bool {
	for _, rep := range p.Columns {
		for _, t := range rep.Tags {
			if t == tag {
				return true
			}
		}
	}
	return false
}
