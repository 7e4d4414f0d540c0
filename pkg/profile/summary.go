// Package profile computes per-column statistics, semantic tags, and schema
// fingerprints for a fully materialized batch of records.
package profile

import (
	"github.com/ontoforge/ontoforge/internal/model"
)

// ColumnSummary holds cardinality and null statistics for one column. All
// ratios share the denominator TotalCount, so fullness and cardinality are
// directly comparable.
type ColumnSummary struct {
	TotalCount        float64 `json:"total_count"`
	NonNullCount      float64 `json:"non_null_count"`
	DistinctCount     float64 `json:"distinct_count"`
	DistinctRatio     float64 `json:"distinct_ratio"`
	NullRatio         float64 `json:"null_ratio"`
	MostFrequentRatio float64 `json:"most_frequent_ratio"`
}

// Summarize computes a ColumnSummary for one column's raw value sequence.
// A value is missing when it is the null sentinel or a floating-point NaN.
// Nested values are canonicalized (recursive, object keys sorted) before
// counting, so structural equality drives distinctness. Empty input returns
// an all-zero summary.
func Summarize(values []model.Value) ColumnSummary {
	total := len(values)
	if total == 0 {
		return ColumnSummary{}
	}

	counts := make(map[string]int)
	nonNull := 0
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		nonNull++
		counts[v.Canonical()]++
	}

	mostFrequent := 0
	for _, c := range counts {
		if c > mostFrequent {
			mostFrequent = c
		}
	}

	t := float64(total)
	return ColumnSummary{
		TotalCount:        t,
		NonNullCount:      float64(nonNull),
		DistinctCount:     float64(len(counts)),
		DistinctRatio:     float64(len(counts)) / t,
		NullRatio:         float64(total-nonNull) / t,
		MostFrequentRatio: float64(mostFrequent) / t,
	}
}
