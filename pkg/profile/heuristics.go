package profile

import (
	"sort"
	"strings"
)

// Tag names emitted by the heuristics engine.
const (
	TagLikelyIdentifier = "likely_identifier"
	TagHighUniqueness   = "high_uniqueness"
	TagLowCardinality   = "low_cardinality"
	TagDominantValue    = "dominant_value"
	TagSparseValues     = "sparse_values"
)

// HeuristicTags infers semantic tags from a column's name and summary. Rules
// fire independently; any subset may apply. The engine never fails: ratios
// are already defensively computed upstream, and a zero summary simply fires
// no rules.
func HeuristicTags(name string, summary ColumnSummary) []string {
	tags := make(map[string]struct{})
	lower := strings.ToLower(strings.TrimSpace(name))

	if lower == "id" || lower == "identifier" || strings.HasSuffix(lower, "_id") {
		tags[TagLikelyIdentifier] = struct{}{}
	}
	if summary.DistinctRatio > 0.95 && summary.NullRatio < 0.05 {
		tags[TagHighUniqueness] = struct{}{}
	}
	if summary.DistinctRatio < 0.15 && summary.NonNullCount >= 5 {
		tags[TagLowCardinality] = struct{}{}
	}
	if summary.MostFrequentRatio > 0.8 {
		tags[TagDominantValue] = struct{}{}
	}
	if summary.NullRatio > 0.4 {
		tags[TagSparseValues] = struct{}{}
	}

	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
