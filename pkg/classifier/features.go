// Package classifier implements the hybrid trained/heuristic row-quality
// classifier that drops structurally poor rows before downstream enrichment.
package classifier

import (
	"strings"

	"github.com/ontoforge/ontoforge/internal/model"
)

// featureKeys is the fixed feature order used everywhere: training matrices,
// persisted means/scales, and the fallback weight table.
var featureKeys = []string{
	"null_ratio",
	"empty_text_ratio",
	"numeric_zero_ratio",
	"short_text_ratio",
	"essential_missing_ratio",
}

// essentialFields is the fixed set of business-critical identifying columns.
// essential_missing_ratio divides by the size of this set, not the record
// width, so a narrow record with no identity fields still scores poorly.
var essentialFields = []string{
	"dca_license_number",
	"license_number",
	"provider_record_id",
	"business_name",
	"canonical_legal_entity_name",
	"street_address",
	"address_city",
	"city",
	"address_state",
	"state",
	"zip_code",
	"latitude",
	"longitude",
	"contact_phone_number",
	"phone",
	"phone_number",
}

// FeatureVector holds the five per-record quality ratios, each in [0,1].
type FeatureVector struct {
	NullRatio             float64
	EmptyTextRatio        float64
	NumericZeroRatio      float64
	ShortTextRatio        float64
	EssentialMissingRatio float64
}

// values returns the vector in featureKeys order.
func (f FeatureVector) values() []float64 {
	return []float64{
		f.NullRatio,
		f.EmptyTextRatio,
		f.NumericZeroRatio,
		f.ShortTextRatio,
		f.EssentialMissingRatio,
	}
}

// ComputeFeatures derives the FeatureVector for one record. Malformed values
// degrade to safe defaults; this never fails. An empty record counts every
// essential field as missing.
func ComputeFeatures(rec *model.Record) FeatureVector {
	totalFields := 1
	if rec != nil && rec.Len() > 0 {
		totalFields = rec.Len()
	}

	var nullLike, emptyText, shortText, numericZero int
	if rec != nil {
		for _, name := range rec.Columns() {
			v, _ := rec.Get(name)
			if v.IsMissing() {
				nullLike++
				continue
			}
			switch v.Kind() {
			case model.KindString:
				text := strings.TrimSpace(v.Str())
				if text == "" {
					nullLike++
					emptyText++
					continue
				}
				if len(text) <= 2 {
					shortText++
				}
			case model.KindNumber:
				if v.Number() == 0 {
					numericZero++
				}
			}
		}
	}

	essentialMissing := 0
	for _, name := range essentialFields {
		if !hasValue(rec, name) {
			essentialMissing++
		}
	}

	t := float64(totalFields)
	return FeatureVector{
		NullRatio:             float64(nullLike) / t,
		EmptyTextRatio:        float64(emptyText) / t,
		NumericZeroRatio:      float64(numericZero) / t,
		ShortTextRatio:        float64(shortText) / t,
		EssentialMissingRatio: float64(essentialMissing) / float64(len(essentialFields)),
	}
}

func hasValue(rec *model.Record, name string) bool {
	if rec == nil {
		return false
	}
	v, ok := rec.Get(name)
	if !ok || v.IsMissing() {
		return false
	}
	if v.Kind() == model.KindString && strings.TrimSpace(v.Str()) == "" {
		return false
	}
	return true
}

// pseudoLabel derives the bootstrap drop label for one feature row. The
// thresholds are a fixed policy, not a validated quality bar.
func pseudoLabel(f FeatureVector) bool {
	return f.NullRatio > 0.45 ||
		f.EmptyTextRatio > 0.35 ||
		(f.NullRatio > 0.25 && f.ShortTextRatio > 0.2) ||
		f.NumericZeroRatio > 0.5 ||
		f.EssentialMissingRatio > 0.4 ||
		(f.EssentialMissingRatio > 0.25 && f.NullRatio > 0.2)
}
