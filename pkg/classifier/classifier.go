package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// Model type markers persisted alongside the learned state.
const (
	ModelHeuristic = "heuristic"
	ModelTrained   = "trained"
)

// DefaultThreshold is the drop-probability cutoff.
const DefaultThreshold = 0.65

var defaultMeans = map[string]float64{
	"null_ratio":              0.15,
	"empty_text_ratio":        0.05,
	"numeric_zero_ratio":      0.1,
	"short_text_ratio":        0.1,
	"essential_missing_ratio": 0.3,
}

var defaultScales = map[string]float64{
	"null_ratio":              0.15,
	"empty_text_ratio":        0.05,
	"numeric_zero_ratio":      0.08,
	"short_text_ratio":        0.05,
	"essential_missing_ratio": 0.2,
}

// Fallback logistic model: hand-tuned weights over standardized features.
const heuristicBias = -1.0

var heuristicWeights = map[string]float64{
	"null_ratio":              3.0,
	"empty_text_ratio":        1.6,
	"numeric_zero_ratio":      1.2,
	"short_text_ratio":        1.3,
	"essential_missing_ratio": 4.0,
}

// RowDropClassifier decides per-record drop/keep. Fit selects between a
// boosted-tree ensemble (when the pseudo-labels contain both classes) and the
// fixed logistic fallback, so the classifier is always operable regardless of
// data sufficiency. A single instance must not be fit and predicted
// concurrently; Fit mutates the learned state in place.
type RowDropClassifier struct {
	Threshold     float64
	FeatureMeans  map[string]float64
	FeatureScales map[string]float64
	ModelType     string

	booster *ensemble
}

// New returns a classifier in the heuristic regime with default statistics.
func New() *RowDropClassifier {
	return &RowDropClassifier{
		Threshold:     DefaultThreshold,
		FeatureMeans:  copyMap(defaultMeans),
		FeatureScales: copyMap(defaultScales),
		ModelType:     ModelHeuristic,
	}
}

// Fit recomputes feature statistics from the batch, derives pseudo-labels,
// and trains the ensemble when both classes are present; otherwise it falls
// back to the fixed logistic model. An empty batch resets to defaults.
func (c *RowDropClassifier) Fit(records []*model.Record) *RowDropClassifier {
	features := make([]FeatureVector, len(records))
	for i, rec := range records {
		features[i] = ComputeFeatures(rec)
	}

	if len(features) == 0 {
		c.FeatureMeans = copyMap(defaultMeans)
		c.FeatureScales = copyMap(defaultScales)
		c.ModelType = ModelHeuristic
		c.booster = nil
		return c
	}

	c.recomputeStats(features)

	matrix := toMatrix(features)
	labels := make([]int, len(features))
	positives := 0
	for i, f := range features {
		if pseudoLabel(f) {
			labels[i] = 1
			positives++
		}
	}

	if positives > 0 && positives < len(labels) {
		c.booster = trainEnsemble(matrix, labels, defaultEnsembleParams())
		c.ModelType = ModelTrained
	} else {
		c.booster = nil
		c.ModelType = ModelHeuristic
	}
	return c
}

// PredictProba returns one drop probability in [0,1] per record.
func (c *RowDropClassifier) PredictProba(records []*model.Record) []float64 {
	if len(records) == 0 {
		return nil
	}

	probs := make([]float64, len(records))
	for i, rec := range records {
		f := ComputeFeatures(rec)
		if c.ModelType == ModelTrained && c.booster != nil {
			probs[i] = c.booster.predict(f.values())
		} else {
			probs[i] = c.heuristicProbability(f)
		}
	}
	return probs
}

// PredictDrop thresholds the probabilities into a drop mask.
func (c *RowDropClassifier) PredictDrop(records []*model.Record) []bool {
	probs := c.PredictProba(records)
	mask := make([]bool, len(probs))
	for i, p := range probs {
		mask[i] = p >= c.Threshold
	}
	return mask
}

// FilterRecords partitions the batch into kept records and a dropped count.
func (c *RowDropClassifier) FilterRecords(records []*model.Record) ([]*model.Record, int) {
	mask := c.PredictDrop(records)
	kept := make([]*model.Record, 0, len(records))
	dropped := 0
	for i, rec := range records {
		if mask[i] {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped
}

func (c *RowDropClassifier) recomputeStats(features []FeatureVector) {
	c.FeatureMeans = make(map[string]float64, len(featureKeys))
	c.FeatureScales = make(map[string]float64, len(featureKeys))

	column := make([]float64, len(features))
	for k, key := range featureKeys {
		for i, f := range features {
			column[i] = f.values()[k]
		}
		mean := stat.Mean(column, nil)
		scale := stat.PopStdDev(column, nil)
		if scale == 0 {
			scale = defaultScales[key]
		}
		c.FeatureMeans[key] = mean
		c.FeatureScales[key] = scale
	}
}

func (c *RowDropClassifier) heuristicProbability(f FeatureVector) float64 {
	z := heuristicBias
	vals := f.values()
	for k, key := range featureKeys {
		z += heuristicWeights[key] * c.standardize(key, vals[k])
	}
	return sigmoid(z)
}

func (c *RowDropClassifier) standardize(key string, value float64) float64 {
	mean, ok := c.FeatureMeans[key]
	if !ok {
		mean = defaultMeans[key]
	}
	scale, ok := c.FeatureScales[key]
	if !ok || scale == 0 {
		scale = defaultScales[key]
	}
	return (value - mean) / scale
}

func toMatrix(features []FeatureVector) [][]float64 {
	matrix := make([][]float64, len(features))
	for i, f := range features {
		matrix[i] = f.values()
	}
	return matrix
}

func copyMap(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// modelPayload is the persisted form of the classifier.
type modelPayload struct {
	Threshold     float64            `json:"threshold"`
	FeatureMeans  map[string]float64 `json:"feature_means"`
	FeatureScales map[string]float64 `json:"feature_scales"`
	ModelType     string             `json:"model_type"`
	Booster       *string            `json:"booster"`
}

// Save persists the classifier as a single JSON blob, including the encoded
// ensemble when trained.
func (c *RowDropClassifier) Save(path string) error {
	payload := modelPayload{
		Threshold:     c.Threshold,
		FeatureMeans:  c.FeatureMeans,
		FeatureScales: c.FeatureScales,
		ModelType:     c.ModelType,
	}
	if c.ModelType == ModelTrained && c.booster != nil {
		blob, err := c.booster.encode()
		if err != nil {
			return oferrors.Wrap(err, oferrors.CodeWriteFailed, "failed to encode ensemble")
		}
		payload.Booster = &blob
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "failed to marshal model")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return oferrors.Wrap(err, oferrors.CodeWriteFailed, "failed to create model directory")
		}
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return oferrors.Wrap(err, oferrors.CodeWriteFailed, "failed to write model file")
	}
	return nil
}

// Load restores a persisted classifier. A payload that declares a trained
// model but carries no usable ensemble is a fatal configuration error, not a
// silent downgrade.
func Load(path string) (*RowDropClassifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeFileNotFound, "failed to read model file").
			WithContext("path", path)
	}

	var payload modelPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, oferrors.ModelCorrupt(path, err)
	}

	c := New()
	if payload.Threshold > 0 {
		c.Threshold = payload.Threshold
	}
	if payload.FeatureMeans != nil {
		c.FeatureMeans = payload.FeatureMeans
	}
	if payload.FeatureScales != nil {
		c.FeatureScales = payload.FeatureScales
	}

	switch payload.ModelType {
	case ModelTrained:
		if payload.Booster == nil || *payload.Booster == "" {
			return nil, oferrors.EnsembleMissing(path)
		}
		booster, err := decodeEnsemble(*payload.Booster)
		if err != nil {
			return nil, oferrors.ModelCorrupt(path, err)
		}
		c.booster = booster
		c.ModelType = ModelTrained
	case ModelHeuristic, "":
		c.ModelType = ModelHeuristic
	default:
		return nil, oferrors.New(oferrors.CodeModelIncompatible, "unknown model type").
			WithContext("model_type", payload.ModelType).
			WithContext("path", path)
	}
	return c, nil
}
