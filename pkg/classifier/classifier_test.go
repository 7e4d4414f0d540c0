package classifier

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

type pair struct {
	k string
	v model.Value
}

func record(pairs ...pair) *model.Record {
	rec := model.NewRecord()
	for _, p := range pairs {
		rec.Set(p.k, p.v)
	}
	return rec
}

// cleanRecord covers ten essential fields, enough to pseudo-label as keep.
func cleanRecord() *model.Record {
	return record(
		pair{"business_name", model.String("Sunrise Bakery")},
		pair{"street_address", model.String("123 Flatbush Ave")},
		pair{"address_city", model.String("Brooklyn")},
		pair{"city", model.String("Brooklyn")},
		pair{"address_state", model.String("New York")},
		pair{"state", model.String("New York")},
		pair{"zip_code", model.String("11201")},
		pair{"latitude", model.Number(40.69)},
		pair{"longitude", model.Number(-73.99)},
		pair{"phone", model.String("2125550100")},
	)
}

// dirtyRecord is structurally poor: everything null or empty.
func dirtyRecord() *model.Record {
	return record(
		pair{"business_name", model.Null},
		pair{"street_address", model.String("")},
		pair{"address_city", model.Null},
		pair{"city", model.Null},
		pair{"address_state", model.Null},
		pair{"state", model.Null},
		pair{"zip_code", model.Null},
		pair{"latitude", model.Null},
		pair{"longitude", model.Null},
		pair{"phone", model.Null},
	)
}

func TestComputeFeatures(t *testing.T) {
	rec := record(
		pair{"name", model.String("")},
		pair{"amount", model.Number(0)},
		pair{"city", model.Null},
	)
	f := ComputeFeatures(rec)

	if math.Abs(f.NullRatio-2.0/3.0) > 1e-12 {
		t.Errorf("NullRatio = %v, want 2/3", f.NullRatio)
	}
	if math.Abs(f.EmptyTextRatio-1.0/3.0) > 1e-12 {
		t.Errorf("EmptyTextRatio = %v, want 1/3", f.EmptyTextRatio)
	}
	if math.Abs(f.NumericZeroRatio-1.0/3.0) > 1e-12 {
		t.Errorf("NumericZeroRatio = %v, want 1/3", f.NumericZeroRatio)
	}
	if f.EssentialMissingRatio != 1.0 {
		t.Errorf("EssentialMissingRatio = %v, want 1.0", f.EssentialMissingRatio)
	}
}

func TestComputeFeaturesSafeDefaults(t *testing.T) {
	f := ComputeFeatures(nil)
	if f.NullRatio != 0 || f.EssentialMissingRatio != 1.0 {
		t.Errorf("nil record features = %+v", f)
	}

	rec := model.NewRecord()
	rec.Set("x", model.Number(math.NaN()))
	f = ComputeFeatures(rec)
	if f.NullRatio != 1.0 {
		t.Errorf("NaN must count as null-like, got %+v", f)
	}
}

func TestClassifierScenario(t *testing.T) {
	good := record(
		pair{"name", model.String("Acme")},
		pair{"amount", model.Number(100)},
		pair{"city", model.String("NY")},
	)
	bad := record(
		pair{"name", model.String("")},
		pair{"amount", model.Number(0)},
		pair{"city", model.Null},
	)
	batch := []*model.Record{good, bad}

	c := New()
	c.Threshold = 0.5
	c.Fit(batch)

	mask := c.PredictDrop(batch)
	if len(mask) != 2 || mask[0] || !mask[1] {
		t.Fatalf("drop mask = %v, want [false true]", mask)
	}

	kept, dropped := c.FilterRecords(batch)
	if len(kept) != 1 || dropped != 1 {
		t.Fatalf("FilterRecords = (%d kept, %d dropped), want (1, 1)", len(kept), dropped)
	}
	if v, _ := kept[0].Get("name"); v.Str() != "Acme" {
		t.Errorf("kept record = %v, want Acme", v.Str())
	}
}

func TestFitSelectsTrainedWhenBothClasses(t *testing.T) {
	var batch []*model.Record
	for i := 0; i < 8; i++ {
		batch = append(batch, cleanRecord())
	}
	for i := 0; i < 8; i++ {
		batch = append(batch, dirtyRecord())
	}

	c := New().Fit(batch)
	if c.ModelType != ModelTrained {
		t.Fatalf("ModelType = %q, want trained", c.ModelType)
	}

	probs := c.PredictProba(batch)
	if probs[0] >= 0.5 {
		t.Errorf("clean row probability = %v, want < 0.5", probs[0])
	}
	if probs[len(probs)-1] <= 0.5 {
		t.Errorf("dirty row probability = %v, want > 0.5", probs[len(probs)-1])
	}
}

func TestFitDeterministic(t *testing.T) {
	var batch []*model.Record
	for i := 0; i < 6; i++ {
		batch = append(batch, cleanRecord())
		batch = append(batch, dirtyRecord())
	}

	a := New().Fit(batch).PredictProba(batch)
	b := New().Fit(batch).PredictProba(batch)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fit is not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFitEmptyBatchResetsToDefaults(t *testing.T) {
	c := New().Fit(nil)
	if c.ModelType != ModelHeuristic {
		t.Errorf("ModelType = %q, want heuristic", c.ModelType)
	}
	if c.FeatureMeans["null_ratio"] != 0.15 || c.FeatureScales["essential_missing_ratio"] != 0.2 {
		t.Errorf("defaults not restored: %+v %+v", c.FeatureMeans, c.FeatureScales)
	}
	if got := c.PredictProba(nil); got != nil {
		t.Errorf("empty batch probabilities = %v, want nil", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	var batch []*model.Record
	for i := 0; i < 8; i++ {
		batch = append(batch, cleanRecord())
		batch = append(batch, dirtyRecord())
	}

	c := New().Fit(batch)
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ModelType != c.ModelType || loaded.Threshold != c.Threshold {
		t.Errorf("loaded = (%s, %v), want (%s, %v)", loaded.ModelType, loaded.Threshold, c.ModelType, c.Threshold)
	}

	want := c.PredictProba(batch)
	got := loaded.PredictProba(batch)
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-12 {
			t.Fatalf("probability drift after reload at %d: %v vs %v", i, want[i], got[i])
		}
	}
}

func TestLoadTrainedWithoutBoosterIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	payload := `{"threshold":0.65,"feature_means":{},"feature_scales":{},"model_type":"trained","booster":null}`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("loading a trained model without an ensemble payload must fail")
	}
	var coded *oferrors.Error
	if !errors.As(err, &coded) || coded.Code != oferrors.CodeEnsembleMissing {
		t.Errorf("error = %v, want code %s", err, oferrors.CodeEnsembleMissing)
	}
}

func TestLoadCorruptPayloadIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("corrupt payload must fail to load")
	}

	bad := `{"threshold":0.5,"model_type":"trained","booster":"%%%not-base64%%%"}`
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("undecodable booster payload must fail to load")
	}
}

func TestPseudoLabelPolicy(t *testing.T) {
	tests := []struct {
		name string
		f    FeatureVector
		want bool
	}{
		{"clean", FeatureVector{}, false},
		{"sparse", FeatureVector{NullRatio: 0.5}, true},
		{"empty heavy", FeatureVector{EmptyTextRatio: 0.4}, true},
		{"null and short", FeatureVector{NullRatio: 0.3, ShortTextRatio: 0.25}, true},
		{"zero heavy", FeatureVector{NumericZeroRatio: 0.6}, true},
		{"no identity", FeatureVector{EssentialMissingRatio: 0.5}, true},
		{"missing identity and nulls", FeatureVector{EssentialMissingRatio: 0.3, NullRatio: 0.25}, true},
		{"borderline", FeatureVector{NullRatio: 0.2, EmptyTextRatio: 0.35, EssentialMissingRatio: 0.4}, false},
	}
	for _, tt := range tests {
		if got := pseudoLabel(tt.f); got != tt.want {
			t.Errorf("%s: pseudoLabel = %v, want %v", tt.name, got, tt.want)
		}
	}
}
