package routing

import (
	"math"
	"testing"

	"github.com/ontoforge/ontoforge/internal/model"
	"github.com/ontoforge/ontoforge/pkg/profile"
)

func prof(cols ...string) profile.DatasetProfile {
	columns := make(map[string]profile.ColumnReport, len(cols))
	for _, c := range cols {
		columns[c] = profile.ColumnReport{}
	}
	return profile.DatasetProfile{
		RowCount:    1,
		ColumnCount: len(cols),
		ColumnOrder: cols,
		Columns:     columns,
	}
}

func profTagged(col string, tags ...string) profile.DatasetProfile {
	p := prof(col)
	rep := p.Columns[col]
	rep.Tags = tags
	p.Columns[col] = rep
	return p
}

func TestRoutePriority(t *testing.T) {
	tests := []struct {
		name string
		p    profile.DatasetProfile
		want Key
	}{
		{"coordinates", prof("latitude", "longitude"), KeyGeo},
		{"abbreviated coordinates", prof("lat", "lon"), KeyGeo},
		{"geo beats address", prof("latitude", "zip_code"), KeyGeo},
		{"address fields", prof("zip_code", "address_city"), KeyAddress},
		{"zip tag", profTagged("postal", profile.PatternZipCode), KeyAddress},
		{"finance token", prof("fine_amount"), KeyFinancial},
		{"address beats finance", prof("city", "fine_amount"), KeyAddress},
		{"demographic term", prof("population"), KeyDemographic},
		{"fallback", prof("name"), KeyGeneric},
		{"empty profile", prof(), KeyGeneric},
	}

	r := NewRouter()
	for _, tt := range tests {
		if got := r.Route(tt.p); got != tt.want {
			t.Errorf("%s: Route = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestResolveReturnsStrategy(t *testing.T) {
	r := NewRouter()
	s := r.Resolve(prof("zip_code", "address_city"))
	if _, ok := s.(*AddressStrategy); !ok {
		t.Fatalf("Resolve returned %T, want *AddressStrategy", s)
	}
	if s.Name() != KeyAddress {
		t.Errorf("Name = %q", s.Name())
	}
}

func TestAddressStrategy(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("address_building", model.String("123"))
	rec.Set("address_street_name", model.String("Main St"))
	rec.Set("address_city", model.String("NYC"))
	rec.Set("address_state", model.String("NY"))
	rec.Set("zip_code", model.String("10001"))
	rec.Set("latitude", model.Number(40.71))
	rec.Set("longitude", model.Number(-73.99))

	out := (&AddressStrategy{}).Apply(rec)

	if v, _ := out.Get("full_address"); v.Str() != "123 Main St NYC NY 10001" {
		t.Errorf("full_address = %v", v)
	}
	if v, _ := out.Get("has_coordinates"); !v.Bool() {
		t.Error("has_coordinates = false")
	}
	if v, _ := out.Get("_strategy"); v.Str() != "address" {
		t.Errorf("_strategy = %v", v)
	}
}

func TestAddressStrategySkipsAbsentParts(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("city", model.String("Albany"))
	rec.Set("state", model.String("NY"))

	out := (&AddressStrategy{}).Apply(rec)
	if v, _ := out.Get("full_address"); v.Str() != "Albany NY" {
		t.Errorf("full_address = %v", v)
	}
	if v, _ := out.Get("has_coordinates"); v.Bool() {
		t.Error("has_coordinates must be false without coordinates")
	}
}

func TestGeoStrategy(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("lat", model.String("40.71"))
	rec.Set("lon", model.String("-73.99"))

	out := (&GeoStrategy{}).Apply(rec)

	lat, _ := out.Get("latitude")
	lon, _ := out.Get("longitude")
	if math.Abs(lat.Number()-40.71) > 1e-9 || math.Abs(lon.Number()+73.99) > 1e-9 {
		t.Errorf("coordinates = (%v, %v)", lat, lon)
	}
	if v, _ := out.Get("has_valid_coordinates"); !v.Bool() {
		t.Error("has_valid_coordinates = false")
	}
	centroid, ok := out.Get("centroid")
	if !ok || len(centroid.ListItems()) != 2 {
		t.Fatalf("centroid = %v", centroid)
	}
	if centroid.ListItems()[0].Number() != 40.71 || centroid.ListItems()[1].Number() != -73.99 {
		t.Errorf("centroid = %v", centroid)
	}
	if out.Has("lat") || out.Has("lon") {
		t.Error("abbreviated keys must be removed")
	}
}

func TestGeoStrategyInvalidCoordinates(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("latitude", model.String("not a number"))
	rec.Set("longitude", model.Number(-73.99))

	out := (&GeoStrategy{}).Apply(rec)
	if v, _ := out.Get("has_valid_coordinates"); v.Bool() {
		t.Error("unparsable latitude must not validate")
	}
	if out.Has("centroid") {
		t.Error("centroid must be absent without valid coordinates")
	}
	if v, _ := out.Get("latitude"); !v.IsNull() {
		t.Errorf("unparsable latitude must null out, got %v", v)
	}
}

func TestGeoStrategyNullIsland(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("latitude", model.Number(0))
	rec.Set("longitude", model.Number(0))

	out := (&GeoStrategy{}).Apply(rec)
	if v, _ := out.Get("has_valid_coordinates"); v.Bool() {
		t.Error("(0,0) must not count as valid")
	}
}

func TestFinancialStrategy(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("fine_amount", model.String("100.50"))
	rec.Set("payment_due", model.Number(50))
	rec.Set("notes", model.String("n/a"))

	out := (&FinancialStrategy{}).Apply(rec)

	if v, _ := out.Get("financial_total"); math.Abs(v.Number()-150.5) > 1e-9 {
		t.Errorf("financial_total = %v", v)
	}
	if v, _ := out.Get("has_financial_red_flag"); v.Bool() {
		t.Error("red flag must be false under the threshold")
	}
}

func TestFinancialStrategyRedFlag(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("contract_amount", model.Number(2_500_000))

	out := (&FinancialStrategy{}).Apply(rec)
	if v, _ := out.Get("has_financial_red_flag"); !v.Bool() {
		t.Error("red flag must trip above the threshold")
	}
}

func TestDemographicStrategy(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("population", model.String("1000"))
	rec.Set("households", model.Number(200))
	rec.Set("area_sq_miles", model.Number(2))

	out := (&DemographicStrategy{}).Apply(rec)

	if v, _ := out.Get("population_density"); v.Number() != 500.0 {
		t.Errorf("population_density = %v", v)
	}
	if v, _ := out.Get("average_household_size"); v.Number() != 5.0 {
		t.Errorf("average_household_size = %v", v)
	}
}

func TestDemographicStrategyMissingOperands(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("population", model.Number(1000))
	rec.Set("area_sq_miles", model.Number(0))

	out := (&DemographicStrategy{}).Apply(rec)
	if v, _ := out.Get("population_density"); !v.IsNull() {
		t.Errorf("zero divisor must yield null, got %v", v)
	}
	if v, _ := out.Get("average_household_size"); !v.IsNull() {
		t.Errorf("missing operand must yield null, got %v", v)
	}
}

func TestGenericStrategy(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("foo", model.String("bar"))

	out := (&GenericStrategy{}).Apply(rec)

	hash, ok := out.Get("_record_hash")
	if !ok || hash.Str() == "" {
		t.Fatal("_record_hash missing")
	}
	if v, _ := out.Get("_strategy"); v.Str() != "generic" {
		t.Errorf("_strategy = %v", v)
	}
}

func TestGenericHashIgnoresColumnOrder(t *testing.T) {
	a := model.NewRecord()
	a.Set("foo", model.String("bar"))
	a.Set("baz", model.Number(1))

	b := model.NewRecord()
	b.Set("baz", model.Number(1))
	b.Set("foo", model.String("bar"))

	ha, _ := (&GenericStrategy{}).Apply(a).Get("_record_hash")
	hb, _ := (&GenericStrategy{}).Apply(b).Get("_record_hash")
	if ha.Str() != hb.Str() {
		t.Errorf("hashes differ: %v vs %v", ha, hb)
	}
}

func TestStrategiesDoNotMutateInput(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("lat", model.String(" 40.71 "))

	(&GeoStrategy{}).Apply(rec)
	if v, _ := rec.Get("lat"); v.Str() != " 40.71 " {
		t.Error("input record mutated")
	}
}
