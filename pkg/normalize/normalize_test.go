package normalize

import (
	"math"
	"testing"

	"github.com/ontoforge/ontoforge/internal/model"
)

func TestStandardizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Address Zip", "address_zip"},
		{" License  Number ", "license_number"},
		{"D/B/A", "d_b_a"},
		{"Y Coordinate (Latitude)", "y_coordinate_(latitude)"},
		{"Phone-Number", "phone_number"},
		{"Status?", "status"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StandardizeKey(tt.in); got != tt.want {
			t.Errorf("StandardizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Address ZIP", "zip_code"},
		{"PostalCode", "postalcode"}, // no alias, standardized form kept
		{"Postal Code", "zip_code"},
		{"DCA License Number", "license_number"},
		{"Lat", "latitude"},
		{"lng", "longitude"},
		{"Doing Business As", "dba"},
		{"Totally Custom Field", "totally_custom_field"},
	}
	for _, tt := range tests {
		if got := CanonicalName(tt.in); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapAliasesCoalescesDuplicates(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("Phone", model.Null)
	rec.Set("Telephone", model.String("212-555-0100"))
	rec.Set("Business Name", model.String("Acme"))

	out := MapAliases(rec)
	if out.Len() != 2 {
		t.Fatalf("columns = %v, want phone and business_name", out.Columns())
	}
	v, _ := out.Get("phone")
	if v.Str() != "212-555-0100" {
		t.Errorf("first non-missing value must win, got %v", v)
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		name string
		in   model.Value
		want model.Value
	}{
		{"whitespace", model.String("  Acme   Corp "), model.String("Acme Corp")},
		{"na", model.String("N/A"), model.Null},
		{"dash", model.String("-"), model.Null},
		{"empty", model.String(""), model.Null},
		{"nan", model.Number(math.NaN()), model.Null},
		{"number", model.Number(5), model.Number(5)},
	}
	for _, tt := range tests {
		got := CleanValue(tt.in)
		if got.Canonical() != tt.want.Canonical() {
			t.Errorf("%s: CleanValue = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCleanZip(t *testing.T) {
	tests := []struct {
		in   model.Value
		want string // "" means null
	}{
		{model.String("10001"), "10001"},
		{model.String("10001-1234"), "10001-1234"},
		{model.String("100011234"), "10001-1234"},
		{model.Number(10001), "10001"},
		{model.String("ABCDE"), ""},
		{model.String("1234"), ""},
		{model.Null, ""},
	}
	for _, tt := range tests {
		got := CleanZip(tt.in)
		if tt.want == "" {
			if !got.IsNull() {
				t.Errorf("CleanZip(%v) = %v, want null", tt.in, got)
			}
		} else if got.Str() != tt.want {
			t.Errorf("CleanZip(%v) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in   model.Value
		want string
	}{
		{model.String("(212) 555-0100"), "2125550100"},
		{model.String("1-212-555-0100"), "2125550100"},
		{model.String("212.555.0100"), "2125550100"},
		{model.String("555-0100"), ""},
		{model.String("not a phone"), ""},
	}
	for _, tt := range tests {
		got := CleanPhone(tt.in)
		if tt.want == "" {
			if !got.IsNull() {
				t.Errorf("CleanPhone(%v) = %v, want null", tt.in, got)
			}
		} else if got.Str() != tt.want {
			t.Errorf("CleanPhone(%v) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCoordinatePair(t *testing.T) {
	lat, lon, ok := ParseCoordinatePair(model.String("(40.7128, -74.0060)"))
	if !ok || math.Abs(lat-40.7128) > 1e-9 || math.Abs(lon+74.006) > 1e-9 {
		t.Errorf("ParseCoordinatePair = (%v, %v, %v)", lat, lon, ok)
	}
	if _, _, ok := ParseCoordinatePair(model.String("midtown")); ok {
		t.Errorf("non-coordinate string must not parse")
	}
}

func TestNormalizeEndToEnd(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("Business Name", model.String("  Joe's   Pizza "))
	rec.Set("ZIP", model.String("10001-1234"))
	rec.Set("Phone Number", model.String("(212) 555-0100"))
	rec.Set("Lat", model.String("40.71"))
	rec.Set("Long", model.String("-73.99"))
	rec.Set("Status", model.String("N/A"))

	out := Normalize([]*model.Record{rec})
	if len(out) != 1 {
		t.Fatal("expected one record")
	}
	r := out[0]

	if v, _ := r.Get("business_name"); v.Str() != "Joe's Pizza" {
		t.Errorf("business_name = %v", v)
	}
	if v, _ := r.Get("zip_code"); v.Str() != "10001-1234" {
		t.Errorf("zip_code = %v", v)
	}
	if v, _ := r.Get("phone"); v.Str() != "2125550100" {
		t.Errorf("phone = %v", v)
	}
	if v, _ := r.Get("latitude"); v.Kind() != model.KindNumber || v.Number() != 40.71 {
		t.Errorf("latitude = %v", v)
	}
	if v, _ := r.Get("license_status"); !v.IsNull() {
		t.Errorf("null sentinel must coerce, got %v", v)
	}

	// Input untouched.
	if v, _ := rec.Get("Business Name"); v.Str() != "  Joe's   Pizza " {
		t.Errorf("input record mutated")
	}
}

func TestNormalizeLocationSplit(t *testing.T) {
	rec := model.NewRecord()
	rec.Set("cord_pair", model.String("(40.5, -73.5)"))

	r := Normalize([]*model.Record{rec})[0]
	lat, _ := r.Get("latitude")
	lon, _ := r.Get("longitude")
	if lat.Number() != 40.5 || lon.Number() != -73.5 {
		t.Errorf("location split = (%v, %v)", lat, lon)
	}
}
