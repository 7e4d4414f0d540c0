package routing

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/ontoforge/ontoforge/internal/model"
	"github.com/ontoforge/ontoforge/pkg/normalize"
)

// redFlagThreshold marks a financial total as suspicious.
const redFlagThreshold = 1_000_000

// strategyField carries the routing decision on every enriched record so
// downstream consumers can tell which transform produced it.
const strategyField = "_strategy"

// Strategy is a stateless record transform. Apply never mutates its input;
// every variant first runs the shared field-cleaning pass.
type Strategy interface {
	Name() Key
	Apply(rec *model.Record) *model.Record
}

// AddressStrategy builds a full-address string from whatever address
// components the record carries.
type AddressStrategy struct{}

func (s *AddressStrategy) Name() Key { return KeyAddress }

// addressComponents lists the candidate columns for each positional part of
// the concatenated address, in output order.
var addressComponents = [][]string{
	{"building_number", "address_building"},
	{"street_name", "address_street_name", "address"},
	{"address2"},
	{"city", "address_city"},
	{"state", "address_state"},
	{"zip_code"},
}

func (s *AddressStrategy) Apply(rec *model.Record) *model.Record {
	r := normalize.CleanRecord(rec)

	var parts []string
	for _, candidates := range addressComponents {
		for _, name := range candidates {
			if v, ok := r.Get(name); ok && !v.IsMissing() {
				if text := valueText(v); text != "" {
					parts = append(parts, text)
				}
				break
			}
		}
	}
	if len(parts) > 0 {
		r.Set("full_address", model.String(strings.Join(parts, " ")))
	}

	lat, latOK := r.Get("latitude")
	lon, lonOK := r.Get("longitude")
	r.Set("has_coordinates", model.Bool(latOK && lonOK && !lat.IsMissing() && !lon.IsMissing()))

	r.Set(strategyField, model.String(string(KeyAddress)))
	return r
}

// GeoStrategy coerces coordinate fields to numbers, folding abbreviated
// column names onto the canonical pair.
type GeoStrategy struct{}

func (s *GeoStrategy) Name() Key { return KeyGeo }

var coordinateAliases = map[string]string{
	"lat":          "latitude",
	"y_coordinate": "latitude",
	"lon":          "longitude",
	"lng":          "longitude",
	"long":         "longitude",
	"x_coordinate": "longitude",
}

func (s *GeoStrategy) Apply(rec *model.Record) *model.Record {
	r := normalize.CleanRecord(rec)

	for abbrev, canonical := range coordinateAliases {
		v, ok := r.Get(abbrev)
		if !ok {
			continue
		}
		if _, exists := r.Get(canonical); !exists {
			r.Set(canonical, v)
		}
		r.Delete(abbrev)
	}

	lat, latOK := coerceNumber(r, "latitude")
	lon, lonOK := coerceNumber(r, "longitude")

	valid := latOK && lonOK && normalize.ValidCoordinates(lat, lon)
	r.Set("has_valid_coordinates", model.Bool(valid))
	if valid {
		r.Set("centroid", model.List(model.Number(lat), model.Number(lon)))
	}

	r.Set(strategyField, model.String(string(KeyGeo)))
	return r
}

// coerceNumber rewrites a column to its numeric form, nulling it when the
// value does not parse.
func coerceNumber(r *model.Record, name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok || v.IsMissing() {
		return 0, false
	}
	f, ok := v.AsFloat()
	if !ok {
		r.Set(name, model.Null)
		return 0, false
	}
	r.Set(name, model.Number(f))
	return f, true
}

// FinancialStrategy totals the numeric values of finance-named columns and
// flags unusually large sums.
type FinancialStrategy struct{}

func (s *FinancialStrategy) Name() Key { return KeyFinancial }

func (s *FinancialStrategy) Apply(rec *model.Record) *model.Record {
	r := normalize.CleanRecord(rec)

	total := 0.0
	for _, name := range r.Columns() {
		if !hasFinanceToken(name) {
			continue
		}
		v, _ := r.Get(name)
		if f, ok := v.AsFloat(); ok {
			total += f
		}
	}
	r.Set("financial_total", model.Number(total))
	r.Set("has_financial_red_flag", model.Bool(total > redFlagThreshold))

	r.Set(strategyField, model.String(string(KeyFinancial)))
	return r
}

// DemographicStrategy derives density and household-size metrics. A missing
// operand or zero divisor yields null, never an error.
type DemographicStrategy struct{}

func (s *DemographicStrategy) Name() Key { return KeyDemographic }

func (s *DemographicStrategy) Apply(rec *model.Record) *model.Record {
	r := normalize.CleanRecord(rec)

	pop, popOK := numberAt(r, "population")
	area, areaOK := numberAt(r, "area_sq_miles")
	households, hhOK := numberAt(r, "households")

	r.Set("population_density", ratioValue(pop, area, popOK && areaOK))
	r.Set("average_household_size", ratioValue(pop, households, popOK && hhOK))

	r.Set(strategyField, model.String(string(KeyDemographic)))
	return r
}

func numberAt(r *model.Record, name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

func ratioValue(num, den float64, ok bool) model.Value {
	if !ok || den == 0 {
		return model.Null
	}
	return model.Number(num / den)
}

// GenericStrategy is the fallback: a passthrough that stamps the strategy
// name and a structural hash for downstream dedup.
type GenericStrategy struct{}

func (s *GenericStrategy) Name() Key { return KeyGeneric }

func (s *GenericStrategy) Apply(rec *model.Record) *model.Record {
	r := normalize.CleanRecord(rec)

	r.Set("_record_hash", model.String(recordHash(r)))
	r.Set(strategyField, model.String(string(KeyGeneric)))
	return r
}

// recordHash digests the record's sorted key/value pairs so records with the
// same content hash identically regardless of column order.
func recordHash(r *model.Record) string {
	names := append([]string(nil), r.Columns()...)
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		v, _ := r.Get(name)
		h.Write([]byte(name))
		h.Write([]byte{0x1f})
		h.Write([]byte(v.Canonical()))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// valueText renders a scalar for address concatenation.
func valueText(v model.Value) string {
	switch v.Kind() {
	case model.KindString:
		return v.Str()
	case model.KindNumber:
		return strconv.FormatFloat(v.Number(), 'f', -1, 64)
	case model.KindBool:
		return strconv.FormatBool(v.Bool())
	default:
		return ""
	}
}
