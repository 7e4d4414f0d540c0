package normalize

import (
	"github.com/ontoforge/ontoforge/internal/model"
)

// Normalize runs the normalization primitives in order over a batch: alias
// mapping, null coercion, then conditional coordinate, zip, phone, and
// address cleanup depending on which canonical columns are present. Records
// are copied, never mutated in place.
func Normalize(records []*model.Record) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeRecord(rec))
	}
	return out
}

func normalizeRecord(rec *model.Record) *model.Record {
	r := CleanRecord(MapAliases(rec))

	if r.Has("latitude") || r.Has("longitude") || r.Has("location") {
		cleanCoordinates(r)
	}
	if v, ok := r.Get("zip_code"); ok {
		r.Set("zip_code", CleanZip(v))
	}
	if v, ok := r.Get("phone"); ok {
		r.Set("phone", CleanPhone(v))
	}
	if v, ok := r.Get("address"); ok {
		r.Set("address", CleanAddress(v))
	}
	return r
}

// cleanCoordinates coerces latitude/longitude to numbers and splits a
// combined location column into the coordinate pair when the individual
// columns are absent.
func cleanCoordinates(r *model.Record) {
	for _, name := range []string{"latitude", "longitude"} {
		v, ok := r.Get(name)
		if !ok || v.IsMissing() {
			continue
		}
		if f, ok := v.AsFloat(); ok {
			r.Set(name, model.Number(f))
		} else {
			r.Set(name, model.Null)
		}
	}

	if loc, ok := r.Get("location"); ok {
		if lat, lon, ok := ParseCoordinatePair(loc); ok {
			if !hasNumber(r, "latitude") {
				r.Set("latitude", model.Number(lat))
			}
			if !hasNumber(r, "longitude") {
				r.Set("longitude", model.Number(lon))
			}
		}
	}
}

func hasNumber(r *model.Record, name string) bool {
	v, ok := r.Get(name)
	return ok && v.Kind() == model.KindNumber
}
