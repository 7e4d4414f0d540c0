package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ontoforge/ontoforge/internal/model"
)

// nullSentinels are string values that encode "no data" in open-data portals.
var nullSentinels = map[string]struct{}{
	"":      {},
	"na":    {},
	"n/a":   {},
	"null":  {},
	"none":  {},
	"nil":   {},
	"-":     {},
	"--":    {},
	"unknown": {},
}

var (
	zipRe      = regexp.MustCompile(`^(\d{5})(?:-?(\d{4}))?$`)
	nonDigitRe = regexp.MustCompile(`\D`)
	coordPair  = regexp.MustCompile(`\(?\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)?`)
)

// CleanValue trims and collapses whitespace in strings and coerces null
// sentinels and NaN to the null value. Non-string values pass through except
// NaN, which becomes null.
func CleanValue(v model.Value) model.Value {
	if v.IsMissing() {
		return model.Null
	}
	if v.Kind() != model.KindString {
		return v
	}
	s := spaceRun.ReplaceAllString(strings.TrimSpace(v.Str()), " ")
	if _, isNull := nullSentinels[strings.ToLower(s)]; isNull {
		return model.Null
	}
	return model.String(s)
}

// CleanRecord returns a copy with every field cleaned. This is the shared
// field-cleaning pass every enrichment strategy runs first.
func CleanRecord(rec *model.Record) *model.Record {
	out := model.NewRecord()
	for _, name := range rec.Columns() {
		v, _ := rec.Get(name)
		out.Set(name, CleanValue(v))
	}
	return out
}

// CleanZip normalizes a zip value to a 5-digit code, preserving a ZIP+4
// suffix when present. Unparsable values become null.
func CleanZip(v model.Value) model.Value {
	v = CleanValue(v)
	if v.IsMissing() {
		return model.Null
	}

	var s string
	switch v.Kind() {
	case model.KindString:
		s = v.Str()
	case model.KindNumber:
		s = strconv.Itoa(int(v.Number()))
	default:
		return model.Null
	}

	m := zipRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return model.Null
	}
	if m[2] != "" {
		return model.String(m[1] + "-" + m[2])
	}
	return model.String(m[1])
}

// CleanPhone strips a phone value to its digits, accepting 10-digit numbers
// and 11-digit numbers with a leading country code 1. Anything else is null.
func CleanPhone(v model.Value) model.Value {
	v = CleanValue(v)
	if v.IsMissing() {
		return model.Null
	}

	var s string
	switch v.Kind() {
	case model.KindString:
		s = v.Str()
	case model.KindNumber:
		s = strconv.FormatFloat(v.Number(), 'f', 0, 64)
	default:
		return model.Null
	}

	digits := nonDigitRe.ReplaceAllString(s, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return model.Null
	}
	return model.String(digits)
}

// CleanAddress tidies a free-text address: whitespace collapse plus removal
// of stray punctuation runs.
func CleanAddress(v model.Value) model.Value {
	v = CleanValue(v)
	if v.IsMissing() || v.Kind() != model.KindString {
		return v
	}
	s := strings.Trim(v.Str(), " ,;")
	s = spaceRun.ReplaceAllString(s, " ")
	if s == "" {
		return model.Null
	}
	return model.String(s)
}

// ParseCoordinatePair extracts (latitude, longitude) from a combined
// location string such as "(40.71, -73.99)".
func ParseCoordinatePair(v model.Value) (float64, float64, bool) {
	if v.Kind() != model.KindString {
		return 0, 0, false
	}
	m := coordPair.FindStringSubmatch(v.Str())
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// ValidCoordinates reports whether a lat/lon pair is on the globe and not
// the (0,0) null island placeholder.
func ValidCoordinates(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
