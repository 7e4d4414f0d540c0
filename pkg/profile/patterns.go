package profile

import (
	"regexp"
	"strings"
)

// detectionThreshold is the fraction of trimmed strings that must match a
// pattern before it is reported. Majority, not unanimity: real open data is
// dirty.
const detectionThreshold = 0.8

// Pattern names reported by the battery.
const (
	PatternZipCode   = "zip_code"
	PatternStateCode = "state_code"
	PatternISODate   = "iso_date"
	PatternEmail     = "email"
	PatternPhone     = "phone"
)

// namedPattern pairs a pattern name with its full-string matcher.
type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// patternBattery is the fixed, ordered battery of semantic matchers.
var patternBattery = []namedPattern{
	{PatternZipCode, regexp.MustCompile(`^\d{5}(-\d{4})?$`)},
	{PatternStateCode, regexp.MustCompile(`^[A-Z]{2}$`)},
	{PatternISODate, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?)?$`)},
	{PatternEmail, regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)},
	{PatternPhone, regexp.MustCompile(`^\+?1?[-. (]*\d{3}[-. )]*\d{3}[-. ]*\d{4}$`)},
}

// DetectPatterns runs the battery against a column's string values and
// returns the names of patterns whose match fraction is at least 0.8 of the
// trimmed strings. Patterns are not mutually exclusive. Empty input yields no
// matches.
func DetectPatterns(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}

	var detected []string
	for _, p := range patternBattery {
		matches := 0
		for _, s := range trimmed {
			if p.re.MatchString(s) {
				matches++
			}
		}
		if float64(matches)/float64(len(trimmed)) >= detectionThreshold {
			detected = append(detected, p.name)
		}
	}
	return detected
}
