package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintSep joins column names before hashing. The unit separator is
// vanishingly unlikely to occur in a real header.
const fingerprintSep = "\x1f"

// Fingerprint returns a deterministic short hash of a column-name layout:
// the first 16 hex characters of a SHA-256 digest over the
// first-occurrence-deduplicated names. The empty layout maps to the empty
// string sentinel, not a hash.
func Fingerprint(columns []string) string {
	if len(columns) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(columns))
	deduped := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		deduped = append(deduped, c)
	}
	if len(deduped) == 0 {
		return ""
	}

	sum := sha256.Sum256([]byte(strings.Join(deduped, fingerprintSep)))
	return hex.EncodeToString(sum[:])[:16]
}
