package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/ontoforge/ontoforge/internal/model"
)

// Deduplicator drops exact duplicate rows so re-ingested or overlapping
// extracts stay idempotent. Equality is structural: same columns with the
// same canonicalized values, regardless of column order.
type Deduplicator struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	duplicates int
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Filter returns the records whose content has not been seen before, in
// input order. State persists across calls, so one Deduplicator can span
// multiple batches from the same source.
func (d *Deduplicator) Filter(records []*model.Record) []*model.Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		key := contentKey(rec)
		if _, dup := d.seen[key]; dup {
			d.duplicates++
			continue
		}
		d.seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Duplicates returns how many records have been dropped so far.
func (d *Deduplicator) Duplicates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duplicates
}

func contentKey(rec *model.Record) string {
	names := append([]string(nil), rec.Columns()...)
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		v, _ := rec.Get(name)
		h.Write([]byte(name))
		h.Write([]byte{0x1f})
		h.Write([]byte(v.Canonical()))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
