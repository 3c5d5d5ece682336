package coordinator

import (
	"sort"

	"solana-token-radar/internal/domain"
)

// Default cache bounds.
const (
	DefaultDetectedCap  = 1000
	DefaultSignatureCap = 10000
)

type detectedEntry struct {
	rec *domain.CandidateRecord
	seq uint64 // arrival order, breaks DetectedAt ties
}

// detectedCache holds accepted records by address. Not safe for
// concurrent use; the coordinator guards it.
type detectedCache struct {
	cap     int
	seq     uint64
	entries map[string]detectedEntry
}

func newDetectedCache(capacity int) *detectedCache {
	if capacity <= 0 {
		capacity = DefaultDetectedCap
	}
	return &detectedCache{cap: capacity, entries: make(map[string]detectedEntry)}
}

func (c *detectedCache) get(addr string) *domain.CandidateRecord {
	e, ok := c.entries[addr]
	if !ok {
		return nil
	}
	return e.rec
}

func (c *detectedCache) put(rec *domain.CandidateRecord) {
	c.seq++
	c.entries[rec.Address] = detectedEntry{rec: rec, seq: c.seq}
}

func (c *detectedCache) len() int      { return len(c.entries) }
func (c *detectedCache) overCap() bool { return len(c.entries) > c.cap }

// sorted returns entries oldest first.
func (c *detectedCache) sorted() []detectedEntry {
	out := make([]detectedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.rec.DetectedAt.Equal(b.rec.DetectedAt) {
			return a.rec.DetectedAt.Before(b.rec.DetectedAt)
		}
		return a.seq < b.seq
	})
	return out
}

// trim evicts the oldest records until the cache is back at its cap.
func (c *detectedCache) trim() int {
	excess := len(c.entries) - c.cap
	if excess <= 0 {
		return 0
	}
	for _, e := range c.sorted()[:excess] {
		delete(c.entries, e.rec.Address)
	}
	return excess
}

// recent returns up to limit records, most recently detected first.
// A non-positive limit returns everything.
func (c *detectedCache) recent(limit int) []*domain.CandidateRecord {
	all := c.sorted()
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]*domain.CandidateRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i].rec.Clone())
	}
	return out
}

// signatureCache remembers processed transaction signatures in insertion order.
type signatureCache struct {
	cap   int
	set   map[string]struct{}
	order []string
}

func newSignatureCache(capacity int) *signatureCache {
	if capacity <= 0 {
		capacity = DefaultSignatureCap
	}
	return &signatureCache{cap: capacity, set: make(map[string]struct{})}
}

func (c *signatureCache) add(sig string) {
	if sig == "" {
		return
	}
	if _, ok := c.set[sig]; ok {
		return
	}
	c.set[sig] = struct{}{}
	c.order = append(c.order, sig)
}

func (c *signatureCache) has(sig string) bool {
	_, ok := c.set[sig]
	return ok
}

func (c *signatureCache) len() int      { return len(c.order) }
func (c *signatureCache) overCap() bool { return len(c.order) > c.cap }

// trim drops the oldest half of the capacity once the cap is exceeded.
func (c *signatureCache) trim() int {
	if !c.overCap() {
		return 0
	}
	n := c.cap / 2
	if n == 0 {
		n = 1
	}
	for _, sig := range c.order[:n] {
		delete(c.set, sig)
	}
	c.order = append([]string(nil), c.order[n:]...)
	return n
}
