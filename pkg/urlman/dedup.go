package urlman

import "sync"

// Dedup tracks (investigation_id, normalized_url) keys already seen (spec
// §4.4 dedup key). The same URL in a different investigation is a distinct
// entry.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]map[string]struct{} // investigation_id -> normalized_url set
}

// NewDedup constructs an empty Dedup tracker.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]map[string]struct{})}
}

// CheckAndMark returns true if normalizedURL was already recorded for
// investigationID; otherwise records it and returns false.
func (d *Dedup) CheckAndMark(investigationID, normalizedURL string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.seen[investigationID]
	if !ok {
		set = make(map[string]struct{})
		d.seen[investigationID] = set
	}
	_, dup := set[normalizedURL]
	set[normalizedURL] = struct{}{}
	return dup
}
