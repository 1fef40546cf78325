package classification

import (
	"sort"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// Store indexes classifications by fact_id plus the secondary indexes spec
// §4.10 names: flag_index and tier_index. The priority queue view excludes
// NOISE-only classifications entirely, not merely deprioritizes them.
type Store struct {
	mu                sync.RWMutex
	byFactID          map[string]*schema.FactClassification
	flagIndex         map[schema.DubiousFlag]map[string]struct{}
	tierIndex         map[schema.ImpactTier]map[string]struct{}
	pendingReviewSet  map[string]struct{}
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		byFactID:         make(map[string]*schema.FactClassification),
		flagIndex:        make(map[schema.DubiousFlag]map[string]struct{}),
		tierIndex:        make(map[schema.ImpactTier]map[string]struct{}),
		pendingReviewSet: make(map[string]struct{}),
	}
}

// Put inserts or replaces a classification, reindexing it. Replacing an
// existing fact_id first removes its stale index entries.
func (s *Store) Put(c schema.FactClassification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byFactID[c.FactID]; ok {
		s.unindexLocked(existing)
	}

	stored := c
	s.byFactID[c.FactID] = &stored

	for _, f := range c.DubiousFlags {
		set, ok := s.flagIndex[f]
		if !ok {
			set = make(map[string]struct{})
			s.flagIndex[f] = set
		}
		set[c.FactID] = struct{}{}
	}

	set, ok := s.tierIndex[c.ImpactTier]
	if !ok {
		set = make(map[string]struct{})
		s.tierIndex[c.ImpactTier] = set
	}
	set[c.FactID] = struct{}{}

	if c.ImpactTier == schema.ImpactCritical && len(c.DubiousFlags) > 0 {
		s.pendingReviewSet[c.FactID] = struct{}{}
	}
}

func (s *Store) unindexLocked(c *schema.FactClassification) {
	for _, f := range c.DubiousFlags {
		if set, ok := s.flagIndex[f]; ok {
			delete(set, c.FactID)
			if len(set) == 0 {
				delete(s.flagIndex, f)
			}
		}
	}
	if set, ok := s.tierIndex[c.ImpactTier]; ok {
		delete(set, c.FactID)
		if len(set) == 0 {
			delete(s.tierIndex, c.ImpactTier)
		}
	}
	delete(s.pendingReviewSet, c.FactID)
}

// Get returns a copy of the classification for fact_id, or ok=false.
func (s *Store) Get(factID string) (schema.FactClassification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byFactID[factID]
	if !ok {
		return schema.FactClassification{}, false
	}
	return *c, true
}

// MarkReviewed clears a fact's pending-human-review state (spec §4.10
// human-review gate for critical-tier facts).
func (s *Store) MarkReviewed(factID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingReviewSet, factID)
}

// GetByFlag returns every classification currently carrying the given flag.
func (s *Store) GetByFlag(flag schema.DubiousFlag) []schema.FactClassification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.flagIndex[flag]
	out := make([]schema.FactClassification, 0, len(set))
	for id := range set {
		out = append(out, *s.byFactID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactID < out[j].FactID })
	return out
}

// GetCriticalDubious returns every critical-tier classification that also
// carries at least one dubious flag — the set spec §4.10 calls out for
// priority review.
func (s *Store) GetCriticalDubious() []schema.FactClassification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.tierIndex[schema.ImpactCritical]
	out := make([]schema.FactClassification, 0)
	for id := range set {
		c := s.byFactID[id]
		if len(c.DubiousFlags) > 0 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriorityScore > out[j].PriorityScore })
	return out
}

// GetPendingReview returns critical-tier dubious facts awaiting human
// sign-off before their verification status may go terminal.
func (s *Store) GetPendingReview() []schema.FactClassification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.FactClassification, 0, len(s.pendingReviewSet))
	for id := range s.pendingReviewSet {
		out = append(out, *s.byFactID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactID < out[j].FactID })
	return out
}

// GetPriorityQueue returns every classification with priority_score > 0,
// sorted highest-first. NOISE-only classifications always score 0 and are
// excluded by construction rather than filtered after the fact (spec
// §4.9/§4.10).
func (s *Store) GetPriorityQueue() []schema.FactClassification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.FactClassification, 0, len(s.byFactID))
	for _, c := range s.byFactID {
		if c.PriorityScore > 0 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		return out[i].FactID < out[j].FactID
	})
	return out
}

// Count returns the number of stored classifications.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFactID)
}
