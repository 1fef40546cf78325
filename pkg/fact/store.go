// Package fact implements the fact store and consolidator (spec §4.8):
// O(1) indexed storage plus three-layer dedup with bidirectional variant
// linking.
package fact

import (
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// record pairs a fact with its owning investigation for the flat index.
type record struct {
	investigationID string
	fact            schema.ExtractedFact
}

// Store holds every investigation's facts behind three indices: fact_id,
// content_hash, and source_id (spec §4.8).
type Store struct {
	mu          sync.RWMutex
	factIndex   map[string]*record              // fact_id -> record
	hashIndex   map[string]map[string]struct{}  // content_hash -> set of fact_id
	sourceIndex map[string]map[string]struct{}  // source_id -> set of fact_id
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		factIndex:   make(map[string]*record),
		hashIndex:   make(map[string]map[string]struct{}),
		sourceIndex: make(map[string]map[string]struct{}),
	}
}

// put inserts or overwrites a fact and (re)indexes it. Callers must hold mu.
func (s *Store) put(investigationID string, f schema.ExtractedFact) {
	s.factIndex[f.FactID] = &record{investigationID: investigationID, fact: f}

	hashSet, ok := s.hashIndex[f.ContentHash]
	if !ok {
		hashSet = make(map[string]struct{})
		s.hashIndex[f.ContentHash] = hashSet
	}
	hashSet[f.FactID] = struct{}{}

	srcSet, ok := s.sourceIndex[f.Provenance.SourceID]
	if !ok {
		srcSet = make(map[string]struct{})
		s.sourceIndex[f.Provenance.SourceID] = srcSet
	}
	srcSet[f.FactID] = struct{}{}
}

// Get returns a fact by ID, or ok=false if unknown.
func (s *Store) Get(factID string) (schema.ExtractedFact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.factIndex[factID]
	if !ok {
		return schema.ExtractedFact{}, false
	}
	return r.fact, true
}

// GetWithVariants returns the canonical fact plus its linked variants,
// fetching either the canonical ID or any variant's ID (spec §4.8: "any
// fetch of either returns a canonical fact plus its linked variants").
func (s *Store) GetWithVariants(factID string) (canonical schema.ExtractedFact, variants []schema.ExtractedFact, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.factIndex[factID]
	if !exists {
		return schema.ExtractedFact{}, nil, false
	}
	canonical = r.fact
	// If factID is itself a variant, find its canonical owner by hash set:
	// a fact that lists factID in its own Variants[] and has more variants
	// than factID does (a canonical links every variant of its group, a
	// variant links only its canonical). In a two-fact group the two cannot
	// be told apart this way, and the fetched fact is returned as canonical.
	for candidateID := range s.hashIndex[canonical.ContentHash] {
		candidate := s.factIndex[candidateID].fact
		if candidateID != canonical.FactID && containsID(candidate.Variants, canonical.FactID) && len(candidate.Variants) > len(canonical.Variants) {
			canonical = candidate
			break
		}
	}
	for _, vid := range canonical.Variants {
		if vr, ok := s.factIndex[vid]; ok {
			variants = append(variants, vr.fact)
		}
	}
	return canonical, variants, true
}

// ByHash returns every fact ID sharing a content hash.
func (s *Store) ByHash(contentHash string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.hashIndex[contentHash]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// BySource returns every fact ID provenanced to sourceID.
func (s *Store) BySource(sourceID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sourceIndex[sourceID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// AllForInvestigation returns every fact belonging to investigationID.
func (s *Store) AllForInvestigation(investigationID string) []schema.ExtractedFact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.ExtractedFact
	for _, r := range s.factIndex {
		if r.investigationID == investigationID {
			out = append(out, r.fact)
		}
	}
	return out
}

func containsID(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
