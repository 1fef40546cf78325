package fact

import (
	"sort"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// SemanticScorer is the optional layer-3 dedup backend (spec §4.8 layer 3).
// When no implementation is configured, Consolidator skips layer 3
// gracefully (an Operational-kind degrade, spec §7), exactly as the spec
// mandates when "no embedding capability is available".
type SemanticScorer interface {
	// Similarity returns a score in [0,1] for how semantically similar two
	// claim texts are.
	Similarity(a, b string) float64
}

// ConsolidationStats summarizes one Consolidate call.
type ConsolidationStats struct {
	Input      int
	Canonical  int
	Variants   int
	Errors     []string
}

// Consolidator applies the three-layer dedup described in spec §4.8 and
// writes the resulting canonical set (with bidirectional variant links)
// into a Store.
type Consolidator struct {
	store           *Store
	semanticScorer  SemanticScorer
	semanticThreshold float64

	mu sync.Mutex // serializes consolidation per-process; spec §9 requires
	// both directions of a variant link to be written atomically under a
	// per-investigation lock — a single mutex here since consolidation runs
	// are not expected to run concurrently for the same investigation.
}

// NewConsolidator builds a Consolidator writing into store. semanticScorer
// may be nil to skip layer 3 (spec §4.8, §9 open question).
func NewConsolidator(store *Store, semanticScorer SemanticScorer, semanticThreshold float64) *Consolidator {
	if semanticThreshold <= 0 {
		semanticThreshold = 0.3
	}
	return &Consolidator{store: store, semanticScorer: semanticScorer, semanticThreshold: semanticThreshold}
}

// Consolidate dedups facts for investigationID and writes the canonical set
// (plus variants) into the store. It is idempotent: running it twice over
// the same input produces the same canonical set regardless of input order
// (spec §5, §8), because the outcome is keyed entirely by content hash and
// (source_id, claim text), never by arrival order.
func (c *Consolidator) Consolidate(investigationID string, facts []schema.ExtractedFact) ConsolidationStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := ConsolidationStats{Input: len(facts)}

	// Sort by fact_id first so that, given the same input set, the
	// "first seen becomes canonical" rule is deterministic regardless of
	// slice order.
	ordered := append([]schema.ExtractedFact(nil), facts...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].FactID < ordered[j].FactID })

	// Layer 1: URL/source identity within a single article — identical
	// claim text from the same source_id collapses before hash dedup even
	// runs, since it is the cheapest check.
	seenBySource := make(map[string]string) // (source_id|claim text) -> fact_id kept
	var layer1 []schema.ExtractedFact
	for _, f := range ordered {
		key := f.Provenance.SourceID + "\x00" + f.Claim.Text
		if _, dup := seenBySource[key]; dup {
			continue
		}
		seenBySource[key] = f.FactID
		layer1 = append(layer1, f)
	}

	// Layer 2: content hash dedup with bidirectional variant linking.
	canonicalByHash := make(map[string]*schema.ExtractedFact)
	for i := range layer1 {
		f := &layer1[i]
		if f.ContentHash == "" {
			f.ContentHash = schema.ComputeContentHash(f.Claim.Text)
		}
		if existing, dup := canonicalByHash[f.ContentHash]; dup {
			existing.Variants = appendUnique(existing.Variants, f.FactID)
			f.Variants = appendUnique(f.Variants, existing.FactID)
			existing.Provenance.AdditionalSources = appendUnique(existing.Provenance.AdditionalSources, f.Provenance.SourceID)
			stats.Variants++
		} else {
			canonicalByHash[f.ContentHash] = f
		}
	}

	// Layer 3: optional semantic similarity across the remaining distinct
	// hashes. Skipped gracefully when no scorer is configured.
	var canonicalList []*schema.ExtractedFact
	for _, f := range canonicalByHash {
		canonicalList = append(canonicalList, f)
	}
	sort.Slice(canonicalList, func(i, j int) bool { return canonicalList[i].FactID < canonicalList[j].FactID })

	merged := make(map[int]bool)
	if c.semanticScorer != nil {
		for i := 0; i < len(canonicalList); i++ {
			if merged[i] {
				continue
			}
			for j := i + 1; j < len(canonicalList); j++ {
				if merged[j] {
					continue
				}
				sim := c.semanticScorer.Similarity(canonicalList[i].Claim.Text, canonicalList[j].Claim.Text)
				if sim >= c.semanticThreshold {
					canonicalList[i].Variants = appendUnique(canonicalList[i].Variants, canonicalList[j].FactID)
					canonicalList[j].Variants = appendUnique(canonicalList[j].Variants, canonicalList[i].FactID)
					merged[j] = true
				}
			}
		}
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for i, f := range canonicalList {
		c.store.put(investigationID, *f)
		if merged[i] {
			stats.Variants++
			continue
		}
		stats.Canonical++
	}
	for _, f := range layer1 {
		if _, isCanonical := canonicalByHash[f.ContentHash]; isCanonical && canonicalByHash[f.ContentHash].FactID == f.FactID {
			continue
		}
		c.store.put(investigationID, f)
	}

	return stats
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
