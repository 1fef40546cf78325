package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

func claimFact(id, sourceID, text string) schema.ExtractedFact {
	return schema.ExtractedFact{
		FactID:      id,
		ContentHash: schema.ComputeContentHash(text),
		Claim:       schema.Claim{Text: text, AssertionType: schema.AssertionStatement, ClaimType: schema.ClaimTypeEvent},
		Provenance:  schema.Provenance{SourceID: sourceID},
	}
}

func TestContentHashInvariant(t *testing.T) {
	// spec §8: SHA256(f.claim.text) == f.content_hash
	f := claimFact("f1", "reuters", "Russian involvement in the Sarajevo incident")
	assert.Equal(t, schema.ComputeContentHash(f.Claim.Text), f.ContentHash)
}

func TestVariantLinkingPreservesCorroboration(t *testing.T) {
	// spec §8 scenario 2: three distinct provenances, same claim text.
	store := New()
	consolidator := NewConsolidator(store, nil, 0)

	facts := []schema.ExtractedFact{
		claimFact("f-reuters", "reuters", "Troops massing at the border"),
		claimFact("f-ap", "ap", "Troops massing at the border"),
		claimFact("f-tass", "tass", "Troops massing at the border"),
	}

	stats := consolidator.Consolidate("inv-1", facts)
	assert.Equal(t, 1, stats.Canonical)
	assert.Equal(t, 2, stats.Variants)

	canonical, variants, ok := store.GetWithVariants("f-reuters")
	require.True(t, ok)
	assert.Len(t, canonical.Variants, 2)
	assert.Len(t, variants, 2)
	assert.Len(t, canonical.Provenance.AdditionalSources, 2)

	// bidirectional: facts are ordered by ID, so f-ap is the canonical and
	// f-reuters a variant; fetching via either ID returns the same canonical set
	canonical2, variants2, ok := store.GetWithVariants("f-ap")
	require.True(t, ok)
	assert.Equal(t, canonical.FactID, canonical2.FactID)
	assert.Len(t, variants2, 2)
}

func TestLayer1DedupsSameSourceSameText(t *testing.T) {
	store := New()
	consolidator := NewConsolidator(store, nil, 0)

	facts := []schema.ExtractedFact{
		claimFact("f1", "reuters", "X happened"),
		claimFact("f2", "reuters", "X happened"), // same source+text, collapses before hashing
	}
	stats := consolidator.Consolidate("inv-1", facts)
	assert.Equal(t, 1, stats.Canonical)
	assert.Equal(t, 0, stats.Variants)
}

func TestConsolidateIsIdempotentUnderReordering(t *testing.T) {
	store1 := New()
	c1 := NewConsolidator(store1, nil, 0)
	facts := []schema.ExtractedFact{
		claimFact("f3", "c", "Y happened"),
		claimFact("f1", "a", "Y happened"),
		claimFact("f2", "b", "Y happened"),
	}
	c1.Consolidate("inv-1", facts)

	store2 := New()
	c2 := NewConsolidator(store2, nil, 0)
	reordered := []schema.ExtractedFact{facts[2], facts[0], facts[1]}
	c2.Consolidate("inv-1", reordered)

	canonical1, variants1, _ := store1.GetWithVariants("f1")
	canonical2, variants2, _ := store2.GetWithVariants("f1")
	assert.Equal(t, canonical1.FactID, canonical2.FactID)
	assert.Equal(t, len(variants1), len(variants2))
}

func TestSemanticLayerSkippedWhenNoScorerConfigured(t *testing.T) {
	store := New()
	consolidator := NewConsolidator(store, nil, 0)
	facts := []schema.ExtractedFact{
		claimFact("f1", "a", "Text one"),
		claimFact("f2", "b", "Text two, semantically similar but not identical"),
	}
	stats := consolidator.Consolidate("inv-1", facts)
	assert.Equal(t, 2, stats.Canonical) // no merge without a scorer
}

type stubScorer struct{ score float64 }

func (s stubScorer) Similarity(a, b string) float64 { return s.score }

func TestSemanticLayerMergesAboveThreshold(t *testing.T) {
	store := New()
	consolidator := NewConsolidator(store, stubScorer{score: 0.9}, 0.3)
	facts := []schema.ExtractedFact{
		claimFact("f1", "a", "Text one"),
		claimFact("f2", "b", "Text two"),
	}
	stats := consolidator.Consolidate("inv-1", facts)
	assert.Equal(t, 1, stats.Canonical)
}

func TestStoreGetUnknownFact(t *testing.T) {
	store := New()
	_, ok := store.Get("ghost")
	assert.False(t, ok)
}

func TestStoreBySourceIndex(t *testing.T) {
	store := New()
	c := NewConsolidator(store, nil, 0)
	c.Consolidate("inv-1", []schema.ExtractedFact{claimFact("f1", "reuters", "A"), claimFact("f2", "reuters", "B")})
	ids := store.BySource("reuters")
	assert.Len(t, ids, 2)
}
