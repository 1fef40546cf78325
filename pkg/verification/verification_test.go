package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// newClassificationStoreWithOnePhantomFact seeds a store with one
// critical-tier PHANTOM classification ready to drain through the priority
// queue.
func newClassificationStoreWithOnePhantomFact(factID string) *classification.Store {
	store := classification.NewStore()
	store.Put(schema.FactClassification{
		FactID:             factID,
		InvestigationID:    "inv-1",
		DubiousFlags:       []schema.DubiousFlag{schema.FlagPhantom},
		OriginDubiousFlags: []schema.DubiousFlag{schema.FlagPhantom},
		ImpactTier:         schema.ImpactCritical,
		CredibilityScore:   0.5,
		PriorityScore:      0.6,
		VerificationStatus: schema.VerificationPending,
	})
	return store
}

// stubSearch returns a fixed set of hits regardless of query, for tests
// that only care about aggregation/reclassification behavior.
type stubSearch struct {
	hits []SearchHit
	err  error
}

func (s stubSearch) Search(ctx context.Context, query string) ([]SearchHit, error) {
	return s.hits, s.err
}

func phantomFact() schema.ExtractedFact {
	return schema.ExtractedFact{
		FactID: "fact-1",
		Claim:  schema.Claim{Text: "Government deploys additional troops to the border region"},
		Entities: []schema.Entity{
			{ID: "E1", Text: "Ministry of Defense", Type: schema.EntityOrganization},
		},
	}
}

func TestGenerateQueriesDispatchesBySpecies(t *testing.T) {
	f := phantomFact()

	phantom := GenerateQueries(f, []schema.DubiousFlag{schema.FlagPhantom})
	assert.Len(t, phantom, 3)
	for _, q := range phantom {
		assert.Equal(t, schema.FlagPhantom, q.Flag)
	}

	fog := GenerateQueries(f, []schema.DubiousFlag{schema.FlagFog})
	assert.NotEmpty(t, fog)
	for _, q := range fog {
		assert.Equal(t, schema.FlagFog, q.Flag)
	}

	anomaly := GenerateQueries(f, []schema.DubiousFlag{schema.FlagAnomaly})
	assert.Len(t, anomaly, 3, "anomaly bundle issues all three dimensions together")

	assert.Nil(t, GenerateQueries(f, []schema.DubiousFlag{schema.FlagNoise}))
	assert.Nil(t, GenerateQueries(f, nil))
}

func TestFogQueriesDetectVagueQuantity(t *testing.T) {
	f := phantomFact()
	f.Claim.Text = "Dozens of soldiers were redeployed recently"
	qs := fogQueries(f)
	require.Len(t, qs, 2)
	assert.Equal(t, "specific_version", qs[0].Phase)
	assert.Equal(t, "wire_fallback", qs[1].Phase)
}

func TestFogQueriesSkipSpecificVersionWhenClaimIsPrecise(t *testing.T) {
	f := phantomFact()
	f.Claim.Text = "47 soldiers were redeployed on March 3"
	qs := fogQueries(f)
	require.Len(t, qs, 1)
	assert.Equal(t, "wire_fallback", qs[0].Phase)
}

func TestExecutorDedupsAcrossQueriesAndScores(t *testing.T) {
	api := stubSearch{hits: []SearchHit{
		{URL: "https://reuters.com/a", Domain: "reuters.com", Snippet: "troops border deploy"},
		{URL: "https://reuters.com/a", Domain: "reuters.com", Snippet: "troops border deploy"}, // duplicate
	}}
	exec := NewExecutor(api)
	evidence, err := exec.Run(context.Background(), []Query{{Text: "troops border"}, {Text: "troops deploy"}})
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "wire", evidence[0].SourceType)
	assert.Greater(t, evidence[0].Authority, 0.0)
}

func TestExecutorNoopSearchReturnsEmptyWithoutError(t *testing.T) {
	exec := NewExecutor(nil)
	evidence, err := exec.Run(context.Background(), []Query{{Text: "anything"}})
	require.NoError(t, err)
	assert.Empty(t, evidence)
}

func TestAggregateConfirmsOnSingleHighAuthoritySource(t *testing.T) {
	evidence := []schema.Evidence{
		{Domain: "defense.gov", SourceType: "official", Authority: 0.9, Relevance: 0.9, Snippet: "Ministry confirms troop deployment to border"},
	}
	agg := Aggregate("Government deploys additional troops to the border", evidence)
	assert.True(t, agg.Confirmed)
	assert.False(t, agg.Refuted)
	assert.InDelta(t, 0.25, agg.ConfidenceBoost, 1e-9)
}

func TestAggregateConfirmsOnTwoIndependentModerateSources(t *testing.T) {
	evidence := []schema.Evidence{
		{Domain: "reuters.com", SourceType: "wire", Authority: 0.75, Relevance: 0.8, Snippet: "troops sent to border region"},
		{Domain: "apnews.com", SourceType: "wire", Authority: 0.72, Relevance: 0.8, Snippet: "soldiers deployed near border"},
	}
	agg := Aggregate("troops deployed to border", evidence)
	assert.True(t, agg.Confirmed)
}

func TestAggregateDoesNotConfirmOnTwoDependentSources(t *testing.T) {
	evidence := []schema.Evidence{
		{Domain: "news.example.com", SourceType: "news", Authority: 0.75, Relevance: 0.8, Snippet: "troops sent to border"},
		{Domain: "blog.news.example.com", SourceType: "news", Authority: 0.75, Relevance: 0.8, Snippet: "troops sent to border"},
	}
	agg := Aggregate("troops sent to border", evidence)
	assert.False(t, agg.Confirmed, "same registrable domain is not independent corroboration")
}

func TestAggregateRefutesOnHighAuthorityDisagreement(t *testing.T) {
	evidence := []schema.Evidence{
		{Domain: "defense.gov", SourceType: "official", Authority: 0.9, Relevance: 0.9, Snippet: "Ministry denies any troop deployment occurred"},
	}
	agg := Aggregate("Government deploys additional troops to the border", evidence)
	assert.True(t, agg.Refuted)
	assert.False(t, agg.Confirmed)
}

func TestAggregateIgnoresLowRelevanceEvidence(t *testing.T) {
	evidence := []schema.Evidence{
		{Domain: "defense.gov", SourceType: "official", Authority: 0.95, Relevance: 0.2, Snippet: "unrelated ministry budget announcement"},
	}
	agg := Aggregate("troops deployed to border", evidence)
	assert.False(t, agg.Confirmed)
	assert.False(t, agg.Refuted)
}

func TestAggregateConfidenceBoostCappedAtOne(t *testing.T) {
	evidence := []schema.Evidence{
		{Domain: "reuters.com", SourceType: "wire", Authority: 0.9, Relevance: 0.9, Snippet: "troops deployed to border"},
		{Domain: "apnews.com", SourceType: "wire", Authority: 0.9, Relevance: 0.9, Snippet: "troops deployed to border"},
		{Domain: "afp.com", SourceType: "wire", Authority: 0.9, Relevance: 0.9, Snippet: "troops deployed to border"},
		{Domain: "defense.gov", SourceType: "official", Authority: 0.9, Relevance: 0.9, Snippet: "troops deployed to border"},
	}
	agg := Aggregate("troops deployed to border", evidence)
	assert.LessOrEqual(t, agg.ConfidenceBoost, 1.0)
}

// TestAttemptPhantomConfirmedScenario exercises spec scenario 3: a PHANTOM
// fact (hop_count=3, no primary source) resolved by a single .gov press
// release hit at high relevance/authority -> CONFIRMED, origin flags
// preserved, active flags cleared.
func TestAttemptPhantomConfirmedScenario(t *testing.T) {
	fact := phantomFact()
	current := schema.FactClassification{
		FactID:             fact.FactID,
		InvestigationID:    "inv-1",
		DubiousFlags:       []schema.DubiousFlag{schema.FlagPhantom},
		OriginDubiousFlags: []schema.DubiousFlag{schema.FlagPhantom},
		CredibilityScore:   0.5,
		ImpactTier:         schema.ImpactCritical,
		VerificationStatus: schema.VerificationPending,
	}

	exec := NewExecutor(stubSearch{hits: []SearchHit{
		{URL: "https://defense.gov/press/1", Domain: "defense.gov", Snippet: "Ministry of Defense confirms additional troop deployment to the border region"},
	}})

	outcome := Attempt(context.Background(), fact, current, exec, AttemptContext{
		EntitySig: "senior_official",
		EventSig:  "diplomatic",
	})

	assert.Equal(t, schema.VerificationConfirmed, outcome.Classification.VerificationStatus)
	assert.Equal(t, []schema.DubiousFlag{schema.FlagPhantom}, outcome.Classification.OriginDubiousFlags)
	assert.Empty(t, outcome.Classification.DubiousFlags)
	assert.InDelta(t, 0.25, outcome.Result.ConfidenceBoost, 1e-9)
	assert.True(t, outcome.Result.RequiresHumanReview, "critical tier terminal state always requires human review")
}

// TestAttemptExhaustsAtThreeAttempts exercises the max-3-attempts
// invariant: a fact that never finds confirming or refuting evidence must
// reach UNVERIFIABLE rather than loop indefinitely.
func TestAttemptExhaustsAtThreeAttempts(t *testing.T) {
	fact := phantomFact()
	current := schema.FactClassification{
		FactID:             fact.FactID,
		DubiousFlags:       []schema.DubiousFlag{schema.FlagFog},
		OriginDubiousFlags: []schema.DubiousFlag{schema.FlagFog},
		VerificationStatus: schema.VerificationPending,
	}
	exec := NewExecutor(NoopSearch{})

	for attempt := 0; attempt < maxQueryAttempts-1; attempt++ {
		outcome := Attempt(context.Background(), fact, current, exec, AttemptContext{AttemptsSoFar: attempt})
		assert.Equal(t, schema.VerificationInProgress, outcome.Classification.VerificationStatus)
		current = outcome.Classification
	}

	final := Attempt(context.Background(), fact, current, exec, AttemptContext{AttemptsSoFar: maxQueryAttempts - 1})
	assert.Equal(t, schema.VerificationUnverifiable, final.Classification.VerificationStatus)
}

// TestResolveAnomalyTemporalSupersedesLoser exercises spec scenario 4: two
// facts reporting different troop counts at different months resolve as a
// temporal contradiction, so the loser is SUPERSEDED, not REFUTED.
func TestResolveAnomalyTemporalSupersedesLoser(t *testing.T) {
	winner := schema.FactClassification{FactID: "fact-march", DubiousFlags: []schema.DubiousFlag{schema.FlagAnomaly}}
	loser := schema.FactClassification{FactID: "fact-january", DubiousFlags: []schema.DubiousFlag{schema.FlagAnomaly}}

	w, l := ResolveAnomaly(winner, loser, schema.ContradictionTemporal)
	assert.Equal(t, schema.VerificationConfirmed, w.VerificationStatus)
	assert.Equal(t, schema.VerificationSuperseded, l.VerificationStatus)
	assert.Empty(t, l.DubiousFlags)
	assert.Equal(t, []schema.DubiousFlag{schema.FlagAnomaly}, l.OriginDubiousFlags)
}

func TestResolveAnomalyNonTemporalRefutesLoser(t *testing.T) {
	winner := schema.FactClassification{FactID: "fact-a"}
	loser := schema.FactClassification{FactID: "fact-b"}

	w, l := ResolveAnomaly(winner, loser, schema.ContradictionNumeric)
	assert.Equal(t, schema.VerificationConfirmed, w.VerificationStatus)
	assert.Equal(t, schema.VerificationRefuted, l.VerificationStatus)
}

// fakeFactSource adapts a plain map to FactSource for the batch processor
// test.
type fakeFactSource map[string]schema.ExtractedFact

func (f fakeFactSource) Get(factID string) (schema.ExtractedFact, bool) {
	fact, ok := f[factID]
	return fact, ok
}

func TestBatchProcessorDrainsPriorityQueue(t *testing.T) {
	fact := phantomFact()
	store := newClassificationStoreWithOnePhantomFact(fact.FactID)
	facts := fakeFactSource{fact.FactID: fact}

	exec := NewExecutor(stubSearch{hits: []SearchHit{
		{URL: "https://defense.gov/press/2", Domain: "defense.gov", Snippet: "Ministry of Defense confirms additional troop deployment to the border region"},
	}})

	proc := NewBatchProcessor(facts, store, exec, nil, nil)
	summary := proc.Run(context.Background(), "inv-1")

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Confirmed)

	updated, ok := store.Get(fact.FactID)
	require.True(t, ok)
	assert.Equal(t, schema.VerificationConfirmed, updated.VerificationStatus)
}

func TestPrimarySpeciesPrefersFogOverPhantom(t *testing.T) {
	c := schema.FactClassification{DubiousFlags: []schema.DubiousFlag{schema.FlagPhantom, schema.FlagFog}}
	assert.Equal(t, schema.FlagFog, PrimarySpecies(c))
}

func TestPrimarySpeciesNoiseOnlyReturnsEmpty(t *testing.T) {
	c := schema.FactClassification{DubiousFlags: []schema.DubiousFlag{schema.FlagNoise}}
	assert.Equal(t, schema.DubiousFlag(""), PrimarySpecies(c))
}
