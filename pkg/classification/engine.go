package classification

import (
	"time"

	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
)

// Engine ties together credibility scoring, impact tiering, dubious
// detection, and priority scoring into one Classify call per fact (spec
// §4.9). Contradiction detection runs separately (DetectContradictions);
// Classify takes its result as ClassifyInput.ContradictionCount.
type Engine struct {
	echoConfig EchoConfig
}

// NewEngine builds an Engine with the given echo/proximity configuration.
func NewEngine(cfg EchoConfig) *Engine {
	if cfg.ProximityDecay <= 0 {
		cfg = DefaultEchoConfig()
	}
	return &Engine{echoConfig: cfg}
}

// ClassifyInput bundles one fact plus its variants (already linked by the
// consolidator) and any pre-detected contradictions that name it.
type ClassifyInput struct {
	InvestigationID     string
	Fact                schema.ExtractedFact
	Variants            []schema.ExtractedFact
	SourceHosts         map[string]string // source_id -> host, for authority lookup
	EntitySignificance  EntitySignificance
	EventSignificance   EventSignificance
	ContextBoost        float64
	ContradictionCount  int
	HasQuote            bool
	HasDocCitation      bool
}

// Classify computes a full FactClassification for one fact (spec §4.9).
func (e *Engine) Classify(in ClassifyInput) schema.FactClassification {
	host := in.SourceHosts[in.Fact.Provenance.SourceID]
	rootCred := SourceCredibility(host, urlman.SourceSignals{})

	hasExplicitTemporal := in.Fact.Temporal != nil && in.Fact.Temporal.TemporalPrecision == schema.TemporalExplicit
	precision := Precision(len(in.Fact.Entities), hasExplicitTemporal, in.HasQuote, in.HasDocCitation)
	proximity := Proximity(in.Fact.Provenance.HopCount, e.echoConfig.ProximityDecay)
	rootScore := PerSourceScore(rootCred, proximity, precision)

	sources := []EchoSource{{
		Score:           rootScore,
		AttributionRoot: attributionRoot(in.Fact),
		RootIsPrimary:   in.Fact.Provenance.SourceClassification == schema.SourcePrimary,
	}}
	for _, v := range in.Variants {
		vHost := in.SourceHosts[v.Provenance.SourceID]
		vCred := SourceCredibility(vHost, urlman.SourceSignals{})
		vPrecision := Precision(len(v.Entities), v.Temporal != nil, in.HasQuote, in.HasDocCitation)
		vProximity := Proximity(v.Provenance.HopCount, e.echoConfig.ProximityDecay)
		sources = append(sources, EchoSource{
			Score:           PerSourceScore(vCred, vProximity, vPrecision),
			AttributionRoot: attributionRoot(v),
			RootIsPrimary:   v.Provenance.SourceClassification == schema.SourcePrimary,
		})
	}

	breakdown := Credibility(sources, e.echoConfig)
	breakdown.SourceCred = rootCred
	breakdown.Proximity = proximity
	breakdown.Precision = precision
	credibilityScore := schema.CapConfidence(breakdown.PerSource + breakdown.EchoBoost)

	tier, _ := ImpactTier(in.EntitySignificance, in.EventSignificance, in.ContextBoost)

	flags, reasoning := DetectDubiousFlags(DubiousInput{
		HopCount:           in.Fact.Provenance.HopCount,
		HasPrimarySource:   in.Fact.Provenance.SourceClassification == schema.SourcePrimary,
		ClaimClarity:       in.Fact.Quality.ClaimClarity,
		AttributionText:    in.Fact.Claim.Text,
		ContradictionCount: in.ContradictionCount,
		SourceCredibility:  credibilityScore,
	})

	priority := PriorityScore(tier, flags)

	return schema.FactClassification{
		FactID:                  in.Fact.FactID,
		InvestigationID:         in.InvestigationID,
		ImpactTier:              tier,
		DubiousFlags:            flags,
		PriorityScore:           priority,
		CredibilityScore:        credibilityScore,
		CredibilityBreakdown:    breakdown,
		ClassificationReasoning: reasoning,
		VerificationStatus:      schema.VerificationPending,
		History: []schema.HistoryEntry{{
			Timestamp:     time.Now().UTC(),
			PreviousState: "",
			Trigger:       "initial_classification",
		}},
	}
}

func attributionRoot(f schema.ExtractedFact) string {
	if len(f.Provenance.AttributionChain) > 0 {
		return f.Provenance.AttributionChain[0]
	}
	return f.Provenance.SourceID
}
