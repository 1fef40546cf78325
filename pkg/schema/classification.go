package schema

import "time"

// CredibilityBreakdown decomposes the §4.9 credibility formula so callers
// can audit how a score was reached.
type CredibilityBreakdown struct {
	SourceCred   float64            `json:"source_cred"`
	Proximity    float64            `json:"proximity"`
	Precision    float64            `json:"precision"`
	PerSource    float64            `json:"per_source"`
	EchoBoost    float64            `json:"echo_boost"`
	UniqueRoots  int                `json:"unique_roots"`
	CircularWarn bool               `json:"circular_warning"`
	Components   map[string]float64 `json:"components,omitempty"`
}

// FlagReasoning explains why one dubious flag fired.
type FlagReasoning struct {
	TriggerValues map[string]float64 `json:"trigger_values,omitempty"`
	Explanation   string             `json:"explanation"`
}

// HistoryEntry is an append-only audit record of a classification mutation.
type HistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	PreviousState   string    `json:"previous_state"`
	Trigger         string    `json:"trigger"`
}

// FactClassification is the mutable record produced by the classifier and
// mutated by the verifier (spec §3.3). 1:1 with a fact within an
// investigation.
type FactClassification struct {
	FactID              string                   `json:"fact_id"`
	InvestigationID     string                   `json:"investigation_id"`
	ImpactTier          ImpactTier               `json:"impact_tier"`
	DubiousFlags        []DubiousFlag            `json:"dubious_flags,omitempty"`
	OriginDubiousFlags  []DubiousFlag            `json:"origin_dubious_flags,omitempty"`
	PriorityScore       float64                  `json:"priority_score"`
	CredibilityScore    float64                  `json:"credibility_score"`
	CredibilityBreakdown CredibilityBreakdown    `json:"credibility_breakdown"`
	ClassificationReasoning map[DubiousFlag]FlagReasoning `json:"classification_reasoning,omitempty"`
	History             []HistoryEntry           `json:"history,omitempty"`
	VerificationStatus  VerificationStatus       `json:"verification_status"`
}

// HasFlag reports whether a classification carries the given flag.
func (c *FactClassification) HasFlag(f DubiousFlag) bool {
	for _, existing := range c.DubiousFlags {
		if existing == f {
			return true
		}
	}
	return false
}

// NoiseOnly reports whether NOISE is the sole dubious flag (excluded from
// the priority queue per spec §4.10).
func (c *FactClassification) NoiseOnly() bool {
	return len(c.DubiousFlags) == 1 && c.DubiousFlags[0] == FlagNoise
}

// Evidence is one piece of supporting/refuting material gathered by the
// verification engine's search executor.
type Evidence struct {
	SourceURL  string    `json:"source_url"`
	Domain     string    `json:"domain"`
	SourceType string    `json:"source_type"`
	Authority  float64   `json:"authority"`
	Snippet    string    `json:"snippet"`
	Supports   bool      `json:"supports"`
	Relevance  float64   `json:"relevance"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// VerificationResult is recorded per terminal classification change
// (spec §3.4), retained indefinitely for audit.
type VerificationResult struct {
	FactID              string              `json:"fact_id"`
	Status              VerificationStatus  `json:"status"`
	OriginalConfidence  float64             `json:"original_confidence"`
	ConfidenceBoost     float64             `json:"confidence_boost"`
	FinalConfidence     float64             `json:"final_confidence"`
	SupportingEvidence  []Evidence          `json:"supporting_evidence,omitempty"`
	RefutingEvidence    []Evidence          `json:"refuting_evidence,omitempty"`
	QueryAttempts       int                 `json:"query_attempts"`
	QueriesUsed         []string            `json:"queries_used,omitempty"`
	RelatedFactID       string              `json:"related_fact_id,omitempty"`
	ContradictionType   ContradictionType   `json:"contradiction_type,omitempty"`
	RequiresHumanReview bool                `json:"requires_human_review"`
	HumanReviewCompleted bool               `json:"human_review_completed"`
	CreatedAt           time.Time           `json:"created_at"`
}

// CapConfidence clamps a computed confidence at 1.0 (spec §8 invariant).
func CapConfidence(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}
