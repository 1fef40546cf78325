package verification

import (
	"context"
	"time"

	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// AttemptContext bundles per-attempt inputs that don't belong on the fact
// or classification themselves: how many attempts this fact has already
// used, and the impact-tier inputs needed to re-score after new evidence.
type AttemptContext struct {
	EntitySig     classification.EntitySignificance
	EventSig      classification.EventSignificance
	ContextBoost  float64
	AttemptsSoFar int
}

// Outcome is the result of one verification attempt on one fact.
type Outcome struct {
	Classification schema.FactClassification
	Result         schema.VerificationResult
}

// Attempt runs one query-attempt cycle: generate queries for the fact's
// current flags, execute them, aggregate evidence, and transition state
// accordingly (spec §4.11).
func Attempt(ctx context.Context, fact schema.ExtractedFact, current schema.FactClassification, executor *Executor, attemptCtx AttemptContext) Outcome {
	result := schema.VerificationResult{
		FactID:             fact.FactID,
		Status:             schema.VerificationInProgress,
		OriginalConfidence: current.CredibilityScore,
		CreatedAt:          time.Now().UTC(),
	}

	queries := GenerateQueries(fact, current.DubiousFlags)
	evidence, _ := executor.Run(ctx, queries)
	agg := Aggregate(fact.Claim.Text, evidence)

	for _, q := range queries {
		result.QueriesUsed = append(result.QueriesUsed, q.Text)
	}
	result.QueryAttempts = len(queries)
	result.SupportingEvidence = agg.Supporting
	result.RefutingEvidence = agg.Refuting
	result.ConfidenceBoost = agg.ConfidenceBoost
	result.FinalConfidence = schema.CapConfidence(current.CredibilityScore + agg.ConfidenceBoost)

	next := current
	entry := schema.HistoryEntry{
		Timestamp:     time.Now().UTC(),
		PreviousState: string(current.VerificationStatus),
	}

	switch {
	case agg.Confirmed:
		next.OriginDubiousFlags = append([]schema.DubiousFlag(nil), current.DubiousFlags...)
		next.DubiousFlags = nil
		next.CredibilityScore = result.FinalConfidence
		tier, _ := classification.ImpactTier(attemptCtx.EntitySig, attemptCtx.EventSig, attemptCtx.ContextBoost)
		next.ImpactTier = tier
		next.VerificationStatus = schema.VerificationConfirmed
		result.Status = schema.VerificationConfirmed
		entry.Trigger = "confirmed"

	case agg.Refuted:
		next.OriginDubiousFlags = append([]schema.DubiousFlag(nil), current.DubiousFlags...)
		next.DubiousFlags = nil
		next.VerificationStatus = schema.VerificationRefuted
		result.Status = schema.VerificationRefuted
		entry.Trigger = "refuted"

	case attemptCtx.AttemptsSoFar+1 >= maxQueryAttempts:
		next.VerificationStatus = schema.VerificationUnverifiable
		result.Status = schema.VerificationUnverifiable
		entry.Trigger = "exhausted"

	default:
		next.VerificationStatus = schema.VerificationInProgress
		result.Status = schema.VerificationInProgress
		entry.Trigger = "attempt"
	}

	next.History = append(next.History, entry)

	if next.ImpactTier == schema.ImpactCritical && next.VerificationStatus.IsTerminal() {
		result.RequiresHumanReview = true
	}

	return Outcome{Classification: next, Result: result}
}

// ResolveAnomaly decides the contradiction loser's terminal state per spec
// §4.11: temporal contradiction -> SUPERSEDED (the claim was true, no longer
// current), everything else -> REFUTED. The winner confirms outright. The
// caller is responsible for setting each side's VerificationResult.RelatedFactID
// to the other's fact_id — an ID-pair link, never an in-memory back-pointer
// (spec §9) — so the pair survives snapshot/load.
func ResolveAnomaly(winner, loser schema.FactClassification, contradictionType schema.ContradictionType) (schema.FactClassification, schema.FactClassification) {
	winner.VerificationStatus = schema.VerificationConfirmed

	loser.OriginDubiousFlags = append([]schema.DubiousFlag(nil), loser.DubiousFlags...)
	loser.DubiousFlags = nil
	if contradictionType == schema.ContradictionTemporal {
		loser.VerificationStatus = schema.VerificationSuperseded
	} else {
		loser.VerificationStatus = schema.VerificationRefuted
	}
	return winner, loser
}
