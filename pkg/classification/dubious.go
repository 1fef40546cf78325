package classification

import "github.com/watchtower-oss/watchtower/pkg/schema"

// DubiousInput bundles the signals the four Boolean gates test (spec §4.9).
// These are gates, not weights: each either fires or doesn't.
type DubiousInput struct {
	HopCount           int
	HasPrimarySource   bool
	ClaimClarity       float64
	AttributionText    string
	ContradictionCount int
	SourceCredibility  float64
}

// DetectDubiousFlags evaluates the four gates and returns every flag that
// fires (spec §4.9 table). Order is deterministic: PHANTOM, FOG, ANOMALY,
// NOISE.
func DetectDubiousFlags(in DubiousInput) ([]schema.DubiousFlag, map[schema.DubiousFlag]schema.FlagReasoning) {
	var flags []schema.DubiousFlag
	reasoning := make(map[schema.DubiousFlag]schema.FlagReasoning)

	if in.HopCount > 2 && !in.HasPrimarySource {
		flags = append(flags, schema.FlagPhantom)
		reasoning[schema.FlagPhantom] = schema.FlagReasoning{
			TriggerValues: map[string]float64{"hop_count": float64(in.HopCount)},
			Explanation:   "echo without a traceable primary source",
		}
	}

	if in.ClaimClarity < 0.5 || IsVagueAttribution(in.AttributionText) {
		flags = append(flags, schema.FlagFog)
		reasoning[schema.FlagFog] = schema.FlagReasoning{
			TriggerValues: map[string]float64{"claim_clarity": in.ClaimClarity},
			Explanation:   "low clarity or vague attribution",
		}
	}

	if in.ContradictionCount > 0 {
		flags = append(flags, schema.FlagAnomaly)
		reasoning[schema.FlagAnomaly] = schema.FlagReasoning{
			TriggerValues: map[string]float64{"contradiction_count": float64(in.ContradictionCount)},
			Explanation:   "trusted systems disagree",
		}
	}

	if in.SourceCredibility < 0.3 {
		flags = append(flags, schema.FlagNoise)
		reasoning[schema.FlagNoise] = schema.FlagReasoning{
			TriggerValues: map[string]float64{"source_credibility": in.SourceCredibility},
			Explanation:   "known-unreliable source",
		}
	}

	return flags, reasoning
}

// fixability implements spec §4.9's table, returning 0 when no dubious flag
// fired or when NOISE is the only one.
func fixability(flags []schema.DubiousFlag) float64 {
	has := func(f schema.DubiousFlag) bool {
		for _, existing := range flags {
			if existing == f {
				return true
			}
		}
		return false
	}
	switch {
	case len(flags) == 0:
		return 0.0
	case has(schema.FlagFog):
		return 0.9
	case has(schema.FlagAnomaly):
		return 0.8
	case has(schema.FlagPhantom):
		return 0.6
	default:
		// NOISE-only: excluded from the priority queue entirely (spec
		// §4.9/§4.10), so its fixability is 0 rather than the table's
		// other stray 0.1 figure — see DESIGN.md open-question decision.
		return 0.0
	}
}

// PriorityScore implements spec §4.9: impact_factor x fixability.
func PriorityScore(tier schema.ImpactTier, flags []schema.DubiousFlag) float64 {
	impactFactor := 0.5
	if tier == schema.ImpactCritical {
		impactFactor = 1.0
	}
	return impactFactor * fixability(flags)
}
