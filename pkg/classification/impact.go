package classification

import "github.com/watchtower-oss/watchtower/pkg/schema"

// EntitySignificance is the lookup table named in spec §4.9.
type EntitySignificance string

const (
	EntityWorldLeader    EntitySignificance = "world_leader"
	EntitySeniorOfficial EntitySignificance = "senior_official"
	EntityMajorOrg       EntitySignificance = "major_org"
	EntityGeneric        EntitySignificance = "generic"
)

func entitySignificanceScore(e EntitySignificance) float64 {
	switch e {
	case EntityWorldLeader:
		return 1.0
	case EntitySeniorOfficial:
		return 0.8
	case EntityMajorOrg:
		return 0.6
	default:
		return 0.3
	}
}

// EventSignificance is the lookup table named in spec §4.9.
type EventSignificance string

const (
	EventMilitaryNuclear   EventSignificance = "military_nuclear"
	EventTreatySanctions   EventSignificance = "treaty_sanctions"
	EventElectionCoup      EventSignificance = "election_coup"
	EventDiplomatic        EventSignificance = "diplomatic"
	EventRoutine           EventSignificance = "routine"
)

func eventSignificanceScore(e EventSignificance) float64 {
	switch e {
	case EventMilitaryNuclear:
		return 1.0
	case EventTreatySanctions:
		return 0.9
	case EventElectionCoup:
		return 0.8
	case EventDiplomatic:
		return 0.7
	default:
		return 0.2
	}
}

// ImpactTier computes spec §4.9's impact_score and buckets it:
//
//	impact_score = 0.5*entity_significance + 0.5*event_significance + context_boost
//
// contextBoost must already be clamped to [0, 0.2] by the caller (it
// rewards alignment with the investigation objective, a judgment the
// orchestrator/classifier caller supplies).
func ImpactTier(entitySig EntitySignificance, eventSig EventSignificance, contextBoost float64) (schema.ImpactTier, float64) {
	if contextBoost > 0.2 {
		contextBoost = 0.2
	}
	if contextBoost < 0 {
		contextBoost = 0
	}
	score := 0.5*entitySignificanceScore(entitySig) + 0.5*eventSignificanceScore(eventSig) + contextBoost
	if score >= 0.6 {
		return schema.ImpactCritical, score
	}
	return schema.ImpactLessCritical, score
}
