// Package schema defines the investigation-scoped data model shared by every
// pipeline: articles, extracted facts, their classifications, and
// verification results.
package schema

// SourceType identifies the kind of crawler that produced an Article.
type SourceType string

const (
	SourceTypeRSS      SourceType = "rss"
	SourceTypeAPI      SourceType = "api"
	SourceTypeReddit   SourceType = "reddit"
	SourceTypeDocument SourceType = "document"
	SourceTypeWeb      SourceType = "web"
)

func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeRSS, SourceTypeAPI, SourceTypeReddit, SourceTypeDocument, SourceTypeWeb:
		return true
	default:
		return false
	}
}

// AssertionType classifies how a claim is being put forward.
type AssertionType string

const (
	AssertionStatement AssertionType = "statement"
	AssertionDenial    AssertionType = "denial"
	AssertionPrediction AssertionType = "prediction"
	AssertionPlanned   AssertionType = "planned"
)

func (a AssertionType) IsValid() bool {
	switch a {
	case AssertionStatement, AssertionDenial, AssertionPrediction, AssertionPlanned:
		return true
	default:
		return false
	}
}

// ClaimType is the semantic category of a claim.
type ClaimType string

const (
	ClaimTypeEvent      ClaimType = "event"
	ClaimTypeState      ClaimType = "state"
	ClaimTypePrediction ClaimType = "prediction"
	ClaimTypeOther      ClaimType = "other"
)

func (c ClaimType) IsValid() bool {
	switch c {
	case ClaimTypeEvent, ClaimTypeState, ClaimTypePrediction, ClaimTypeOther:
		return true
	default:
		return false
	}
}

// EntityType is the normalized entity category. Synonyms (ORG, LOC, GPE,
// PER) are folded into these four by NormalizeEntityType.
type EntityType string

const (
	EntityPerson          EntityType = "PERSON"
	EntityOrganization    EntityType = "ORGANIZATION"
	EntityLocation        EntityType = "LOCATION"
	EntityAnonymousSource EntityType = "ANONYMOUS_SOURCE"
)

func (e EntityType) IsValid() bool {
	switch e {
	case EntityPerson, EntityOrganization, EntityLocation, EntityAnonymousSource:
		return true
	default:
		return false
	}
}

// NormalizeEntityType folds known synonyms onto the canonical four types.
// Unrecognized input is returned unchanged so callers can flag it invalid.
func NormalizeEntityType(raw string) EntityType {
	switch raw {
	case "ORG":
		return EntityOrganization
	case "LOC", "GPE":
		return EntityLocation
	case "PER":
		return EntityPerson
	default:
		return EntityType(raw)
	}
}

// TemporalPrecision says how confidently a date/time was derived.
type TemporalPrecision string

const (
	TemporalExplicit TemporalPrecision = "explicit"
	TemporalInferred TemporalPrecision = "inferred"
	TemporalUnknown  TemporalPrecision = "unknown"
)

// DatePrecision is the granularity of a temporal value.
type DatePrecision string

const (
	DatePrecisionDay   DatePrecision = "day"
	DatePrecisionMonth DatePrecision = "month"
	DatePrecisionYear  DatePrecision = "year"
)

// SourceClassification is the provenance tier of a fact's origin.
type SourceClassification string

const (
	SourcePrimary   SourceClassification = "primary"
	SourceSecondary SourceClassification = "secondary"
	SourceTertiary  SourceClassification = "tertiary"
)

// ExtractionType says whether a fact was stated or inferred by the extractor.
type ExtractionType string

const (
	ExtractionExplicit ExtractionType = "explicit"
	ExtractionInferred ExtractionType = "inferred"
)

// RelationshipType links one fact to another.
type RelationshipType string

const (
	RelationshipSupports        RelationshipType = "supports"
	RelationshipContradicts     RelationshipType = "contradicts"
	RelationshipTemporalSequence RelationshipType = "temporal_sequence"
)

// ImpactTier is the classifier's coarse impact bucket.
type ImpactTier string

const (
	ImpactCritical      ImpactTier = "critical"
	ImpactLessCritical  ImpactTier = "less_critical"
)

// DubiousFlag is one of the four Boolean taxonomy gates (spec §4.9). A fact
// may carry any subset, including none.
type DubiousFlag string

const (
	FlagPhantom DubiousFlag = "phantom"
	FlagFog     DubiousFlag = "fog"
	FlagAnomaly DubiousFlag = "anomaly"
	FlagNoise   DubiousFlag = "noise"
)

func (f DubiousFlag) IsValid() bool {
	switch f {
	case FlagPhantom, FlagFog, FlagAnomaly, FlagNoise:
		return true
	default:
		return false
	}
}

// VerificationStatus is the reclassifier's state machine (spec §4.11).
type VerificationStatus string

const (
	VerificationPending     VerificationStatus = "pending"
	VerificationInProgress  VerificationStatus = "in_progress"
	VerificationConfirmed   VerificationStatus = "confirmed"
	VerificationRefuted     VerificationStatus = "refuted"
	VerificationUnverifiable VerificationStatus = "unverifiable"
	VerificationSuperseded  VerificationStatus = "superseded"
)

func (s VerificationStatus) IsTerminal() bool {
	switch s {
	case VerificationConfirmed, VerificationRefuted, VerificationUnverifiable, VerificationSuperseded:
		return true
	default:
		return false
	}
}

// ContradictionType records which §4.9 detector fired for an ANOMALY pair.
type ContradictionType string

const (
	ContradictionNegation    ContradictionType = "negation"
	ContradictionAttribution ContradictionType = "attribution"
	ContradictionNumeric     ContradictionType = "numeric"
	ContradictionTemporal    ContradictionType = "temporal"
)
