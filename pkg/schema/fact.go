package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CurrentSchemaVersion is stamped on every fact this module produces.
// Readers must refuse unknown major versions (spec §9 schema evolution).
const CurrentSchemaVersion = "1.0"

// Claim is the textual assertion itself. Text carries inline entity/temporal
// markers ("[E1:Putin]", "[T1:2024-03-01]") that must resolve against
// Entities/Temporal.
type Claim struct {
	Text          string        `json:"text"`
	AssertionType AssertionType `json:"assertion_type"`
	ClaimType     ClaimType     `json:"claim_type"`
}

// Entity is one participant referenced by a claim's inline markers.
type Entity struct {
	ID        string     `json:"id"` // marker id, e.g. "E1"
	Text      string     `json:"text"`
	Type      EntityType `json:"type"`
	Canonical string     `json:"canonical,omitempty"`
	ClusterID string     `json:"cluster_id,omitempty"`
}

// Temporal is an optional date/time anchor for a claim.
type Temporal struct {
	ID                string            `json:"id"` // marker id, e.g. "T1"
	Value             string            `json:"value"`
	Precision         DatePrecision     `json:"precision"`
	TemporalPrecision TemporalPrecision `json:"temporal_precision"`
}

// Provenance records where a fact's claim came from and how far it has
// traveled from its origin.
type Provenance struct {
	SourceID              string               `json:"source_id"`
	Quote                 string               `json:"quote,omitempty"`
	Offsets               [2]int               `json:"offsets,omitempty"`
	AttributionChain       []string             `json:"attribution_chain,omitempty"`
	HopCount              int                  `json:"hop_count"`
	SourceType            SourceType           `json:"source_type"`
	SourceClassification  SourceClassification `json:"source_classification"`
	AdditionalSources     []string             `json:"additional_sources,omitempty"`
}

// Quality holds orthogonal extraction-quality signals. Spec §3.2: "These are
// orthogonal; never combined into a single score."
type Quality struct {
	ExtractionConfidence float64 `json:"extraction_confidence"` // [0,1]
	ClaimClarity         float64 `json:"claim_clarity"`         // [0,1]
	ExtractionTrace      string  `json:"extraction_trace,omitempty"`
}

// ExtractionMeta records how/when the fact was produced.
type ExtractionMeta struct {
	ExtractedAt    time.Time      `json:"extracted_at"`
	ModelVersion   string         `json:"model_version"`
	ExtractionType ExtractionType `json:"extraction_type"`
}

// Relationship links one fact to another.
type Relationship struct {
	Type         RelationshipType `json:"type"`
	TargetFactID string           `json:"target_fact_id"`
	Confidence   float64          `json:"confidence"`
}

// ExtractedFact is the canonical unit of information flowing through the
// consolidation/classification/verification pipelines (spec §3.2).
type ExtractedFact struct {
	FactID        string           `json:"fact_id"`
	ContentHash   string           `json:"content_hash"`
	SchemaVersion string           `json:"schema_version"`
	Claim         Claim            `json:"claim"`
	Entities      []Entity         `json:"entities,omitempty"`
	Temporal      *Temporal        `json:"temporal,omitempty"`
	Provenance    Provenance       `json:"provenance"`
	Quality       Quality          `json:"quality"`
	Extraction    ExtractionMeta   `json:"extraction"`
	Relationships []Relationship   `json:"relationships,omitempty"`
	Variants      []string         `json:"variants,omitempty"` // linked duplicate fact IDs: same ContentHash, or merged by the semantic layer
}

// ComputeContentHash returns SHA-256(claim text) hex-encoded, the
// reproducible identity spec §3.2/§8 requires.
func ComputeContentHash(claimText string) string {
	sum := sha256.Sum256([]byte(claimText))
	return hex.EncodeToString(sum[:])
}
