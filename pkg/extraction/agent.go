// Package extraction implements the extraction pipeline and fact extraction
// agent (spec §4.7): LLM-driven extraction into the schema.ExtractedFact
// shape, chunking long documents, and output validation/normalization.
package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/watchtower-oss/watchtower/pkg/llm"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// chunkSizeChars is the token-budget proxy described in spec §4.7
// ("~12 000 characters").
const chunkSizeChars = 12000

// minInputLength below which extraction returns [] rather than calling the
// LLM at all (spec §8 boundary behavior).
const minInputLength = 50

// hedgePattern reduces claim_clarity (not extraction_confidence) per
// spec §4.7.
var hedgePattern = regexp.MustCompile(`(?i)\b(allegedly|reportedly|sources say|officials familiar with|sources close to|may|might|appears to|is said to)\b`)

// Agent calls the LLM with a schema-enforcing system prompt and parses its
// structured output into ExtractedFacts.
type Agent struct {
	client       llm.Client
	modelVersion string
}

// NewAgent builds an extraction Agent over client.
func NewAgent(client llm.Client, modelVersion string) *Agent {
	return &Agent{client: client, modelVersion: modelVersion}
}

// rawFact is the wire shape the LLM is asked to emit; Extract normalizes it
// into schema.ExtractedFact.
type rawFact struct {
	Text          string          `json:"text"`
	AssertionType string          `json:"assertion_type"`
	ClaimType     string          `json:"claim_type"`
	Entities      []rawEntity     `json:"entities"`
	Temporal      *rawTemporal    `json:"temporal,omitempty"`
	ExtractionType string         `json:"extraction_type"`
	Confidence    float64         `json:"extraction_confidence"`
}

type rawEntity struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type rawTemporal struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Precision string `json:"precision"`
}

type extractionOutput struct {
	Facts []rawFact `json:"facts"`
}

// ExtractInput is one unit of work for the agent: an article's title+content
// plus the provenance fields the pipeline attaches (spec §4.7).
type ExtractInput struct {
	Text       string
	SourceID   string
	SourceType schema.SourceType
	HopCount   int
}

// Extract runs the extraction agent over input, returning normalized facts.
// Text shorter than minInputLength returns ([], nil) rather than an error
// (spec §8 boundary behavior).
func (a *Agent) Extract(ctx context.Context, input ExtractInput) ([]schema.ExtractedFact, error) {
	if len(strings.TrimSpace(input.Text)) < minInputLength {
		return nil, nil
	}

	chunks := chunk(input.Text, chunkSizeChars)
	var facts []schema.ExtractedFact
	entityOffset := 0

	for _, chunkText := range chunks {
		resp, err := a.client.Complete(ctx, llm.Request{
			SystemPrompt:    systemPrompt,
			UserPrompt:      fmt.Sprintf("Entity IDs must continue from E%d.\n\n%s", entityOffset, chunkText),
			EstimatedTokens: len(chunkText) / 4,
			Timeout:         60 * time.Second,
		})
		if err != nil {
			return facts, err
		}

		var out extractionOutput
		if err := llm.ParseJSON(resp, &out); err != nil {
			continue // Validation-kind: this chunk's malformed output is discarded; it is neither logged nor reported to the caller
		}

		for _, rf := range out.Facts {
			f, ok := normalize(rf, input, a.modelVersion)
			if ok {
				facts = append(facts, f)
				entityOffset += len(rf.Entities)
			}
		}
	}
	return facts, nil
}

func normalize(rf rawFact, input ExtractInput, modelVersion string) (schema.ExtractedFact, bool) {
	assertionType := schema.AssertionType(rf.AssertionType)
	if !assertionType.IsValid() {
		return schema.ExtractedFact{}, false
	}
	claimType := schema.ClaimType(rf.ClaimType)
	if !claimType.IsValid() {
		claimType = schema.ClaimTypeOther
	}

	entities := make([]schema.Entity, 0, len(rf.Entities))
	for _, re := range rf.Entities {
		entityType := schema.NormalizeEntityType(re.Type)
		if !entityType.IsValid() {
			continue // invalid entity type: discarded without logging (spec §4.7)
		}
		entities = append(entities, schema.Entity{ID: re.ID, Text: re.Text, Type: entityType})
	}

	var temporal *schema.Temporal
	if rf.Temporal != nil {
		precision := schema.DatePrecision(rf.Temporal.Precision)
		temporal = &schema.Temporal{
			ID:                rf.Temporal.ID,
			Value:             rf.Temporal.Value,
			Precision:         precision,
			TemporalPrecision: schema.TemporalExplicit,
		}
	}

	clarity := 1.0
	if hedgePattern.MatchString(rf.Text) {
		clarity = 0.4
	}

	extractionType := schema.ExtractionExplicit
	if rf.ExtractionType == string(schema.ExtractionInferred) {
		extractionType = schema.ExtractionInferred
	}

	confidence := rf.Confidence
	if confidence <= 0 {
		confidence = 0.8
	}

	sourceClass := schema.SourceSecondary
	if input.HopCount == 0 {
		sourceClass = schema.SourcePrimary
	} else if input.HopCount > 2 {
		sourceClass = schema.SourceTertiary
	}

	fact := schema.ExtractedFact{
		FactID:        uuid.NewString(),
		ContentHash:   schema.ComputeContentHash(rf.Text),
		SchemaVersion: schema.CurrentSchemaVersion,
		Claim:         schema.Claim{Text: rf.Text, AssertionType: assertionType, ClaimType: claimType},
		Entities:      entities,
		Temporal:      temporal,
		Provenance: schema.Provenance{
			SourceID:             input.SourceID,
			HopCount:             input.HopCount,
			SourceType:           input.SourceType,
			SourceClassification: sourceClass,
		},
		Quality: schema.Quality{
			ExtractionConfidence: confidence,
			ClaimClarity:         clarity,
		},
		Extraction: schema.ExtractionMeta{
			ExtractedAt:    time.Now().UTC(),
			ModelVersion:   modelVersion,
			ExtractionType: extractionType,
		},
	}
	return fact, true
}

// chunk splits text on paragraph then sentence boundaries so that no chunk
// exceeds size characters, preserving entity-ID continuity requirements
// described in spec §4.7 (continuity is handled by the caller via
// entityOffset, not by this function).
func chunk(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len()+len(p) > size && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if len(p) > size {
			for _, sentence := range splitSentences(p) {
				if current.Len()+len(sentence) > size && current.Len() > 0 {
					chunks = append(chunks, current.String())
					current.Reset()
				}
				current.WriteString(sentence)
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

var sentenceBoundary = regexp.MustCompile(`(?m)([.!?])\s+`)

func splitSentences(p string) []string {
	parts := sentenceBoundary.Split(p, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			out = append(out, part+" ")
		}
	}
	return out
}

const systemPrompt = `You are a fact-extraction agent. Extract discrete factual claims from the
provided text as JSON: {"facts": [{"text", "assertion_type", "claim_type",
"entities": [{"id","text","type"}], "temporal": {"id","value","precision"},
"extraction_type", "extraction_confidence"}]}.

Rules:
- One fact per single assertion; do not atomize entity+predicate+object.
- Mark inline entity references in text with [E#:name] matching the entities array.
- Denials ("X denied Y") emit fact Y with assertion_type=denial and the denier as an entity — never a boolean negation flag.
- Quoted speech emits two linked facts: the statement-event and the underlying claim.
- Extract unambiguous implicit inferences, marked extraction_type=inferred.
- Always include temporal precision when a date is present.
- Normalize entity types to PERSON, ORGANIZATION, LOCATION, or ANONYMOUS_SOURCE.`
