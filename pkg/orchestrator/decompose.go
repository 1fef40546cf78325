package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/watchtower-oss/watchtower/pkg/llm"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// Subtask is one unit of crawl/extraction work the orchestrator assigns
// to a worker (spec §4.12).
type Subtask struct {
	ID               string
	Query            string
	SourceType       schema.SourceType
	KeywordRelevance float64
	Recency          float64
	RetryPenalty     float64
	DiversityBonus   float64
	RetryCount       int
	Priority         float64

	// Children holds the grouped sibling subtasks this node delegates to a
	// sub-orchestrator (spec §4.12 hierarchical delegation). Non-nil marks
	// this Subtask as a delegation node rather than directly runnable work.
	Children []Subtask
}

// ComputePriority implements spec §4.12's subtask priority formula:
//
//	keyword_relevance*0.4 + recency*0.2 + (1-retry_penalty)*0.2 + diversity_bonus*0.2
func (s *Subtask) ComputePriority() {
	s.Priority = s.KeywordRelevance*0.4 + s.Recency*0.2 + (1-s.RetryPenalty)*0.2 + s.DiversityBonus*0.2
}

type llmSubtask struct {
	Query      string `json:"query"`
	SourceType string `json:"source_type"`
	Relevance  float64 `json:"relevance"`
}

const decomposeSystemPrompt = `You are the decomposition stage of an OSINT investigation orchestrator. ` +
	`Given an investigation objective, emit a JSON array of subtasks, each with "query", ` +
	`"source_type" (one of "rss","reddit","document","web"), and "relevance" (0..1). ` +
	`Return JSON only, no prose.`

// Decompose produces subtasks for an objective. It tries client first
// (the primary path per spec §4.12); a nil client, a call error, or an
// unparseable response falls through to the deterministic keyword-based
// decomposition so the orchestrator functions without an LLM available.
func Decompose(ctx context.Context, objective string, client llm.Client) []Subtask {
	if client != nil {
		if subtasks, ok := decomposeWithLLM(ctx, objective, client); ok {
			return subtasks
		}
	}
	return decomposeByKeyword(objective)
}

func decomposeWithLLM(ctx context.Context, objective string, client llm.Client) ([]Subtask, bool) {
	resp, err := client.Complete(ctx, llm.Request{
		SystemPrompt:    decomposeSystemPrompt,
		UserPrompt:      objective,
		EstimatedTokens: 300,
	})
	if err != nil {
		return nil, false
	}
	var raw []llmSubtask
	if err := llm.ParseJSON(resp, &raw); err != nil || len(raw) == 0 {
		return nil, false
	}

	subtasks := make([]Subtask, 0, len(raw))
	for i, r := range raw {
		st := schema.SourceType(r.SourceType)
		if !st.IsValid() {
			st = schema.SourceTypeRSS
		}
		s := Subtask{
			ID:               fmt.Sprintf("subtask-%d", i+1),
			Query:            r.Query,
			SourceType:       st,
			KeywordRelevance: clamp01(r.Relevance),
			Recency:          1.0, // freshly generated, no retry history yet
			DiversityBonus:   diversityBonus(st, raw, i),
		}
		s.ComputePriority()
		subtasks = append(subtasks, s)
	}
	return subtasks, true
}

// keywordSources assigns the deterministic fallback's four canonical
// subtasks — one per source-type variant spec §4.5 names — so the
// orchestrator always has cross-source coverage to work with even without
// an LLM.
var keywordSources = []schema.SourceType{
	schema.SourceTypeRSS,
	schema.SourceTypeReddit,
	schema.SourceTypeDocument,
	schema.SourceTypeWeb,
}

// decomposeByKeyword is the mandatory deterministic fallback (spec §4.12):
// one subtask per source-type variant, each querying the objective's
// significant keywords directly, each with the same neutral keyword
// relevance (0.5) and a diversity bonus rising from 0 to 0.5 across
// keywordSources.
func decomposeByKeyword(objective string) []Subtask {
	keywords := significantKeywords(objective)
	query := strings.Join(keywords, " ")
	if query == "" {
		query = objective
	}

	subtasks := make([]Subtask, 0, len(keywordSources))
	for i, st := range keywordSources {
		s := Subtask{
			ID:               fmt.Sprintf("subtask-%d", i+1),
			Query:            query,
			SourceType:       st,
			KeywordRelevance: 0.5, // no LLM judgment available; neutral baseline
			Recency:          1.0,
			DiversityBonus:   float64(i) / float64(len(keywordSources)-1) * 0.5,
		}
		s.ComputePriority()
		subtasks = append(subtasks, s)
	}
	return subtasks
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "to": {}, "and": {},
	"is": {}, "are": {}, "for": {}, "about": {}, "investigate": {}, "regarding": {},
}

func significantKeywords(objective string) []string {
	var out []string
	for _, w := range strings.Fields(objective) {
		w = strings.ToLower(strings.Trim(w, `.,!?;:"'()`))
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// diversityBonus rewards a source type that's underrepresented among the
// sibling subtasks this decomposition produced, so the assignment stage
// naturally spreads across source types rather than clustering.
func diversityBonus(st schema.SourceType, all []llmSubtask, idx int) float64 {
	counts := make(map[string]int)
	for _, r := range all {
		counts[r.SourceType]++
	}
	n := counts[string(st)]
	if n <= 1 {
		return 0.5
	}
	return 1.0 / float64(n)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
