package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-oss/watchtower/pkg/article"
	"github.com/watchtower-oss/watchtower/pkg/fact"
	"github.com/watchtower-oss/watchtower/pkg/llm"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

func TestExtractShortInputReturnsEmptyNotError(t *testing.T) {
	mock := llm.NewMock()
	a := NewAgent(mock, "v1")
	facts, err := a.Extract(context.Background(), ExtractInput{Text: "too short"})
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestExtractDenialRoundTrip(t *testing.T) {
	// spec §8 scenario 1
	mock := llm.NewMock()
	mock.AddSequential(llm.ScriptEntry{Response: llm.Response{Text: `{"facts":[{"text":"Russian involvement in the Sarajevo incident","assertion_type":"denial","claim_type":"event","entities":[{"id":"E1","text":"Russia","type":"ORGANIZATION"}],"extraction_type":"explicit","extraction_confidence":0.9}]}`}})

	a := NewAgent(mock, "v1")
	facts, err := a.Extract(context.Background(), ExtractInput{
		Text:     "Russia denied involvement in the Sarajevo incident, a lengthy statement said. Officials reiterated the denial repeatedly over several days of press briefings.",
		SourceID: "tass-1",
	})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, schema.AssertionDenial, facts[0].Claim.AssertionType)
	require.Len(t, facts[0].Entities, 1)
	assert.Equal(t, "Russia", facts[0].Entities[0].Text)
}

func TestExtractHedgeReducesClarityNotConfidence(t *testing.T) {
	mock := llm.NewMock()
	mock.AddSequential(llm.ScriptEntry{Response: llm.Response{Text: `{"facts":[{"text":"Officials reportedly met in secret to discuss the matter at length","assertion_type":"statement","claim_type":"event","extraction_type":"explicit","extraction_confidence":0.85}]}`}})

	a := NewAgent(mock, "v1")
	facts, err := a.Extract(context.Background(), ExtractInput{Text: "A sufficiently long passage of source text about a secret meeting that officials reportedly attended.", SourceID: "s1"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Less(t, facts[0].Quality.ClaimClarity, 1.0)
	assert.InDelta(t, 0.85, facts[0].Quality.ExtractionConfidence, 1e-9)
}

func TestExtractDiscardsInvalidEntityType(t *testing.T) {
	mock := llm.NewMock()
	mock.AddSequential(llm.ScriptEntry{Response: llm.Response{Text: `{"facts":[{"text":"Valid claim text that is long enough to matter here","assertion_type":"statement","claim_type":"event","entities":[{"id":"E1","text":"bad","type":"NOT_A_TYPE"}],"extraction_type":"explicit","extraction_confidence":0.7}]}`}})

	a := NewAgent(mock, "v1")
	facts, err := a.Extract(context.Background(), ExtractInput{Text: "Sufficiently long input text to pass the minimum length boundary check here.", SourceID: "s1"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Empty(t, facts[0].Entities)
}

func TestExtractDiscardsInvalidAssertionType(t *testing.T) {
	mock := llm.NewMock()
	mock.AddSequential(llm.ScriptEntry{Response: llm.Response{Text: `{"facts":[{"text":"Some claim","assertion_type":"not_valid","claim_type":"event"}]}`}})

	a := NewAgent(mock, "v1")
	facts, err := a.Extract(context.Background(), ExtractInput{Text: "Sufficiently long input text to pass the minimum length boundary check here.", SourceID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestChunkSplitsLongText(t *testing.T) {
	longText := ""
	for i := 0; i < 2000; i++ {
		longText += "This is a sentence. "
	}
	chunks := chunk(longText, 12000)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 12000+200) // allow small sentence-boundary overrun
	}
}

func TestPipelineRunProcessesArticlesAndConsolidates(t *testing.T) {
	articles := article.New()
	articles.SaveArticles("inv-1", []schema.Article{
		{InvestigationID: "inv-1", URL: "https://a.example/1", Title: "T", Content: "Sufficiently long content body to clear the minimum extraction length threshold easily.", Source: schema.Source{ID: "s1", Type: schema.SourceTypeRSS}},
	})

	mock := llm.NewMock()
	mock.AddSequential(llm.ScriptEntry{Response: llm.Response{Text: `{"facts":[{"text":"Something happened","assertion_type":"statement","claim_type":"event","extraction_type":"explicit","extraction_confidence":0.8}]}`}})

	factStore := fact.New()
	consolidator := fact.NewConsolidator(factStore, nil, 0)
	agent := NewAgent(mock, "v1")
	pipeline := NewPipeline(articles, agent, consolidator, 2, nil)

	stats := pipeline.Run(context.Background(), "inv-1")
	assert.Equal(t, 1, stats.ArticlesProcessed)
	assert.Equal(t, 1, stats.FactsExtracted)
	assert.Empty(t, stats.Errors)

	facts := factStore.AllForInvestigation("inv-1")
	assert.Len(t, facts, 1)
}

func TestPipelineRunWithNoArticlesIsNoOp(t *testing.T) {
	pipeline := NewPipeline(article.New(), NewAgent(llm.NewMock(), "v1"), fact.NewConsolidator(fact.New(), nil, 0), 2, nil)
	stats := pipeline.Run(context.Background(), "ghost")
	assert.Equal(t, 0, stats.ArticlesProcessed)
}
