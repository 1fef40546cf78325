package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-oss/watchtower/pkg/article"
	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/crawler"
	"github.com/watchtower-oss/watchtower/pkg/fact"
	"github.com/watchtower-oss/watchtower/pkg/orchestrator"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

type stubFetcher struct {
	articles []schema.Article
}

func (f stubFetcher) Fetch(ctx context.Context, investigationID, query string, constraints crawler.Constraints) ([]schema.Article, crawler.Stats, []error) {
	return f.articles, crawler.Stats{Fetched: len(f.articles)}, nil
}

func sampleFact(id, claimText string, claimType schema.ClaimType, entities []schema.Entity) schema.ExtractedFact {
	return schema.ExtractedFact{
		FactID:      id,
		ContentHash: id + "-hash",
		Claim:       schema.Claim{Text: claimText, AssertionType: schema.AssertionStatement, ClaimType: claimType},
		Entities:    entities,
		Provenance:  schema.Provenance{SourceID: "src-1", SourceClassification: schema.SourcePrimary},
		Quality:     schema.Quality{ExtractionConfidence: 0.9, ClaimClarity: 0.9},
	}
}

func TestRunnerProducesFindingFromClassifiedFacts(t *testing.T) {
	articles := article.New()
	facts := fact.New()
	consolidator := fact.NewConsolidator(facts, nil, 0.3)
	consolidator.Consolidate("inv-1", []schema.ExtractedFact{
		sampleFact("f1", "Troop movements reported near the border", schema.ClaimTypeEvent, []schema.Entity{
			{ID: "E1", Text: "Border Guard", Type: schema.EntityOrganization},
		}),
	})

	classifications := classification.NewStore()
	engine := classification.NewEngine(classification.DefaultEchoConfig())

	fetchers := Fetchers{
		schema.SourceTypeRSS: stubFetcher{articles: []schema.Article{
			{InvestigationID: "inv-1", URL: "https://example.com/a", Title: "Border", Content: "Troop movements reported",
				Source: schema.Source{ID: "src-1", Type: schema.SourceTypeRSS}},
		}},
	}

	runner := NewRunner(fetchers, articles, nil, facts, engine, classifications, nil, nil, nil)

	finding, err := runner.Run(context.Background(), "inv-1", orchestrator.Subtask{
		ID: "sub-1", Query: "troop movements border", SourceType: schema.SourceTypeRSS,
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", finding.SubtaskID)
	assert.Greater(t, finding.KeywordMatch, 0.0)
	assert.Greater(t, finding.SourceCredibility, 0.0)
}

func TestRunnerUnknownSourceTypeErrors(t *testing.T) {
	runner := NewRunner(Fetchers{}, article.New(), nil, fact.New(), nil, classification.NewStore(), nil, nil, nil)
	_, err := runner.Run(context.Background(), "inv-2", orchestrator.Subtask{ID: "sub-2", SourceType: schema.SourceTypeWeb})
	assert.Error(t, err)
}

func TestEvaluatorCoverageReflectsAccumulatedState(t *testing.T) {
	articles := article.New()
	articles.SaveArticles("inv-3", []schema.Article{
		{InvestigationID: "inv-3", URL: "https://a.com/1", Source: schema.Source{Type: schema.SourceTypeRSS}},
		{InvestigationID: "inv-3", URL: "https://b.com/1", Source: schema.Source{Type: schema.SourceTypeReddit}},
	})

	facts := fact.New()
	consolidator := fact.NewConsolidator(facts, nil, 0.3)
	now := time.Now()
	f1 := sampleFact("f1", "Event near capital", schema.ClaimTypeEvent, []schema.Entity{{ID: "E1", Text: "Capital City", Type: schema.EntityLocation}})
	f1.Temporal = &schema.Temporal{ID: "T1", Value: now.Format(time.RFC3339), TemporalPrecision: schema.TemporalExplicit}
	consolidator.Consolidate("inv-3", []schema.ExtractedFact{f1})

	evaluator := NewEvaluator(articles, facts, classification.NewStore())
	coverage := evaluator.Coverage(context.Background(), "inv-3")

	assert.Greater(t, coverage.SourceDiversity, 0.0)
	assert.Greater(t, coverage.GeographicCoverage, 0.0)
	assert.Greater(t, coverage.TemporalRange, 0.0)
	assert.Greater(t, coverage.TopicCompleteness, 0.0)
}

func TestEvaluatorNoveltyTracksDeltaAcrossRounds(t *testing.T) {
	facts := fact.New()
	consolidator := fact.NewConsolidator(facts, nil, 0.3)
	consolidator.Consolidate("inv-4", []schema.ExtractedFact{sampleFact("f1", "one", schema.ClaimTypeEvent, nil)})

	evaluator := NewEvaluator(article.New(), facts, classification.NewStore())
	first := evaluator.Novelty(context.Background(), "inv-4", 1)
	assert.Equal(t, 1.0, first.SourceNovelty) // all facts are new on round 1

	second := evaluator.Novelty(context.Background(), "inv-4", 2)
	assert.Equal(t, 0.0, second.SourceNovelty) // no new facts since round 1
}

func TestEvaluatorConflictsSurfacesContradictions(t *testing.T) {
	facts := fact.New()
	consolidator := fact.NewConsolidator(facts, nil, 0.3)
	consolidator.Consolidate("inv-5", []schema.ExtractedFact{
		sampleFact("f1", "the minister denies the allegations", schema.ClaimTypeState, nil),
		sampleFact("f2", "the minister allegations are confirmed", schema.ClaimTypeState, nil),
	})

	evaluator := NewEvaluator(article.New(), facts, classification.NewStore())
	conflicts := evaluator.Conflicts(context.Background(), "inv-5")
	assert.NotEmpty(t, conflicts)
}
