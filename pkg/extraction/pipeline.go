package extraction

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/watchtower-oss/watchtower/pkg/article"
	"github.com/watchtower-oss/watchtower/pkg/fact"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// PipelineStats summarizes one Run call (spec §4.7 "failures accumulate in
// stats.errors").
type PipelineStats struct {
	ArticlesProcessed int
	FactsExtracted    int
	Errors            []string
}

// Pipeline reads articles for an investigation and runs them through the
// extraction agent in a bounded-concurrency batch, then consolidates the
// union of all produced facts (spec §4.7). Grounded on the teacher's
// executeStage bounded-goroutine-group + collect pattern
// (pkg/queue/executor.go), generalized from "stage of agents" to "batch of
// articles".
type Pipeline struct {
	articles      *article.Store
	agent         *Agent
	consolidator  *fact.Consolidator
	batchSize     int64
	log           *slog.Logger
}

// NewPipeline builds a Pipeline. batchSize <= 0 defaults to 10 (spec §6.4
// extraction.batch_size default).
func NewPipeline(articles *article.Store, agent *Agent, consolidator *fact.Consolidator, batchSize int, log *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		articles:     articles,
		agent:        agent,
		consolidator: consolidator,
		batchSize:    int64(batchSize),
		log:          log.With("component", "extraction"),
	}
}

// Run processes every article currently saved for investigationID and
// consolidates the resulting facts. A single article's extraction failure
// never aborts the batch (spec §4.7, §7 Partial failure).
func (p *Pipeline) Run(ctx context.Context, investigationID string) PipelineStats {
	result := p.articles.RetrieveByInvestigation(investigationID)

	stats := PipelineStats{}
	if len(result.Articles) == 0 {
		return stats
	}

	sem := semaphore.NewWeighted(p.batchSize)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var allFacts []schema.ExtractedFact

	for _, a := range result.Articles {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			stats.Errors = append(stats.Errors, "cancelled: "+err.Error())
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(a schema.Article) {
			defer wg.Done()
			defer sem.Release(1)

			facts, err := p.agent.Extract(ctx, ExtractInput{
				Text:       a.Title + "\n\n" + a.Content,
				SourceID:   a.Source.ID,
				SourceType: a.Source.Type,
				HopCount:   0,
			})

			mu.Lock()
			defer mu.Unlock()
			stats.ArticlesProcessed++
			if err != nil {
				stats.Errors = append(stats.Errors, a.URL+": "+err.Error())
				p.log.Warn("extraction failed for article", "url", a.URL, "error", err)
				return
			}
			allFacts = append(allFacts, facts...)
		}(a)
	}
	wg.Wait()

	stats.FactsExtracted = len(allFacts)

	// Consolidation failure: original facts pass through untouched
	// (spec §4.7). Consolidate never returns an error in this
	// implementation (it only dedups in-memory data), but the contract is
	// preserved structurally: allFacts is always the fallback.
	if p.consolidator != nil && len(allFacts) > 0 {
		p.consolidator.Consolidate(investigationID, allFacts)
	}

	return stats
}
