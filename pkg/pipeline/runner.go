// Package pipeline wires the crawler/extraction/classification/verification
// stages into the orchestrator.Runner and orchestrator.Evaluator interfaces,
// so pkg/orchestrator can stay ignorant of the concrete stores and fetchers
// (spec §9: explicit dependency injection instead of global singletons).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/article"
	"github.com/watchtower-oss/watchtower/pkg/bus"
	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/crawler"
	"github.com/watchtower-oss/watchtower/pkg/extraction"
	"github.com/watchtower-oss/watchtower/pkg/fact"
	"github.com/watchtower-oss/watchtower/pkg/orchestrator"
	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
	"github.com/watchtower-oss/watchtower/pkg/verification"
)

// Fetchers maps each source type to the crawler.Fetcher that serves it.
type Fetchers map[schema.SourceType]crawler.Fetcher

// Runner drives one subtask through crawl -> extract -> classify -> verify
// and reports the aggregate signal the orchestrator judges (spec §4.12:
// "the orchestrator... judges only the aggregate signal Runner reports").
type Runner struct {
	Fetchers       Fetchers
	Articles       *article.Store
	Extraction     *extraction.Pipeline
	Facts          *fact.Store
	Classification *classification.Engine
	Classifications *classification.Store
	Verification   *verification.BatchProcessor
	Bus            *bus.Bus
	log            *slog.Logger
}

// NewRunner builds a Runner. Any nil field among Articles/Facts/Classifications
// is a programmer error (spec §4.0's "panics only on nil required
// dependency" convention, mirroring agent.NewBaseAgent).
func NewRunner(fetchers Fetchers, articles *article.Store, extractionPipeline *extraction.Pipeline, facts *fact.Store, engine *classification.Engine, classifications *classification.Store, verificationBatch *verification.BatchProcessor, b *bus.Bus, log *slog.Logger) *Runner {
	if articles == nil || facts == nil || classifications == nil {
		panic("pipeline: NewRunner requires non-nil article/fact/classification stores")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		Fetchers:        fetchers,
		Articles:        articles,
		Extraction:      extractionPipeline,
		Facts:           facts,
		Classification:  engine,
		Classifications: classifications,
		Verification:    verificationBatch,
		Bus:             b,
		log:             log.With("component", "pipeline_runner"),
	}
}

// Run implements orchestrator.Runner.
func (r *Runner) Run(ctx context.Context, investigationID string, subtask orchestrator.Subtask) (orchestrator.Finding, error) {
	fetcher, ok := r.Fetchers[subtask.SourceType]
	if !ok {
		return orchestrator.Finding{}, fmt.Errorf("pipeline: no fetcher registered for source type %q", subtask.SourceType)
	}

	articles, stats, fetchErrs := fetcher.Fetch(ctx, investigationID, subtask.Query, crawler.Constraints{MaxArticles: 25})
	for _, e := range fetchErrs {
		r.log.Warn("crawl error", "subtask_id", subtask.ID, "source", subtask.SourceType, "error", e)
	}
	if len(articles) > 0 {
		r.Articles.SaveArticles(investigationID, articles)
	}
	if r.Bus != nil {
		r.Bus.Publish(bus.TopicCrawlerComplete, crawler.CrawlComplete{
			InvestigationID: investigationID,
			Source:          string(subtask.SourceType),
			Articles:        articles,
			Stats:           stats,
		})
	}

	if r.Extraction != nil {
		r.Extraction.Run(ctx, investigationID)
	}

	facts := r.Facts.AllForInvestigation(investigationID)
	sourceHosts := hostsByArticleSource(r.Articles.RetrieveByInvestigation(investigationID).Articles)
	contradictionCounts := contradictionCountsByFact(facts)

	if r.Classification != nil {
		for _, f := range facts {
			classified := r.Classification.Classify(classification.ClassifyInput{
				InvestigationID:    investigationID,
				Fact:               f,
				SourceHosts:        sourceHosts,
				ContradictionCount: contradictionCounts[f.FactID],
			})
			r.Classifications.Put(classified)
			if r.Bus != nil {
				r.Bus.Publish(bus.TopicClassificationComplete, classified)
			}
		}
	}

	if r.Verification != nil {
		r.Verification.Run(ctx, investigationID)
	}

	return r.scoreFinding(subtask, facts), nil
}

// scoreFinding turns this round's classification/verification state into
// the weighted signal inputs SignalStrength reads (spec §4.12).
func (r *Runner) scoreFinding(subtask orchestrator.Subtask, facts []schema.ExtractedFact) orchestrator.Finding {
	if len(facts) == 0 {
		return orchestrator.Finding{SubtaskID: subtask.ID}
	}

	keywords := significantWords(subtask.Query)
	var keywordHits, entityCount, credCount int
	var credTotal float64
	for _, f := range facts {
		if containsAny(f.Claim.Text, keywords) {
			keywordHits++
		}
		entityCount += len(f.Entities)
		if c, ok := r.Classifications.Get(f.FactID); ok {
			credTotal += c.CredibilityScore
			credCount++
		}
	}

	n := float64(len(facts))
	keywordMatch := clamp01(float64(keywordHits) / n)
	entityDensity := clamp01(float64(entityCount) / (n * 3)) // 3 entities/fact treated as saturating
	sourceCredibility := 0.0
	if credCount > 0 {
		sourceCredibility = clamp01(credTotal / float64(credCount))
	}
	infoDensity := clamp01(n / 20) // 20 facts in one round treated as saturating

	return orchestrator.Finding{
		SubtaskID:         subtask.ID,
		KeywordMatch:      keywordMatch,
		EntityDensity:     entityDensity,
		SourceCredibility: sourceCredibility,
		InfoDensity:       infoDensity,
	}
}

func hostsByArticleSource(articles []schema.Article) map[string]string {
	hosts := make(map[string]string, len(articles))
	for _, a := range articles {
		hosts[a.Source.ID] = urlman.Host(a.URL)
	}
	return hosts
}

func contradictionCountsByFact(facts []schema.ExtractedFact) map[string]int {
	counts := make(map[string]int)
	for _, c := range classification.DetectContradictions(facts) {
		counts[c.FactA]++
		counts[c.FactB]++
	}
	return counts
}

func significantWords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
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

// Evaluator measures coverage, novelty, and conflicts against the
// accumulated article/fact/classification state (spec §4.12). Kept
// separate from Runner because these are properties of the accumulated
// set, not of any one subtask's execution.
type Evaluator struct {
	Articles        *article.Store
	Facts           *fact.Store
	Classifications *classification.Store

	mu         sync.Mutex
	lastCounts map[string]int // investigation_id -> fact count observed at the previous Novelty call
}

// NewEvaluator builds an Evaluator over the same stores the Runner writes into.
func NewEvaluator(articles *article.Store, facts *fact.Store, classifications *classification.Store) *Evaluator {
	return &Evaluator{
		Articles:        articles,
		Facts:           facts,
		Classifications: classifications,
		lastCounts:      make(map[string]int),
	}
}

// knownSourceTypes is the full set spec §3.1 defines; SourceDiversity is
// scored against how many of these have contributed an article so far.
var knownSourceTypes = []schema.SourceType{
	schema.SourceTypeRSS, schema.SourceTypeAPI, schema.SourceTypeReddit,
	schema.SourceTypeDocument, schema.SourceTypeWeb,
}

// Coverage implements orchestrator.Evaluator.
func (e *Evaluator) Coverage(ctx context.Context, investigationID string) orchestrator.CoverageMetrics {
	articles := e.Articles.RetrieveByInvestigation(investigationID).Articles
	facts := e.Facts.AllForInvestigation(investigationID)

	sourceTypesSeen := make(map[schema.SourceType]struct{})
	for _, a := range articles {
		sourceTypesSeen[a.Source.Type] = struct{}{}
	}

	locations := make(map[string]struct{})
	claimTypes := make(map[schema.ClaimType]struct{})
	var explicitTemporal int
	for _, f := range facts {
		for _, ent := range f.Entities {
			if ent.Type == schema.EntityLocation {
				locations[strings.ToLower(ent.Text)] = struct{}{}
			}
		}
		claimTypes[f.Claim.ClaimType] = struct{}{}
		if f.Temporal != nil && f.Temporal.TemporalPrecision == schema.TemporalExplicit {
			explicitTemporal++
		}
	}

	temporalRange := 0.0
	if len(facts) > 0 {
		temporalRange = clamp01(float64(explicitTemporal) / float64(len(facts)))
	}

	return orchestrator.CoverageMetrics{
		SourceDiversity:    clamp01(float64(len(sourceTypesSeen)) / float64(len(knownSourceTypes))),
		GeographicCoverage: clamp01(float64(len(locations)) / 5), // 5 distinct locations treated as saturating
		TemporalRange:      temporalRange,
		TopicCompleteness:  clamp01(float64(len(claimTypes)) / 4), // 4 ClaimType values
	}
}

// Novelty implements orchestrator.Evaluator, comparing the fact count
// observed this round against the previous round's (spec §4.12's
// diminishing-returns detector reads "new X since last round" ratios).
func (e *Evaluator) Novelty(ctx context.Context, investigationID string, round int) orchestrator.NoveltyInputs {
	e.mu.Lock()
	defer e.mu.Unlock()

	facts := e.Facts.AllForInvestigation(investigationID)
	current := len(facts)
	previous := e.lastCounts[investigationID]
	e.lastCounts[investigationID] = current

	if current == 0 {
		return orchestrator.NoveltyInputs{}
	}
	delta := current - previous
	if delta < 0 {
		delta = 0
	}
	ratio := clamp01(float64(delta) / float64(current))

	// Entity/content novelty track the same ratio in the absence of a
	// finer-grained embedding-backed signal (spec §4.8's "no embedding
	// capability is available" degrade already governs dedup layer 3;
	// novelty estimation degrades the same way here).
	return orchestrator.NoveltyInputs{
		SourceNovelty:  ratio,
		EntityNovelty:  ratio,
		ContentNovelty: ratio,
	}
}

// Conflicts implements orchestrator.Evaluator, surfacing detected
// contradictions untouched for the orchestrator to forward to synthesis
// (spec §4.12 forbids resolving them here).
func (e *Evaluator) Conflicts(ctx context.Context, investigationID string) []orchestrator.Conflict {
	facts := e.Facts.AllForInvestigation(investigationID)
	contradictions := classification.DetectContradictions(facts)

	conflicts := make([]orchestrator.Conflict, 0, len(contradictions))
	for _, c := range contradictions {
		conflicts = append(conflicts, orchestrator.Conflict{
			FactIDs:     [2]string{c.FactA, c.FactB},
			Description: fmt.Sprintf("%s contradiction (confidence %.2f)", c.Type, c.Confidence),
		})
	}
	return conflicts
}
