// watchtower runs one OSINT investigation end to end: it wires the
// crawler/extraction/classification/verification pipelines behind the
// planning orchestrator, drives it to completion, and optionally snapshots
// the article store to disk as JSON (the other stores are not written).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/watchtower-oss/watchtower/pkg/article"
	"github.com/watchtower-oss/watchtower/pkg/bus"
	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/config"
	"github.com/watchtower-oss/watchtower/pkg/crawler"
	"github.com/watchtower-oss/watchtower/pkg/extraction"
	"github.com/watchtower-oss/watchtower/pkg/fact"
	"github.com/watchtower-oss/watchtower/pkg/llm"
	"github.com/watchtower-oss/watchtower/pkg/orchestrator"
	"github.com/watchtower-oss/watchtower/pkg/pipeline"
	"github.com/watchtower-oss/watchtower/pkg/ratelimit"
	"github.com/watchtower-oss/watchtower/pkg/registry"
	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/verification"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// noopRedditClient stands in for the Reddit vendor API, out of scope per
// spec §1 (the web crawler's headless fallback is simply left nil — it is
// already optional). Lets the crawler cohort construct without a real
// credential, the same degrade mock mode (spec §6.4) requires elsewhere.
type noopRedditClient struct{}

func (noopRedditClient) Search(ctx context.Context, subreddit, query string, since time.Time) ([]crawler.RedditPost, error) {
	return nil, nil
}

func (noopRedditClient) CommentChain(ctx context.Context, postID string) ([]string, error) {
	return nil, nil
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	configFile := flag.String("config-file", "", "Path to watchtower.yaml (overrides config-dir/watchtower.yaml)")
	objective := flag.String("objective", "", "Investigation objective to pursue")
	snapshotDir := flag.String("snapshot-dir", "", "If set, dump the article store to this directory as JSON on completion")
	mockLLM := flag.Bool("mock-llm", false, "Run with a scripted LLM client instead of a real credential (spec mock mode)")
	flag.Parse()

	if *objective == "" {
		log.Fatal("watchtower: --objective is required")
	}

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	path := *configFile
	if path == "" {
		path = filepath.Join(*configDir, "watchtower.yaml")
	}
	settings, err := config.LoadWatchtowerConfig(path)
	if err != nil {
		log.Fatalf("watchtower: failed to load config: %v", err)
	}
	if *mockLLM {
		settings.MockMode = true
	}
	if err := settings.RequireLLMCredential("WATCHTOWER_LLM_API_KEY"); err != nil {
		log.Fatalf("watchtower: %v", err)
	}

	log.Printf("Starting watchtower investigation: %q", *objective)

	messageBus := bus.New(nil)
	agentRegistry := registry.New(2 * time.Minute)
	agentRegistry.Register("crawler-cohort", "crawler cohort", []string{"rss", "reddit", "document", "web"})
	agentRegistry.Register("extraction-pipeline", "extraction pipeline", []string{"extract"})
	agentRegistry.Register("classification-engine", "classification engine", []string{"classify"})
	agentRegistry.Register("verification-batch", "verification batch processor", []string{"verify"})

	hostLimiter := ratelimit.NewHostLimiter(1, settings.HostLimiterOverrides())
	_ = ratelimit.NewLLMLimiter(settings.LLMLimiterConfig()) // acquired by a real llm.Client wrapper; the mock client below does not rate-limit itself

	// The real vendor completion client is out of scope (spec §1) — only
	// llm.Client's interface and its deterministic Mock exist in this
	// module, so every run (mock mode or not) completes through Mock.
	// RequireLLMCredential above still enforces the real gate spec §6.4
	// asks for: a missing credential refuses to start unless mock mode was
	// explicitly requested.
	llmClient := llm.NewMock()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	fetchers := pipeline.Fetchers{
		schema.SourceTypeRSS:      crawler.NewNewsCrawler(httpClient, nil, hostLimiter, nil),
		schema.SourceTypeReddit:   crawler.NewSocialCrawler(noopRedditClient{}, nil),
		schema.SourceTypeDocument: crawler.NewDocumentCrawler(httpClient, nil),
		schema.SourceTypeWeb:      crawler.NewWebCrawler(httpClient, nil, nil),
	}

	articleStore := article.New()
	factStore := fact.New()
	consolidator := fact.NewConsolidator(factStore, nil, settings.Dedup.SemanticThreshold)
	extractionAgent := extraction.NewAgent(llmClient, settings.LLM.Model)
	extractionPipeline := extraction.NewPipeline(articleStore, extractionAgent, consolidator, settings.Extraction.BatchSize, nil)

	classificationEngine := classification.NewEngine(settings.EchoConfig())
	classificationStore := classification.NewStore()

	verificationExecutor := verification.NewExecutor(verification.NoopSearch{})
	batchProcessor := verification.NewBatchProcessor(factStoreAdapter{factStore}, classificationStore, verificationExecutor, messageBus, nil)

	runner := pipeline.NewRunner(fetchers, articleStore, extractionPipeline, factStore, classificationEngine, classificationStore, batchProcessor, messageBus, nil)
	evaluator := pipeline.NewEvaluator(articleStore, factStore, classificationStore)

	orchestrator.CoverageTargets = settings.CoverageTargets()
	planner := orchestrator.New(settings.OrchestratorConfig(), runner, evaluator, llmClient, slog.Default())

	investigationID := "cli-" + time.Now().UTC().Format("20060102T150405")
	ctx := context.Background()
	state, err := planner.Run(ctx, investigationID, *objective)
	if err != nil {
		log.Fatalf("watchtower: investigation run failed: %v", err)
	}

	log.Printf("Investigation %s reached %s after %d iteration(s) and %d refinement(s); %d conflict(s) pending synthesis",
		state.InvestigationID, state.Phase, state.Iterations, state.RefinementCount, len(state.Conflicts))

	if *snapshotDir != "" {
		if err := os.MkdirAll(*snapshotDir, 0o755); err != nil {
			log.Fatalf("watchtower: creating snapshot dir: %v", err)
		}
		if err := articleStore.Snapshot(filepath.Join(*snapshotDir, "articles.json")); err != nil {
			log.Printf("warning: article snapshot failed: %v", err)
		}
	}
}

// factStoreAdapter satisfies verification.FactSource over *fact.Store,
// which exposes a richer API (ByHash/BySource/GetWithVariants) than the
// single-method interface the batch processor needs.
type factStoreAdapter struct {
	store *fact.Store
}

func (a factStoreAdapter) Get(factID string) (schema.ExtractedFact, bool) {
	return a.store.Get(factID)
}
