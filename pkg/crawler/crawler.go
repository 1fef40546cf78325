// Package crawler implements the four source-specific fetchers behind a
// common interface (spec §4.5): news-feed, social, document, and hybrid web.
// Each is bus-driven — subscribed to its crawl-request topic, publishing
// crawler.complete or crawler.failed on completion — and tolerates partial
// failure: one bad feed or API call never aborts the batch.
package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/watchtower-oss/watchtower/pkg/bus"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// Constraints narrows a fetch (spec §4.5: "query, constraints").
type Constraints struct {
	MaxArticles int
	Since       time.Time
	Keywords    []string
}

// Stats reports what a single fetch accomplished.
type Stats struct {
	Fetched  int
	Skipped  int
	Duration time.Duration
}

// Fetcher is the common interface every crawler variant implements.
// Fetch never returns a fatal error for a single-source failure: those
// accumulate in the returned error slice while successfully gathered
// articles are still returned (spec §4.5 failure semantics).
type Fetcher interface {
	Fetch(ctx context.Context, investigationID, query string, constraints Constraints) ([]schema.Article, Stats, []error)
}

// CrawlRequest is the payload crawlers expect on their subscribed topic.
type CrawlRequest struct {
	InvestigationID string
	Query           string
	Constraints     Constraints
}

// CrawlComplete is published on bus.TopicCrawlerComplete.
type CrawlComplete struct {
	InvestigationID string
	Source          string
	Articles        []schema.Article
	Stats           Stats
}

// CrawlFailed is published on bus.TopicCrawlerFailed.
type CrawlFailed struct {
	InvestigationID string
	Source          string
	Errors          []error
}

// Service wires one Fetcher to its bus topic, normalizing and publishing
// results. One Service exists per crawler variant (spec §4.5 "common
// interface" + "message bus contract").
type Service struct {
	source  string
	topic   string
	fetcher Fetcher
	b       *bus.Bus
	log     *slog.Logger
}

// NewService subscribes fetcher to topic on b, tagging published events
// with source (e.g. "news", "reddit", "document", "web").
func NewService(b *bus.Bus, log *slog.Logger, source, topic string, fetcher Fetcher) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{source: source, topic: topic, fetcher: fetcher, b: b, log: log.With("component", "crawler", "source", source)}
	b.Subscribe(topic, s.handle)
	return s
}

func (s *Service) handle(_ string, payload any) {
	req, ok := payload.(CrawlRequest)
	if !ok {
		s.log.Error("crawl request payload has unexpected type")
		return
	}
	ctx := context.Background()
	articles, stats, errs := s.fetcher.Fetch(ctx, req.InvestigationID, req.Query, req.Constraints)

	if len(articles) == 0 && len(errs) > 0 {
		s.b.Publish(bus.TopicCrawlerFailed, CrawlFailed{InvestigationID: req.InvestigationID, Source: s.source, Errors: errs})
		return
	}
	for _, e := range errs {
		s.log.Warn("partial crawl failure", "error", e)
	}
	s.b.Publish(bus.TopicCrawlerComplete, CrawlComplete{
		InvestigationID: req.InvestigationID,
		Source:          s.source,
		Articles:        articles,
		Stats:           stats,
	})
}
