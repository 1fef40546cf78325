package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/watchtower-oss/watchtower/pkg/ratelimit"
	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
)

// rssFeed is a lenient RSS/Atom superset: fields absent in one dialect
// simply stay zero-valued rather than failing decode.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []rssItem `xml:"entry"` // Atom
}

type rssItem struct {
	Title     string `xml:"title"`
	Link      string `xml:"link"`
	LinkHref  string `xml:"link,attr"`
	GUID      string `xml:"guid"`
	Author    string `xml:"author"`
	Creator   string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Published string `xml:"published"` // Atom
	PubDate   string `xml:"pubDate"`   // RSS 2.0
	Updated   string `xml:"updated"`   // Atom
	DCDate    string `xml:"http://purl.org/dc/elements/1.1/ date"`
	Summary   string `xml:"summary"`
	Desc      string `xml:"description"`
}

func (it rssItem) link() string {
	if it.Link != "" {
		return it.Link
	}
	return it.LinkHref
}

func (it rssItem) body() string {
	if it.Summary != "" {
		return it.Summary
	}
	return it.Desc
}

func (it rssItem) byline() string {
	if it.Author != "" {
		return it.Author
	}
	return it.Creator
}

// dateLayouts covers the field-fallback chain spec §4.5 requires:
// published, pubDate, updated, dc:date, each tried against the formats
// real feeds actually emit.
var dateLayouts = []string{
	time.RFC1123Z, time.RFC1123, time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05",
}

func (it rssItem) publishedAt() *time.Time {
	for _, raw := range []string{it.Published, it.PubDate, it.Updated, it.DCDate} {
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t
			}
		}
	}
	return nil
}

// NewsSearcher is the optional supplemental news-search API, honoring a
// strict free-tier quota (spec §4.5: 4 requests/hour).
type NewsSearcher interface {
	Search(ctx context.Context, query string, max int) ([]schema.Article, error)
}

// FeedSource is one configured RSS/Atom feed.
type FeedSource struct {
	Name string
	URL  string
}

// NewsCrawler is the RSS-first news-feed crawler (spec §4.5).
type NewsCrawler struct {
	HTTPClient   *http.Client
	Feeds        []FeedSource
	HostLimiter  *ratelimit.HostLimiter
	Search       NewsSearcher // optional; nil disables the supplemental API
	MaxConcurrency int64
}

// NewNewsCrawler builds a NewsCrawler with feeds randomly rotated per call
// (spec §4.5 "random source rotation to avoid sequential patterns").
func NewNewsCrawler(httpClient *http.Client, feeds []FeedSource, hostLimiter *ratelimit.HostLimiter, search NewsSearcher) *NewsCrawler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &NewsCrawler{HTTPClient: httpClient, Feeds: feeds, HostLimiter: hostLimiter, Search: search, MaxConcurrency: 4}
}

// Fetch implements Fetcher.
func (c *NewsCrawler) Fetch(ctx context.Context, investigationID, query string, constraints Constraints) ([]schema.Article, Stats, []error) {
	start := time.Now()
	order := rand.Perm(len(c.Feeds))

	var (
		mu       sync.Mutex
		articles []schema.Article
		errs     []error
	)

	maxConcurrency := c.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	sem := semaphore.NewWeighted(maxConcurrency)
	var wg sync.WaitGroup

	for _, idx := range order {
		feed := c.Feeds[idx]
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(feed FeedSource) {
			defer wg.Done()
			defer sem.Release(1)

			items, err := c.fetchFeed(ctx, feed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("feed %s: %w", feed.Name, err))
				return
			}
			for _, it := range items {
				articles = append(articles, c.toArticle(investigationID, feed, it))
			}
		}(feed)
	}
	wg.Wait()

	if c.Search != nil {
		extra, err := c.Search.Search(ctx, query, 10)
		if err != nil {
			errs = append(errs, fmt.Errorf("news search api: %w", err))
		} else {
			articles = append(articles, extra...)
		}
	}

	if constraints.MaxArticles > 0 && len(articles) > constraints.MaxArticles {
		articles = articles[:constraints.MaxArticles]
	}

	return articles, Stats{Fetched: len(articles), Duration: time.Since(start)}, errs
}

func (c *NewsCrawler) fetchFeed(ctx context.Context, feed FeedSource) ([]rssItem, error) {
	if c.HostLimiter != nil {
		if err := c.HostLimiter.Acquire(ctx, urlman.Host(feed.URL)); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed rssFeed
	decoder := xml.NewDecoder(strings.NewReader(string(body)))
	decoder.Strict = false // lenient parsing of malformed markup; no CharsetReader is set, so non-UTF-8 feeds fail to decode
	if err := decoder.Decode(&parsed); err != nil {
		return nil, err
	}

	if len(parsed.Entries) > 0 {
		return parsed.Entries, nil
	}
	return parsed.Channel.Items, nil
}

func (c *NewsCrawler) toArticle(investigationID string, feed FeedSource, it rssItem) schema.Article {
	normalized, _ := urlman.Normalize(it.link())
	var authors []string
	if by := it.byline(); by != "" {
		authors = []string{by}
	}
	return schema.Article{
		InvestigationID: investigationID,
		URL:             normalized,
		Title:           it.Title,
		Content:         it.body(),
		PublishedDate:   it.publishedAt(),
		Authors:         authors,
		Source:          schema.Source{ID: feed.Name, Name: feed.Name, Type: schema.SourceTypeRSS},
		Metadata: schema.ArticleMetadata{
			SourceType:  schema.SourceTypeRSS,
			RetrievedAt: time.Now().UTC(),
		},
	}
}
