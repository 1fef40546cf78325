package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
)

// jsFrameworkMarkers are DOM signals that the page is rendered client-side
// and an HTTP-only fetch will come back near-empty (spec §4.5).
var jsFrameworkMarkers = []string{"ng-app", "data-reactroot", "id=\"__next\"", "id=\"app\"", "data-v-app"}

// minRenderedBodyLength below this, combined with no framework marker,
// still triggers the headless fallback (spec §4.5 "body content < threshold").
const minRenderedBodyLength = 200

// HeadlessFetcher abstracts a headless-browser render step. Production
// wires a real browser driver; tests stub it.
type HeadlessFetcher interface {
	Render(ctx context.Context, url string) (html string, err error)
}

// userAgents is the small rotation pool spec §4.5 calls for.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
}

// WebCrawler implements the hybrid HTTP-first/headless-fallback crawler
// (spec §4.5).
type WebCrawler struct {
	HTTPClient *http.Client
	Headless   HeadlessFetcher // nil disables the fallback; HTTP result is used as-is
	URLs       []string
}

// NewWebCrawler builds a WebCrawler over the given URLs.
func NewWebCrawler(httpClient *http.Client, headless HeadlessFetcher, urls []string) *WebCrawler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &WebCrawler{HTTPClient: httpClient, Headless: headless, URLs: urls}
}

// Fetch implements Fetcher.
func (c *WebCrawler) Fetch(ctx context.Context, investigationID, query string, constraints Constraints) ([]schema.Article, Stats, []error) {
	start := time.Now()
	var (
		articles []schema.Article
		errs     []error
	)

	for _, u := range c.URLs {
		html, err := c.fetchHTTP(ctx, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("fetch %s: %w", u, err))
			continue
		}

		if c.Headless != nil && needsHeadless(html) {
			rendered, err := c.Headless.Render(ctx, u)
			if err != nil {
				errs = append(errs, fmt.Errorf("headless render %s: %w", u, err))
			} else {
				html = rendered
			}
		}

		title, content, err := parseHTML(html)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", u, err))
			continue
		}

		normalized, _ := urlman.Normalize(u)
		articles = append(articles, schema.Article{
			InvestigationID: investigationID,
			URL:             normalized,
			Title:           title,
			Content:         content,
			Source:          schema.Source{ID: urlman.Host(u), Name: urlman.Host(u), Type: schema.SourceTypeWeb},
			Metadata: schema.ArticleMetadata{
				SourceType:  schema.SourceTypeWeb,
				RetrievedAt: time.Now().UTC(),
			},
		})

		if constraints.MaxArticles > 0 && len(articles) >= constraints.MaxArticles {
			break
		}
	}

	return articles, Stats{Fetched: len(articles), Duration: time.Since(start)}, errs
}

func (c *WebCrawler) fetchHTTP(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func needsHeadless(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range jsFrameworkMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(doc.Find("body").Text())) < minRenderedBodyLength
}

func parseHTML(html string) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	content = strings.TrimSpace(doc.Find("body").Text())
	return title, content, nil
}
