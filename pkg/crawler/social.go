package crawler

import (
	"context"
	"time"

	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
)

// RedditPost is the subset of a listing entry the authority gate needs.
type RedditPost struct {
	ID            string
	Subreddit     string
	Title         string
	SelfText      string
	URL           string
	Author        string // "[deleted]" for removed accounts
	Score         int
	CommentCount  int
	CreatedUTC    time.Time
	TopComments   []string
}

// RedditClient abstracts the subreddit search + comment-chain fetch this
// crawler depends on; tests supply a stub, production wires a real client.
type RedditClient interface {
	Search(ctx context.Context, subreddit, query string, since time.Time) ([]RedditPost, error)
	CommentChain(ctx context.Context, postID string) ([]string, error)
}

// SocialCrawler implements the Reddit-style crawler (spec §4.5).
type SocialCrawler struct {
	Client      RedditClient
	Subreddits  []string
}

// NewSocialCrawler builds a SocialCrawler targeting the given subreddits.
func NewSocialCrawler(client RedditClient, subreddits []string) *SocialCrawler {
	return &SocialCrawler{Client: client, Subreddits: subreddits}
}

// passesAuthorityGate implements spec §4.5's filter: score > 10 AND
// comments > 5 AND author not deleted.
func passesAuthorityGate(p RedditPost) bool {
	return p.Score > 10 && p.CommentCount > 5 && p.Author != "" && p.Author != "[deleted]"
}

// Fetch implements Fetcher.
func (c *SocialCrawler) Fetch(ctx context.Context, investigationID, query string, constraints Constraints) ([]schema.Article, Stats, []error) {
	start := time.Now()
	since := constraints.Since
	if since.IsZero() {
		since = time.Now().Add(-7 * 24 * time.Hour)
	}

	var (
		articles []schema.Article
		errs     []error
		skipped  int
	)

	for _, sub := range c.Subreddits {
		posts, err := c.Client.Search(ctx, sub, query, since)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range posts {
			if !passesAuthorityGate(p) {
				skipped++
				continue
			}
			if p.Score > 100 {
				chain, err := c.Client.CommentChain(ctx, p.ID)
				if err != nil {
					errs = append(errs, err)
				} else {
					p.TopComments = chain
				}
			}
			articles = append(articles, c.toArticle(investigationID, p))
		}
		if constraints.MaxArticles > 0 && len(articles) >= constraints.MaxArticles {
			articles = articles[:constraints.MaxArticles]
			break
		}
	}

	return articles, Stats{Fetched: len(articles), Skipped: skipped, Duration: time.Since(start)}, errs
}

func (c *SocialCrawler) toArticle(investigationID string, p RedditPost) schema.Article {
	normalized := p.URL
	if n, err := urlman.Normalize(p.URL); err == nil {
		normalized = n
	}
	content := p.SelfText
	for _, cmt := range p.TopComments {
		content += "\n\n" + cmt
	}
	published := p.CreatedUTC
	return schema.Article{
		InvestigationID: investigationID,
		URL:             normalized,
		Title:           p.Title,
		Content:         content,
		PublishedDate:   &published,
		Authors:         []string{p.Author},
		Source:          schema.Source{ID: "r/" + p.Subreddit, Name: "r/" + p.Subreddit, Type: schema.SourceTypeReddit},
		Metadata: schema.ArticleMetadata{
			SourceType:  schema.SourceTypeReddit,
			RetrievedAt: time.Now().UTC(),
		},
	}
}
