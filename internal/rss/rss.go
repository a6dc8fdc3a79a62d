package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/search"
)

const DefaultBaseURL = "https://news.google.com/rss/search"

// GoogleNews searches the public Google News RSS endpoint. It needs no credential.
type GoogleNews struct {
	baseURL   string
	timeout   time.Duration
	parser    *gofeed.Parser
	converter *md.Converter
	log       *slog.Logger
}

// NewGoogleNews creates the provider. A zero timeout means 30s.
func NewGoogleNews(timeout time.Duration) *GoogleNews {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &GoogleNews{
		baseURL:   DefaultBaseURL,
		timeout:   timeout,
		parser:    parser,
		converter: md.NewConverter("", true, nil),
		log:       logger.Component("rss"),
	}
}

// WithBaseURL returns p querying u instead of Google News.
func (p *GoogleNews) WithBaseURL(u string) *GoogleNews {
	p.baseURL = u
	return p
}

func (p *GoogleNews) Name() string {
	return "rss"
}

// FeedURL builds the search feed URL for req.
func (p *GoogleNews) FeedURL(req search.Request) string {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s when:%dd", req.Query, req.TimeRange.Days()))
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")
	return p.baseURL + "?" + q.Encode()
}

// Search fetches and parses the feed; item descriptions are converted to markdown.
func (p *GoogleNews) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	feedURL := p.FeedURL(req)
	feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing RSS: %w", err)
	}

	results := make([]search.Result, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" {
			continue
		}
		results = append(results, search.Result{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Content: p.describe(item),
			Score:   search.RankScore(len(results)),
		})
		if len(results) == req.MaxResults {
			break
		}
	}

	p.log.Info("loaded news from feed", "items", len(feed.Items), "results", len(results))
	return results, nil
}

func (p *GoogleNews) describe(item *gofeed.Item) string {
	raw := item.Description
	if raw == "" {
		raw = item.Content
	}
	if raw == "" {
		return ""
	}
	text, err := p.converter.ConvertString(raw)
	if err != nil {
		p.log.Debug("description conversion failed", "error", err)
		return raw
	}
	return strings.TrimSpace(text)
}
