package serpapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	g "github.com/serpapi/google-search-results-golang"

	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/search"
)

// Client is a wrapper around the SerpApi Google News search
type Client struct {
	apiKey  string
	timeout time.Duration
	fetch   func(params map[string]string, apiKey string) (map[string]interface{}, error)
	log     *slog.Logger
}

// NewClient creates a new SerpApi client. A zero timeout means 30s.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		timeout: timeout,
		fetch:   googleSearch,
		log:     logger.Component("serpapi"),
	}
}

func googleSearch(params map[string]string, apiKey string) (map[string]interface{}, error) {
	s := g.NewGoogleSearch(params, apiKey)
	return s.GetJSON()
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return "serpapi"
}

var qdr = map[search.TimeRange]string{
	search.Day:   "qdr:d",
	search.Week:  "qdr:w",
	search.Month: "qdr:m",
}

// Search runs a Google News query (tbm=nws) and scores results by rank.
func (c *Client) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("SerpApi API key is not set")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	parameter := map[string]string{
		"engine": "google",
		"q":      req.Query,
		"tbm":    "nws",
		"tbs":    qdr[req.TimeRange],
		"num":    fmt.Sprint(req.MaxResults),
		"hl":     "en",
		"gl":     "us",
	}

	c.log.Debug("searching", "query", req.Query, "time_range", req.TimeRange)

	// the client library takes no context, so bound the call here
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type reply struct {
		data map[string]interface{}
		err  error
	}
	// buffered so a fetch outliving the timeout can still send and exit;
	// the library's own HTTP timeout bounds it
	done := make(chan reply, 1)
	go func() {
		data, err := c.fetch(parameter, c.apiKey)
		done <- reply{data, err}
	}()

	var data map[string]interface{}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("serpapi search: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("serpapi search failed: %w", r.err)
		}
		data = r.data
	}

	if msg, ok := data["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("serpapi error: %s", msg)
	}

	results := parseNewsResults(data, req.MaxResults)
	c.log.Info("search done", "results", len(results))
	return results, nil
}

func parseNewsResults(data map[string]interface{}, max int) []search.Result {
	newsResults, ok := data["news_results"].([]interface{})
	if !ok {
		return []search.Result{}
	}

	results := make([]search.Result, 0, len(newsResults))
	for _, item := range newsResults {
		res, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		title, _ := res["title"].(string)
		link, _ := res["link"].(string)
		snippet, _ := res["snippet"].(string)

		if title == "" || link == "" {
			continue
		}

		results = append(results, search.Result{
			Title:   title,
			URL:     link,
			Content: snippet,
			Score:   search.RankScore(len(results)),
		})
		if len(results) == max {
			break
		}
	}
	return results
}
