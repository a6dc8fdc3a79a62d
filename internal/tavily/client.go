package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/search"
)

const DefaultURL = "https://api.tavily.com/search"

// Client is a Tavily Search API client
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

// NewClient creates a new Tavily API client. A zero timeout means 30s.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: DefaultURL,
		client:   &http.Client{Timeout: timeout},
		log:      logger.Component("tavily"),
	}
}

// WithEndpoint returns c sending requests to url instead of the public API.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

// SearchRequest represents the Tavily search request payload
type SearchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"` // "basic" or "advanced"
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content"`
	TimeRange         string `json:"time_range,omitempty"`
	Days              int    `json:"days,omitempty"`
}

// SearchResult represents a single search result from Tavily
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"` // Snippet
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// SearchResponse represents the Tavily search response
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return "tavily"
}

// Search implements search.Provider
func (c *Client) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reqBody := SearchRequest{
		APIKey:      c.apiKey,
		Query:       req.Query,
		SearchDepth: "basic",
		MaxResults:  req.MaxResults,
		TimeRange:   string(req.TimeRange),
		Days:        req.TimeRange.Days(),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.log.Debug("searching", "query", req.Query, "max_results", req.MaxResults, "time_range", req.TimeRange)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tavily api error: %d %s", resp.StatusCode, string(bodyBytes))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	results := make([]search.Result, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	c.log.Info("search done", "results", len(results), "response_time", searchResp.ResponseTime)
	return results, nil
}
