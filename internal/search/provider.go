package search

import (
	"context"
	"fmt"
)

// TimeRange limits how far back a search looks.
type TimeRange string

const (
	Day   TimeRange = "day"
	Week  TimeRange = "week"
	Month TimeRange = "month"
)

// Days returns the window length in days (day=1, week=7, month=30).
func (t TimeRange) Days() int {
	switch t {
	case Week:
		return 7
	case Month:
		return 30
	default:
		return 1
	}
}

func (t TimeRange) Valid() bool {
	return t == Day || t == Week || t == Month
}

// Request is what a check asks of a search provider
type Request struct {
	Query      string
	TimeRange  TimeRange
	MaxResults int
}

// Validate fills defaults and rejects requests no provider can serve.
func (r *Request) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("search: empty query")
	}
	if r.TimeRange == "" {
		r.TimeRange = Day
	}
	if !r.TimeRange.Valid() {
		return fmt.Errorf("search: unknown time range %q", r.TimeRange)
	}
	if r.MaxResults <= 0 {
		r.MaxResults = 10
	}
	return nil
}

// Result represents a single raw search hit from any provider
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64 // relevance in [0,1] as reported (or derived) by the provider
}

// Provider is the interface all search providers must implement
type Provider interface {
	// Name returns the provider identifier (e.g., "tavily", "serpapi")
	Name() string

	// Search runs one query. Implementations use a bounded timeout and never retry.
	Search(ctx context.Context, req Request) ([]Result, error)
}

// RankScore derives a relevance score from result position for providers that
// do not report one: 1.0 for the first hit, minus 0.05 per rank, floored at 0.1.
func RankScore(i int) float64 {
	score := 1.0 - float64(i)*0.05
	if score < 0.1 {
		score = 0.1
	}
	return score
}
