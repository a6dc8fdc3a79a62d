package serpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deusflow/logistics-alert/internal/search"
)

func TestSearchParsesNewsResults(t *testing.T) {
	var params map[string]string
	c := NewClient("key", time.Second)
	c.fetch = func(p map[string]string, apiKey string) (map[string]interface{}, error) {
		params = p
		return map[string]interface{}{
			"news_results": []interface{}{
				map[string]interface{}{"title": "Rail strike in France", "link": "https://a", "snippet": "SNCF"},
				map[string]interface{}{"title": "", "link": "https://skip"},
				"garbage",
				map[string]interface{}{"title": "Snow on A7", "link": "https://b", "snippet": "Lyon"},
				map[string]interface{}{"title": "Third", "link": "https://c"},
			},
		}, nil
	}

	results, err := c.Search(context.Background(), search.Request{Query: "q", TimeRange: search.Week, MaxResults: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if params["tbm"] != "nws" || params["tbs"] != "qdr:w" || params["q"] != "q" {
		t.Errorf("unexpected params: %v", params)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Score != 1.0 || results[1].Score != 0.95 {
		t.Errorf("rank scores = %v, %v", results[0].Score, results[1].Score)
	}
	if results[1].Title != "Snow on A7" || results[1].Content != "Lyon" {
		t.Errorf("unexpected second result: %+v", results[1])
	}
}

func TestSearchErrors(t *testing.T) {
	if _, err := NewClient("", time.Second).Search(context.Background(), search.Request{Query: "q"}); err == nil {
		t.Error("expected error without API key")
	}

	c := NewClient("key", time.Second)
	c.fetch = func(map[string]string, string) (map[string]interface{}, error) {
		return nil, errors.New("boom")
	}
	if _, err := c.Search(context.Background(), search.Request{Query: "q"}); err == nil {
		t.Error("expected fetch error")
	}

	c.fetch = func(map[string]string, string) (map[string]interface{}, error) {
		return map[string]interface{}{"error": "Invalid API key."}, nil
	}
	if _, err := c.Search(context.Background(), search.Request{Query: "q"}); err == nil {
		t.Error("expected API error")
	}
}

func TestSearchTimeout(t *testing.T) {
	c := NewClient("key", 20*time.Millisecond)
	c.fetch = func(map[string]string, string) (map[string]interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	}
	if _, err := c.Search(context.Background(), search.Request{Query: "q"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSearchNoNewsResults(t *testing.T) {
	c := NewClient("key", time.Second)
	c.fetch = func(map[string]string, string) (map[string]interface{}, error) {
		return map[string]interface{}{"search_metadata": map[string]interface{}{}}, nil
	}
	results, err := c.Search(context.Background(), search.Request{Query: "q"})
	if err != nil || len(results) != 0 {
		t.Errorf("expected empty results, got %v, %v", results, err)
	}
}
