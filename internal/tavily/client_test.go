package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deusflow/logistics-alert/internal/search"
)

func TestSearch(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"query":"q","response_time":0.4,"results":[
			{"title":"Storm closes A1","url":"https://example.com/a1","content":"Heavy snow","score":0.91},
			{"title":"Port strike","url":"https://example.com/p","content":"Antwerp","score":0.42}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("tvly-key", time.Second).WithEndpoint(srv.URL)
	results, err := c.Search(context.Background(), search.Request{Query: "q", TimeRange: search.Week, MaxResults: 15})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got.APIKey != "tvly-key" || got.Query != "q" || got.MaxResults != 15 {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.SearchDepth != "basic" || got.TimeRange != "week" || got.Days != 7 {
		t.Errorf("unexpected search window: %+v", got)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Storm closes A1" || results[0].Score != 0.91 || results[1].Content != "Antwerp" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad", time.Second).WithEndpoint(srv.URL)
	if _, err := c.Search(context.Background(), search.Request{Query: "q"}); err == nil {
		t.Error("expected error on 401")
	}
}

func TestSearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient("k", 50*time.Millisecond).WithEndpoint(srv.URL)
	if _, err := c.Search(context.Background(), search.Request{Query: "q"}); err == nil {
		t.Error("expected timeout error")
	}
}
