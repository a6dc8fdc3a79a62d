package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/logistics-alert/internal/search"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>q - Google News</title>
<item><title>Dock strike halts Antwerp terminals</title><link>https://news.example/1</link>
<description>&lt;a href="https://news.example/1"&gt;Dock strike halts &lt;b&gt;Antwerp&lt;/b&gt;&lt;/a&gt;</description></item>
<item><title>Storm warning for Hamburg</title><link>https://news.example/2</link><description></description></item>
<item><title>Third item</title><link>https://news.example/3</link></item>
</channel></rss>`

func TestGoogleNewsSearch(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	p := NewGoogleNews(time.Second).WithBaseURL(srv.URL)
	results, err := p.Search(context.Background(), search.Request{Query: "(Germany OR Belgium) logistics", MaxResults: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got := query.Get("q"); got != "(Germany OR Belgium) logistics when:1d" {
		t.Errorf("q = %q", got)
	}
	if query.Get("ceid") != "US:en" {
		t.Errorf("ceid = %q", query.Get("ceid"))
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://news.example/1" || results[0].Score != 1.0 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if strings.Contains(results[0].Content, "<b>") || !strings.Contains(results[0].Content, "Antwerp") {
		t.Errorf("description not converted to markdown: %q", results[0].Content)
	}
	if results[1].Content != "" {
		t.Errorf("empty description should stay empty, got %q", results[1].Content)
	}
}

func TestGoogleNewsSearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewGoogleNews(time.Second).WithBaseURL(srv.URL)
	if _, err := p.Search(context.Background(), search.Request{Query: "q"}); err == nil {
		t.Error("expected error")
	}
}

func TestFeedURLWindow(t *testing.T) {
	p := NewGoogleNews(0)
	u := p.FeedURL(search.Request{Query: "port strike", TimeRange: search.Week})
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatal(err)
	}
	if got := parsed.Query().Get("q"); got != "port strike when:7d" {
		t.Errorf("q = %q", got)
	}
	if !strings.HasPrefix(u, DefaultBaseURL) {
		t.Errorf("unexpected base: %s", u)
	}
}
