package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/deusflow/logistics-alert/internal/news"
	"github.com/deusflow/logistics-alert/internal/ratelimit"
)

func TestParseBrief(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		zh, en  string
		wantErr bool
	}{
		{
			name: "plain labels",
			in:   "中文: 鹿特丹港罢工导致延误。\n\nENGLISH: A strike in Rotterdam delays freight.",
			zh:   "鹿特丹港罢工导致延误。",
			en:   "A strike in Rotterdam delays freight.",
		},
		{
			name: "bold labels and fullwidth colon",
			in:   "**中文：** 汉堡大雪。\n继续关注。\n**English:** Heavy snow in Hamburg.",
			zh:   "汉堡大雪。 继续关注。",
			en:   "Heavy snow in Hamburg.",
		},
		{
			name:    "missing english",
			in:      "中文: 只有中文",
			wantErr: true,
		},
		{
			name:    "no labels",
			in:      "Something unstructured",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := parseBrief(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", b)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBrief: %v", err)
			}
			if b.Chinese != tt.zh || b.English != tt.en {
				t.Errorf("got %+v, want zh=%q en=%q", b, tt.zh, tt.en)
			}
		})
	}
}

func newFakeClient(generate func(context.Context, string) (string, error), quota int) *Client {
	return &Client{
		model:    DefaultModel,
		quota:    ratelimit.NewDailyQuota("gemini", quota),
		generate: generate,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestBrief(t *testing.T) {
	var prompt string
	c := newFakeClient(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "中文: 港口罢工。\n(Note: generated text)\nENGLISH: Port strike.", nil
	}, 0)

	items := []news.Item{{Title: "Port strike in Antwerp", Content: "<p>Dockers walk out</p>"}}
	out, err := c.Brief(context.Background(), items)
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if out != "**中文：** 港口罢工。\n\n**English:** Port strike." {
		t.Errorf("unexpected brief %q", out)
	}
	if !strings.Contains(prompt, "1. Port strike in Antwerp") || !strings.Contains(prompt, "Dockers walk out") {
		t.Errorf("prompt missing item text:\n%s", prompt)
	}
}

func TestBriefErrors(t *testing.T) {
	failing := newFakeClient(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded upstream")
	}, 0)
	if _, err := failing.Brief(context.Background(), []news.Item{{Title: "x"}}); err == nil {
		t.Error("expected generate error")
	}

	calls := 0
	limited := newFakeClient(func(context.Context, string) (string, error) {
		calls++
		return "中文: a\nENGLISH: b", nil
	}, 1)
	items := []news.Item{{Title: "x"}}
	if _, err := limited.Brief(context.Background(), items); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := limited.Brief(context.Background(), items); err == nil {
		t.Error("second call should hit the daily quota")
	}
	if calls != 1 {
		t.Errorf("model called %d times, want 1", calls)
	}
	if stats := limited.QuotaStats(); stats["used"] != 1 || stats["limit"] != 1 {
		t.Errorf("quota stats = %v", stats)
	}

	out, err := limited.Brief(context.Background(), nil)
	if err != nil || out != "" {
		t.Errorf("empty input should produce no brief, got %q, %v", out, err)
	}
}
