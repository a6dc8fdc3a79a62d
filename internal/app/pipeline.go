package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/logistics-alert/internal/config"
	"github.com/deusflow/logistics-alert/internal/history"
	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/metrics"
	"github.com/deusflow/logistics-alert/internal/news"
	"github.com/deusflow/logistics-alert/internal/report"
	"github.com/deusflow/logistics-alert/internal/search"
)

const (
	weatherMaxResults = 10
	newsMaxResults    = 15
)

// Pusher delivers a rendered report. A nil error means the message was accepted.
type Pusher interface {
	Send(ctx context.Context, title, content string) error
}

// Briefer writes the optional AI summary for a news report.
type Briefer interface {
	Brief(ctx context.Context, items []news.Item) (string, error)
}

// Kind selects which checks a run performs.
type Kind string

const (
	KindWeather Kind = "weather"
	KindNews    Kind = "news"
	KindBoth    Kind = "both"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindWeather, KindNews, KindBoth:
		return k, nil
	}
	return "", fmt.Errorf("unknown check %q (want weather, news or both)", s)
}

// Pipeline runs the weather and news checks against one search provider,
// one push channel and the sent-news history.
type Pipeline struct {
	search        search.Provider
	push          Pusher
	store         *history.Store
	monitoring    config.MonitoringConfig
	retentionDays int
	brief         Briefer
	dryRun        bool
	metrics       *metrics.Metrics
	now           func() time.Time
	log           *slog.Logger
}

type Option func(*Pipeline)

func WithBriefer(b Briefer) Option {
	return func(p *Pipeline) { p.brief = b }
}

// WithDryRun prints reports to w instead of pushing them and leaves the
// history untouched: nothing is pruned or marked sent.
func WithDryRun(w io.Writer) Option {
	return func(p *Pipeline) {
		p.push = printer{w: w}
		p.dryRun = true
	}
}

type printer struct {
	w io.Writer
}

func (pr printer) Send(_ context.Context, title, content string) error {
	_, err := fmt.Fprintf(pr.w, "===== %s =====\n\n%s\n\n", title, content)
	return err
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(provider search.Provider, push Pusher, store *history.Store, monitoring config.MonitoringConfig, retentionDays int, opts ...Option) *Pipeline {
	p := &Pipeline{
		search:        provider,
		push:          push,
		store:         store,
		monitoring:    monitoring,
		retentionDays: retentionDays,
		metrics:       metrics.Global,
		now:           time.Now,
		log:           logger.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WeatherQuery builds "(C1 OR C2) logistics transport weather k1 k2".
func WeatherQuery(m config.MonitoringConfig) string {
	return fmt.Sprintf("(%s) logistics transport weather %s",
		strings.Join(m.Countries, " OR "), strings.Join(m.WeatherKeywords, " "))
}

// NewsQuery builds "(C1 OR C2) logistics (k1 OR k2)".
func NewsQuery(m config.MonitoringConfig) string {
	return fmt.Sprintf("(%s) logistics (%s)",
		strings.Join(m.Countries, " OR "), strings.Join(m.NewsKeywords, " OR "))
}

var sourceLabels = map[string]string{
	"tavily":  "Tavily Real-time Search",
	"serpapi": "SerpAPI Google News",
	"rss":     "Google News RSS",
}

func (p *Pipeline) reportOptions() report.Options {
	source, ok := sourceLabels[p.search.Name()]
	if !ok {
		source = p.search.Name()
	}
	return report.Options{
		Now:       p.now(),
		Countries: p.monitoring.Countries,
		Source:    source,
	}
}

func (p *Pipeline) runSearch(ctx context.Context, query string, limit int) ([]search.Result, error) {
	p.metrics.IncrementSearches()
	p.log.Info("searching", "provider", p.search.Name(), "query", query)

	results, err := p.search.Search(ctx, search.Request{
		Query:      query,
		TimeRange:  search.Day,
		MaxResults: limit,
	})
	if err != nil {
		p.metrics.IncrementSearchFailures()
		return nil, fmt.Errorf("search %s: %w", p.search.Name(), err)
	}
	return results, nil
}

func (p *Pipeline) deliver(ctx context.Context, title, content string) error {
	if err := p.push.Send(ctx, title, content); err != nil {
		p.metrics.IncrementPushFailures()
		return fmt.Errorf("push %q: %w", title, err)
	}
	p.metrics.IncrementReportsPushed()
	return nil
}

// CheckWeather searches for weather alerts and always pushes a report, even an
// empty one. A search failure skips the push.
func (p *Pipeline) CheckWeather(ctx context.Context) error {
	p.log.Info("weather check started")

	results, err := p.runSearch(ctx, WeatherQuery(p.monitoring), weatherMaxResults)
	if err != nil {
		return err
	}
	p.log.Info("weather results", "count", len(results))

	content := report.Weather(results, p.reportOptions())
	if err := p.deliver(ctx, report.WeatherTitle, content); err != nil {
		return err
	}
	p.log.Info("weather report pushed", "alerts", len(results))
	return nil
}

// CheckNews pushes incidents not seen before and records them as sent only
// after the push succeeded. It returns the number of items delivered.
func (p *Pipeline) CheckNews(ctx context.Context) (int, error) {
	p.log.Info("news check started")

	if !p.dryRun {
		if removed, err := p.store.Prune(p.retentionDays); err != nil {
			p.metrics.IncrementPersistFailures()
			p.log.Error("failed to prune history", "error", err)
		} else if removed > 0 {
			p.log.Info("history pruned", "removed", removed, "retention_days", p.retentionDays)
		}
	}

	results, err := p.runSearch(ctx, NewsQuery(p.monitoring), newsMaxResults)
	if err != nil {
		return 0, err
	}

	items := news.FromResults(results)
	fresh := p.store.FilterNew(items)
	p.metrics.AddCandidates(len(items), len(items)-len(fresh))
	p.log.Info("news candidates", "found", len(items), "new", len(fresh))

	if len(fresh) == 0 {
		p.log.Info("no new incidents, nothing to push")
		return 0, nil
	}

	opts := p.reportOptions()
	if p.brief != nil {
		if brief, err := p.brief.Brief(ctx, fresh); err != nil {
			p.log.Warn("AI brief skipped", "error", err)
		} else {
			opts.Brief = brief
		}
	}

	if err := p.deliver(ctx, report.NewsTitle, report.News(fresh, opts)); err != nil {
		return 0, err
	}

	if p.dryRun {
		p.log.Info("dry run, history not updated", "items", len(fresh))
		return len(fresh), nil
	}

	if err := p.store.MarkSent(history.FingerprintsOf(fresh)); err != nil {
		// the push went out; keep going with the in-memory history
		p.metrics.IncrementPersistFailures()
		p.log.Error("failed to record sent news", "error", err)
	}
	p.metrics.AddNewsDelivered(len(fresh))
	p.log.Info("news report pushed", "items", len(fresh))
	return len(fresh), nil
}

// Run performs the requested checks, weather first. Failures are logged and
// never stop the other check.
func (p *Pipeline) Run(ctx context.Context, kind Kind) {
	start := time.Now()
	failed := false

	if kind == KindWeather || kind == KindBoth {
		if err := p.CheckWeather(ctx); err != nil {
			failed = true
			p.metrics.SetError(err.Error())
			p.log.Error("weather check failed", "error", err)
		}
	}
	if kind == KindNews || kind == KindBoth {
		if _, err := p.CheckNews(ctx); err != nil {
			failed = true
			p.metrics.SetError(err.Error())
			p.log.Error("news check failed", "error", err)
		}
	}

	p.metrics.RecordCheckDuration(time.Since(start))
	if !failed {
		p.metrics.SetLastRun()
	}
}
