package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/deusflow/logistics-alert/internal/config"
	"github.com/deusflow/logistics-alert/internal/gemini"
	"github.com/deusflow/logistics-alert/internal/history"
	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/metrics"
	"github.com/deusflow/logistics-alert/internal/rss"
	"github.com/deusflow/logistics-alert/internal/search"
	"github.com/deusflow/logistics-alert/internal/serpapi"
	"github.com/deusflow/logistics-alert/internal/tavily"
)

// NewProvider returns the search provider selected by search.provider.
func NewProvider(cfg *config.Config) (search.Provider, error) {
	timeout := cfg.SearchTimeout()
	switch cfg.Search.Provider {
	case "tavily":
		return tavily.NewClient(cfg.TavilyAPIKey, timeout), nil
	case "serpapi":
		return serpapi.NewClient(cfg.SerpAPIKey, timeout), nil
	case "rss":
		return rss.NewGoogleNews(timeout), nil
	}
	return nil, &config.Error{Field: "search.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Search.Provider)}
}

// NewBackend returns the history backend selected by storage.backend.
func NewBackend(cfg *config.Config) (history.Backend, error) {
	switch cfg.Storage.Backend {
	case "file":
		return history.NewFileBackend(cfg.Storage.SentNewsFile), nil
	case "sqlite":
		return history.NewSQLiteBackend(cfg.Storage.SQLiteFile)
	case "postgres":
		return history.NewPostgresBackend(cfg.Storage.DatabaseURL)
	}
	return nil, &config.Error{Field: "storage.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Storage.Backend)}
}

// OpenHistory loads the sent-news store. Only configuration errors are
// returned; a backend that cannot be opened yields an empty in-memory store.
// The returned close func releases database connections.
func OpenHistory(cfg *config.Config) (*history.Store, func() error, error) {
	backend, err := NewBackend(cfg)
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return nil, nil, err
	}
	if err != nil {
		// history problems never stop a run; dedup falls back to memory
		logger.Error("history backend unavailable", "backend", cfg.Storage.Backend, "error", err)
		backend = history.Unavailable(cfg.Storage.Backend, err)
	}
	closer := func() error { return nil }
	if c, ok := backend.(io.Closer); ok {
		closer = c.Close
	}
	logger.Info("history backend ready", "backend", backend.String())
	return history.Open(backend), closer, nil
}

// NewBriefer returns nil when no Gemini key is configured.
func NewBriefer(ctx context.Context, cfg *config.Config) (Briefer, func(), error) {
	if cfg.GeminiAPIKey == "" {
		return nil, func() {}, nil
	}
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.Gemini.Model, cfg.Gemini.MaxDailyCalls)
	if err != nil {
		return nil, nil, err
	}
	metrics.Global.AddSource("gemini_quota", client.QuotaStats)
	return client, client.Close, nil
}

// Build wires a pipeline for a one-shot run; extra options are applied last.
// The caller must call the returned cleanup func.
func Build(ctx context.Context, cfg *config.Config, extra ...Option) (*Pipeline, func(), error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := OpenHistory(cfg)
	if err != nil {
		return nil, nil, err
	}

	briefer, closeBriefer, err := NewBriefer(ctx, cfg)
	if err != nil {
		// the brief is optional
		logger.Warn("AI brief disabled", "error", err)
		briefer, closeBriefer = nil, func() {}
	}

	var opts []Option
	if briefer != nil {
		opts = append(opts, WithBriefer(briefer))
	}
	opts = append(opts, extra...)
	pipeline := NewPipeline(provider, NewPusher(cfg), store,
		cfg.Monitoring, cfg.RetentionDays(), opts...)

	cleanup := func() {
		closeBriefer()
		if err := closeStore(); err != nil {
			logger.Warn("failed to close history backend", "error", err)
		}
	}
	return pipeline, cleanup, nil
}
