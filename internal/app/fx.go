package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/deusflow/logistics-alert/internal/config"
	"github.com/deusflow/logistics-alert/internal/feishu"
	"github.com/deusflow/logistics-alert/internal/history"
	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/metrics"
	"github.com/deusflow/logistics-alert/internal/scheduler"
	"github.com/deusflow/logistics-alert/internal/search"
)

// MonitorAddr is the listen address of the monitoring server; empty disables it.
type MonitorAddr string

// ServeModule wires the long-running scheduler. It needs a *config.Config and
// a MonitorAddr supplied by the caller.
var ServeModule = fx.Module("serve",
	fx.Provide(
		NewProvider,
		provideHistory,
		NewPusher,
		provideBriefer,
		providePipeline,
		provideScheduler,
	),
	fx.Invoke(
		StartScheduler,
		StartMonitor,
	),
)

func provideHistory(lc fx.Lifecycle, cfg *config.Config) (*history.Store, error) {
	store, closeStore, err := OpenHistory(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return closeStore() },
	})
	return store, nil
}

// NewPusher returns the Feishu sender for the configured delivery mode.
func NewPusher(cfg *config.Config) Pusher {
	return feishu.NewSender(cfg.FeishuSender())
}

// provideBriefer returns nil when the brief is not configured or unavailable.
func provideBriefer(lc fx.Lifecycle, cfg *config.Config) Briefer {
	b, closeBriefer, err := NewBriefer(context.Background(), cfg)
	if err != nil {
		logger.Warn("AI brief disabled", "error", err)
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closeBriefer()
			return nil
		},
	})
	return b
}

type pipelineParams struct {
	fx.In
	Config   *config.Config
	Provider search.Provider
	Pusher   Pusher
	Store    *history.Store
	Briefer  Briefer
}

func providePipeline(p pipelineParams) *Pipeline {
	opts := []Option{WithMetrics(metrics.Global)}
	if p.Briefer != nil {
		opts = append(opts, WithBriefer(p.Briefer))
	}
	return NewPipeline(p.Provider, p.Pusher, p.Store, p.Config.Monitoring, p.Config.RetentionDays(), opts...)
}

// Jobs returns the daily weather and news checks.
func Jobs(cfg *config.Config, p *Pipeline) []scheduler.Job {
	return []scheduler.Job{
		{Name: "weather", At: cfg.Monitoring.WeatherCheckTime, Run: func(ctx context.Context) { p.Run(ctx, KindWeather) }},
		{Name: "news", At: cfg.Monitoring.NewsCheckTime, Run: func(ctx context.Context) { p.Run(ctx, KindNews) }},
	}
}

func provideScheduler(cfg *config.Config, p *Pipeline) (*scheduler.Scheduler, error) {
	return scheduler.New(cfg.PollInterval(), Jobs(cfg, p))
}

// StartScheduler runs the polling loop between fx start and stop.
func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	var (
		cancel context.CancelFunc
		done   = make(chan struct{})
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			logger.Info("scheduler started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

// StartMonitor exposes /health and /metrics when an address is configured.
func StartMonitor(lc fx.Lifecycle, addr MonitorAddr) {
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              string(addr),
		Handler:           MonitorHandler(metrics.Global),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			lis, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info("monitoring server listening", "addr", lis.Addr().String())
				if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("monitoring server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
