package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/feed"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/httpx"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/ingest"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/manuallog"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/notify"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/query"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/report"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/sched"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
)

func main() {
	// .env is a dev convenience; deployments set the real environment.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("invalid feed policy", slog.String("err", err.Error()))
		os.Exit(1)
	}

	httpc := ingest.NewHTTPClient(cfg.HTTPTimeout)
	ml := manuallog.New(cfg.DataDir, logger)
	st := store.NewMemoryStore()
	src := feed.BuildSources(cfg, httpc, ml, logger)
	wr := report.NewWriter(cfg.OutputDir, logger)

	var notifier feed.Notifier
	if sl := notify.NewSlack(cfg.SlackToken, cfg.SlackChannel, logger); sl != nil {
		notifier = sl
	}

	fd := feed.New(policy, src, st, wr, notifier, logger)
	qs := query.NewService(st)
	hm := httpx.NewHTTPMetrics(prometheus.DefaultRegisterer, "marketing-feed")

	r := httpx.NewRouter(logger, httpx.Deps{
		Feed:        fd,
		Query:       qs,
		Store:       st,
		Manual:      ml,
		Metrics:     hm,
		DefaultDays: policy.LookbackDays,
	})

	if cfg.RefreshCron != "" {
		sc, err := sched.New(cfg.RefreshCron, policy.LookbackDays, func(ctx context.Context, days int) error {
			_, err := fd.Generate(ctx, days)
			return err
		}, logger)
		if err != nil {
			logger.Error("invalid refresh schedule", slog.String("err", err.Error()))
			os.Exit(1)
		}
		sc.Start()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
