package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/meditrack/internal/api/router"
	"github.com/wolfman30/meditrack/internal/app/bootstrap"
	"github.com/wolfman30/meditrack/internal/assistant"
	appconfig "github.com/wolfman30/meditrack/internal/config"
	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/internal/inventory"
	"github.com/wolfman30/meditrack/internal/observability/metrics"
	"github.com/wolfman30/meditrack/pkg/logging"
)

// application holds everything main starts and stops.
type application struct {
	handler http.Handler
	service *assistant.Service
	storage *bootstrap.Storage
	redis   *redis.Client
	watcher *inventory.Watcher // nil when alert e-mail is off
}

func (a *application) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.storage.Close()
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func newApplication(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	storage, err := bootstrap.BuildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &application{storage: storage}

	if cfg.SeedSampleData || storage.Pool == nil {
		if err := frontdesk.SeedSampleData(ctx, storage.Repo, logger.Component("seed")); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed sample data: %w", err)
		}
	}

	registry, metricsHandler := setupMetrics()
	engineMetrics := metrics.NewEngineMetrics(registry)

	deps := bootstrap.BuildAssistantDeps(cfg, engineMetrics, logger)
	deps.Repo = storage.Repo
	if storage.QueryLog != nil {
		deps.QueryLog = storage.QueryLog
	}
	app.service = assistant.NewService(deps)

	if _, err := app.service.Train(ctx); err != nil {
		logger.Warn("initial slot model training failed", "error", err)
	}

	app.redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	notifier, err := bootstrap.BuildStockNotifier(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if notifier != nil {
		app.watcher = inventory.NewWatcher(deps.Alerter, app.service, notifier, app.redis, logger.Component("stock-watcher")).
			WithInterval(cfg.StockWatchInterval).
			WithObserver(engineMetrics)
	}

	api := assistant.NewHandler(app.service, storage.Repo, logger.Component("api")).WithGatherer(registry)
	app.handler = router.New(&router.Config{
		Logger:             logger,
		Assistant:          api,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AIRateLimit:        cfg.AIRateLimit,
		AIRateBurst:        cfg.AIRateBurst,
		HealthCheck:        storage.Ping,
	})
	return app, nil
}
