package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/meditrack/internal/assistant"
	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/internal/observability/metrics"
	"github.com/wolfman30/meditrack/pkg/logging"
)

func newTestRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()

	logger := logging.Discard()
	repo := frontdesk.NewInMemoryRepository()
	if err := frontdesk.SeedSampleData(context.Background(), repo, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	registry := prometheus.NewRegistry()
	svc := assistant.NewService(assistant.Deps{
		Repo:    repo,
		Metrics: metrics.NewEngineMetrics(registry),
		Logger:  logger,
	})

	cfg.Logger = logger
	cfg.Assistant = assistant.NewHandler(svc, repo, logger).WithGatherer(registry)
	cfg.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return New(&cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterHealthDegraded(t *testing.T) {
	router := newTestRouter(t, Config{HealthCheck: func(ctx context.Context) error {
		return errors.New("db unreachable")
	}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestRouterMountsAPI(t *testing.T) {
	router := newTestRouter(t, Config{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/doctors", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var doctors []frontdesk.Doctor
	if err := json.NewDecoder(rr.Body).Decode(&doctors); err != nil {
		t.Fatalf("decode doctors: %v", err)
	}
	if len(doctors) != 10 {
		t.Fatalf("expected 10 seeded doctors, got %d", len(doctors))
	}
}

func TestRouterRateLimitsAIEndpoints(t *testing.T) {
	router := newTestRouter(t, Config{AIRateLimit: 0.001, AIRateBurst: 1})

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"query":"find patient john"}`))
		req.Header.Set("X-Real-IP", "203.0.113.7")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("/api/ai/nlp-query"); code != http.StatusOK {
		t.Fatalf("expected first query to pass, got %d", code)
	}
	if code := send("/api/ai/nlp-query"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second query to be limited, got %d", code)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected non-AI routes to be unlimited, got %d", rr.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, Config{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/ai/predict-flow", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "meditrack_engine_flow_forecasts_total 1") {
		t.Fatalf("expected forecast counter in metrics output")
	}
}
