package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledger/internal/adapter/http/middleware"
	"github.com/iho/ledger/internal/infrastructure/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("STORE_DRIVER", config.StoreDriverMemory)
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func post(t *testing.T, h http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewAppWithMemoryStore(t *testing.T) {
	cfg := memoryConfig(t)

	a, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.publisher)
	require.Nil(t, a.rateLimiter)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusCreated, post(t, a.handler, "/api/v1/accounts", `{"id":"cash","direction":"debit"}`).Code)
	require.Equal(t, http.StatusCreated, post(t, a.handler, "/api/v1/accounts", `{"id":"equity","direction":"credit"}`).Code)

	rec = post(t, a.handler, "/api/v1/transactions", `{"entries":[
		{"account_id":"cash","amount":10,"direction":"debit"},
		{"account_id":"equity","amount":10,"direction":"credit"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestNewAppWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := memoryConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RateLimitRPS = 100
	cfg.RateLimitBurst = 100
	cfg.OutboxEnabled = false

	a, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	require.Nil(t, a.publisher)
	require.NotNil(t, a.rateLimiter)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"redis":"ok"`)

	first := post(t, a.handler, "/api/v1/accounts", `{"id":"cash","direction":"debit"}`, middleware.IdempotencyKeyHeader, "k")
	second := post(t, a.handler, "/api/v1/accounts", `{"id":"cash","direction":"debit"}`, middleware.IdempotencyKeyHeader, "k")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get(middleware.IdempotencyReplayHeader))

	// Reads go through the cache.
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/cash", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, mr.Exists("cache:account:cash"))
}

func TestNewAppRedisUnreachable(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1"
	cfg.DatabaseTimeout = 0

	_, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis")
}

func TestCleanupLimitersStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		cleanupLimiters(ctx, func(time.Duration) int { return 0 }, zerolog.Nop())
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
