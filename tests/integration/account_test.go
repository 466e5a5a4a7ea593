package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	adaptershttp "github.com/iho/ledger/internal/adapter/http"
	"github.com/iho/ledger/internal/adapter/http/dto"
	"github.com/iho/ledger/internal/adapter/http/handler"
	"github.com/iho/ledger/internal/adapter/http/middleware"
	redisrepo "github.com/iho/ledger/internal/adapter/repository/redis"
	"github.com/iho/ledger/internal/domain"
	infraredis "github.com/iho/ledger/internal/infrastructure/redis"
	"github.com/iho/ledger/tests/testutil"
)

func TestAccountAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	mr := miniredis.RunT(t)
	redisClient, err := infraredis.NewClient(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	engine := testDB.NewEngine(time.Second)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(engine.Accounts),
		TransactionHandler:    handler.NewTransactionHandler(engine.Transactions),
		EntryHandler:          handler.NewEntryHandler(engine.Entries),
		LedgerHandler:         handler.NewLedgerHandler(engine.Ledger),
		HealthHandler:         handler.NewHealthHandler(map[string]handler.Check{"postgres": testDB.Pool.Ping}),
		Logger:                zerolog.Nop(),
		IdempotencyMiddleware: middleware.NewIdempotencyMiddleware(redisrepo.NewIdempotencyStore(redisClient), 0),
	})

	send := func(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			_ = json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("create account with valid data", func(t *testing.T) {
		rec := send(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{
			ID:        "cash",
			Name:      "Cash",
			Direction: domain.DirectionDebit,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp dto.AccountResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ID != "cash" || !resp.Balance.IsZero() {
			t.Fatalf("unexpected account: %+v", resp)
		}
	})

	t.Run("generated id", func(t *testing.T) {
		rec := send(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{Direction: domain.DirectionCredit})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}

		var resp dto.AccountResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if len(resp.ID) != 26 {
			t.Fatalf("expected a ULID, got %q", resp.ID)
		}
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		rec := send(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{ID: "cash", Direction: domain.DirectionCredit})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("idempotent create replays", func(t *testing.T) {
		body := dto.CreateAccountRequest{ID: "revenue", Direction: domain.DirectionCredit}
		first := send(http.MethodPost, "/api/v1/accounts", body, middleware.IdempotencyKeyHeader, "acc-revenue")
		second := send(http.MethodPost, "/api/v1/accounts", body, middleware.IdempotencyKeyHeader, "acc-revenue")

		if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
			t.Fatalf("expected both 201, got %d and %d", first.Code, second.Code)
		}
		if second.Header().Get(middleware.IdempotencyReplayHeader) != "true" {
			t.Fatal("expected replayed response")
		}
	})

	t.Run("get account by ID", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/v1/accounts/cash", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("get non-existent account returns 404", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/v1/accounts/missing", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("list accounts", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/v1/accounts?limit=2", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp dto.ListAccountsResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Count != 2 {
			t.Fatalf("expected a page of 2, got %d", resp.Count)
		}
	})

	t.Run("readiness pings postgres", func(t *testing.T) {
		rec := send(http.MethodGet, "/ready", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
