package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/ledger/internal/adapter/http"
	"github.com/iho/ledger/internal/adapter/http/handler"
	"github.com/iho/ledger/internal/adapter/http/middleware"
	"github.com/iho/ledger/internal/adapter/idgen"
	memoryRepo "github.com/iho/ledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/ledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ledger/internal/adapter/repository/redis"
	"github.com/iho/ledger/internal/infrastructure/config"
	"github.com/iho/ledger/internal/infrastructure/eventpublisher"
	"github.com/iho/ledger/internal/infrastructure/metrics"
	"github.com/iho/ledger/internal/infrastructure/postgres"
	"github.com/iho/ledger/internal/infrastructure/redis"
	"github.com/iho/ledger/internal/usecase"
)

// stores is the ledger store selected by STORE_DRIVER.
type stores struct {
	txManager    usecase.TxManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	entries      usecase.EntryRepository
	outbox       usecase.OutboxRepository
	ledger       usecase.LedgerRepository
	checks       map[string]handler.Check
	closers      []func()
}

// app is a fully wired server.
type app struct {
	handler     http.Handler
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*app, error) {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{closers: st.closers}

	idGen, err := idgen.New(cfg.IDFormat)
	if err != nil {
		a.Close()
		return nil, err
	}

	m := metrics.NewWithRegisterer(reg)

	// A nil *redisRepo.Cache must not reach the use cases as a non-nil
	// interface.
	var cache usecase.Cache
	var idempotency *middleware.IdempotencyMiddleware

	if cfg.RedisURL != "" {
		client, err := redis.NewClientWithRetry(ctx, cfg.RedisURL, cfg.DatabaseTimeout)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		st.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		cache = redisRepo.NewCache(client)
		idempotency = middleware.NewIdempotencyMiddleware(redisRepo.NewIdempotencyStore(client), cfg.IdempotencyTTL)
		logger.Info().Msg("connected to redis")
	} else {
		logger.Info().Msg("redis disabled: account cache and idempotency keys are off")
	}

	accountUC := usecase.NewAccountUseCase(st.txManager, st.accounts, st.outbox, cache, idGen, m)
	accountUC.SetCacheTTL(cfg.AccountCacheTTL)
	transactionUC := usecase.NewTransactionUseCase(st.txManager, st.accounts, st.transactions, st.entries, st.outbox, idGen, cache, m)
	entryUC := usecase.NewEntryUseCase(st.accounts, st.entries)
	ledgerUC := usecase.NewLedgerUseCase(st.ledger, m)

	if cfg.RateLimitEnabled() {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	if cfg.OutboxEnabled {
		a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: st.outbox,
			Publisher:  eventpublisher.NewLogPublisher(logger),
			Logger:     logger,
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
		})
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		TransactionHandler:    handler.NewTransactionHandler(transactionUC),
		EntryHandler:          handler.NewEntryHandler(entryUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		HealthHandler:         handler.NewHealthHandler(st.checks),
		Logger:                logger,
		IdempotencyMiddleware: idempotency,
		RateLimiter:           a.rateLimiter,
	})

	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		store := memoryRepo.New()
		logger.Warn().Msg("using in-memory store: data is lost on restart")
		return &stores{
			txManager:    memoryRepo.NewTxManager(store),
			accounts:     memoryRepo.NewAccountRepository(store),
			transactions: memoryRepo.NewTransactionRepository(store),
			entries:      memoryRepo.NewEntryRepository(store),
			outbox:       memoryRepo.NewOutboxRepository(store),
			ledger:       memoryRepo.NewLedgerRepository(store),
			checks:       map[string]handler.Check{},
		}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	return &stores{
		txManager:    postgresRepo.NewTxManager(pool, cfg.DatabaseLockTimeout),
		accounts:     postgresRepo.NewAccountRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		entries:      postgresRepo.NewEntryRepository(pool),
		outbox:       postgresRepo.NewOutboxRepository(pool),
		ledger:       postgresRepo.NewLedgerRepository(pool),
		checks: map[string]handler.Check{
			"postgres": pool.Ping,
		},
		closers: []func(){pool.Close},
	}, nil
}
