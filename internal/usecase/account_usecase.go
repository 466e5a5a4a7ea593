package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/metrics"
)

const accountCachePrefix = "account:"

func accountCacheKey(id string) string {
	return accountCachePrefix + id
}

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TxManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	cache       Cache
	cacheTTL    time.Duration
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase. cache and metrics may be nil.
func NewAccountUseCase(
	txManager TxManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	cache Cache,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		cache:       cache,
		cacheTTL:    DefaultAccountCacheTTL,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// SetCacheTTL overrides how long account reads stay cached.
func (uc *AccountUseCase) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	ID        string
	Name      string
	Direction domain.Direction
}

// CreateAccount opens a new account with a zero balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if input.ID != "" {
		if err := domain.ValidateID(input.ID); err != nil {
			return nil, err
		}
	}
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if !input.Direction.IsValid() {
		return nil, domain.ErrInvalidDirection
	}

	id := input.ID
	if id == "" {
		id = uc.idGen.Generate()
	}
	account := domain.NewAccount(id, input.Name, input.Direction, time.Now().UTC())

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, storeError("begin", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	exists, err := uc.accountRepo.Exists(ctx, tx, account.ID)
	if err != nil {
		return nil, storeError("check account id", err)
	}
	if exists {
		return nil, domain.NewAlreadyExistsError(domain.EntityAccount, account.ID)
	}

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, storeError("insert account", err)
	}

	if err := uc.outboxRepo.Create(ctx, tx, domain.NewAccountCreatedEvent(uc.idGen.Generate(), account)); err != nil {
		return nil, storeError("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit", err)
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	zerolog.Ctx(ctx).Info().
		Str("account_id", account.ID).
		Str("direction", account.Direction.String()).
		Msg("account created")

	return account, nil
}

// GetAccount retrieves an account by ID, reading through the cache when one
// is configured.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if account, ok := uc.cachedAccount(ctx, id); ok {
		return account, nil
	}

	// The generation must be read before the row. A commit that invalidates
	// the account in between advances it and the write below is skipped.
	gen, cacheable := uc.cacheGeneration(ctx, id)

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, passBusinessError("get account", err)
	}

	if cacheable {
		uc.cacheAccount(ctx, account, gen)
	}

	return account, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts ordered by id.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	accounts, err := uc.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError("list accounts", err)
	}

	return accounts, nil
}

func (uc *AccountUseCase) cachedAccount(ctx context.Context, id string) (*domain.Account, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, accountCacheKey(id))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", id).Msg("account cache read failed")
		}
		uc.recordCache("miss")
		return nil, false
	}

	var cached cachedAccount
	if err := json.Unmarshal(data, &cached); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", id).Msg("discarding corrupt cached account")
		uc.recordCache("miss")
		return nil, false
	}

	uc.recordCache("hit")
	return cached.toDomain(), true
}

func (uc *AccountUseCase) cacheGeneration(ctx context.Context, id string) (int64, bool) {
	if uc.cache == nil {
		return 0, false
	}

	gen, err := uc.cache.Generation(ctx, accountCacheKey(id))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", id).Msg("account cache generation read failed")
		return 0, false
	}
	return gen, true
}

func (uc *AccountUseCase) cacheAccount(ctx context.Context, account *domain.Account, gen int64) {
	data, err := json.Marshal(cachedAccountFromDomain(account))
	if err != nil {
		return
	}

	written, err := uc.cache.SetIfGeneration(ctx, accountCacheKey(account.ID), data, uc.cacheTTL, gen)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", account.ID).Msg("account cache write failed")
		return
	}
	if !written {
		zerolog.Ctx(ctx).Debug().Str("account_id", account.ID).Msg("account changed during read, not cached")
	}
}

func (uc *AccountUseCase) recordCache(result string) {
	if uc.metrics != nil {
		uc.metrics.AccountCache.WithLabelValues(result).Inc()
	}
}

type cachedAccount struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Direction domain.Direction `json:"direction"`
	Balance   domain.Amount    `json:"balance"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func cachedAccountFromDomain(a *domain.Account) cachedAccount {
	return cachedAccount{
		ID:        a.ID,
		Name:      a.Name,
		Direction: a.Direction,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (c cachedAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:        c.ID,
		Name:      c.Name,
		Direction: c.Direction,
		Balance:   c.Balance,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
