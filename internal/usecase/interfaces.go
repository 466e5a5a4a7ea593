package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/ledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Tx, account *domain.Account) error
	Exists(ctx context.Context, tx Tx, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks the existing accounts among ids in ascending id
	// order and returns them keyed by id. Unknown ids are absent from the map.
	GetByIDsForUpdate(ctx context.Context, tx Tx, ids []string) (map[string]*domain.Account, error)
	UpdateBalances(ctx context.Context, tx Tx, accounts []*domain.Account) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	// Create stores the transaction header. Entries are written separately.
	Create(ctx context.Context, tx Tx, txn *domain.Transaction) error
	Exists(ctx context.Context, tx Tx, id string) (bool, error)
	// GetByID returns the transaction with its entries in proposal order.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error)
}

// EntryRepository defines data access for entries.
type EntryRepository interface {
	CreateBatch(ctx context.Context, tx Tx, entries []*domain.Entry) error
	// AnyExist reports whether at least one of ids is already stored.
	AnyExist(ctx context.Context, tx Tx, ids []string) (bool, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

// LedgerRepository defines ledger-wide audit queries.
type LedgerRepository interface {
	UnbalancedTransactions(ctx context.Context) ([]string, error)
	NegativeBalanceAccounts(ctx context.Context) ([]string, error)
	BalanceDrifts(ctx context.Context) ([]domain.BalanceDrift, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Tx, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Tx is a unit of work against the ledger store.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager starts units of work.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations. Every key carries a generation that
// Invalidate advances, so a reader that loaded a value before an invalidation
// cannot write it back afterwards.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Generation returns the current generation of key, 0 if never invalidated.
	Generation(ctx context.Context, key string) (int64, error)
	// SetIfGeneration stores value only while key is still at generation gen.
	SetIfGeneration(ctx context.Context, key string, value []byte, ttl time.Duration, gen int64) (bool, error)
	// Invalidate removes keys and advances their generations.
	Invalidate(ctx context.Context, keys ...string) error
}

// IdempotencyPending is the value an IdempotencyStore holds for a key whose
// request has not finished yet.
const IdempotencyPending = "processing"

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so the request can be retried.
	Release(ctx context.Context, key string) error
}
