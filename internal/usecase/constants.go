package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds the validation and locking phase of a
	// unit of work, including the wait for contended account locks.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultCommitTimeout bounds the write phase. It starts from a context
	// detached from the caller so an abandoned request cannot interrupt it.
	DefaultCommitTimeout = 5 * time.Second

	// DefaultAccountCacheTTL is how long account reads stay cached
	DefaultAccountCacheTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
