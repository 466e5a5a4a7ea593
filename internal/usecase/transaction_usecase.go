package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/metrics"
)

// SubmitTransactionInput is a proposed transaction.
type SubmitTransactionInput struct {
	ID      string
	Name    string
	Entries []domain.EntryProposal
}

// ListTransactionsInput contains pagination for listing transactions.
type ListTransactionsInput struct {
	Limit  int
	Offset int
}

// TransactionUseCase accepts transactions into the ledger and serves
// committed ones back.
type TransactionUseCase struct {
	txManager       TxManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	entryRepo       EntryRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	cache           Cache
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewTransactionUseCase creates a new TransactionUseCase. cache and metrics
// may be nil.
func NewTransactionUseCase(
	txManager TxManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	cache Cache,
	metrics *metrics.Metrics,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		entryRepo:       entryRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		cache:           cache,
		metrics:         metrics,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SubmitTransaction validates a proposal, projects its effect on the touched
// balances and commits the transaction, its entries and the new balances
// atomically.
//
// Business rule failures are *domain.LedgerError values. Store faults wrap
// domain.ErrStoreFailure and lock contention wraps
// domain.ErrConcurrencyConflict. Nothing is written unless every check
// passes.
func (uc *TransactionUseCase) SubmitTransaction(ctx context.Context, input SubmitTransactionInput) (*domain.Transaction, error) {
	start := time.Now()

	txn, err := uc.submit(ctx, domain.TransactionProposal{
		ID:      input.ID,
		Name:    input.Name,
		Entries: input.Entries,
	})

	logger := zerolog.Ctx(ctx)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.TransactionsRejected.WithLabelValues(domain.ErrorKind(err)).Inc()
		}
		logger.Debug().Err(err).Str("transaction_id", input.ID).Msg("transaction rejected")
		return nil, err
	}

	if uc.metrics != nil {
		debits, _ := txn.Totals()
		uc.metrics.TransactionsCommitted.Inc()
		uc.metrics.TransactionDuration.Observe(time.Since(start).Seconds())
		uc.metrics.TransactionEntries.Observe(float64(len(txn.Entries)))
		uc.metrics.TransactionVolume.Observe(debits.Float64())
	}

	logger.Info().
		Str("transaction_id", txn.ID).
		Int("entries", len(txn.Entries)).
		Msg("transaction committed")

	return txn, nil
}

func (uc *TransactionUseCase) submit(ctx context.Context, proposal domain.TransactionProposal) (*domain.Transaction, error) {
	if err := domain.ValidateProposalFormat(proposal); err != nil {
		return nil, err
	}

	if err := domain.ValidateEntries(proposal.Entries); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, storeError("begin", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(txCtx)) }()

	if proposal.ID != "" {
		exists, err := uc.transactionRepo.Exists(txCtx, tx, proposal.ID)
		if err != nil {
			return nil, storeError("check transaction id", err)
		}
		if exists {
			return nil, domain.NewAlreadyExistsError(domain.EntityTransaction, proposal.ID)
		}
	}

	if entryIDs := domain.SuppliedEntryIDs(proposal.Entries); len(entryIDs) > 0 {
		exists, err := uc.entryRepo.AnyExist(txCtx, tx, entryIDs)
		if err != nil {
			return nil, storeError("check entry ids", err)
		}
		if exists {
			return nil, domain.NewAlreadyExistsError(domain.EntityEntry)
		}
	}

	// Sorted ids give every submission the same lock order.
	accountIDs := domain.ReferencedAccountIDs(proposal.Entries)
	accounts, err := uc.accountRepo.GetByIDsForUpdate(txCtx, tx, accountIDs)
	if err != nil {
		return nil, storeError("lock accounts", err)
	}
	if missing := domain.MissingAccounts(accountIDs, accounts); len(missing) > 0 {
		return nil, domain.NewAccountsNotFoundError(missing)
	}

	now := uc.now()
	touched, err := domain.ProjectBalances(accounts, proposal.Entries, now)
	if err != nil {
		return nil, err
	}

	txn := domain.NewTransaction(proposal, uc.idGen.Generate, now)
	event := domain.NewTransactionCommittedEvent(uc.idGen.Generate(), txn, touched)

	// Past this point the caller can no longer cancel the submission.
	commitCtx, cancelCommit := context.WithTimeout(context.WithoutCancel(ctx), DefaultCommitTimeout)
	defer cancelCommit()

	if err := uc.commitBatch(commitCtx, tx, touched, txn, event); err != nil {
		return nil, err
	}

	uc.invalidateAccounts(commitCtx, accountIDs)

	return txn, nil
}

// commitBatch writes the transaction, its entries, the projected balances
// and the outbox event in one unit of work.
func (uc *TransactionUseCase) commitBatch(ctx context.Context, tx Tx, accounts []*domain.Account, txn *domain.Transaction, event *domain.OutboxEvent) error {
	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		return storeError("insert transaction", err)
	}

	if err := uc.entryRepo.CreateBatch(ctx, tx, txn.Entries); err != nil {
		return storeError("insert entries", err)
	}

	if err := uc.accountRepo.UpdateBalances(ctx, tx, accounts); err != nil {
		return storeError("update balances", err)
	}

	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return storeError("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError("commit", err)
	}

	return nil
}

func (uc *TransactionUseCase) invalidateAccounts(ctx context.Context, ids []string) {
	if uc.cache == nil || len(ids) == 0 {
		return
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = accountCacheKey(id)
	}

	if err := uc.cache.Invalidate(ctx, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("account_ids", ids).Msg("failed to invalidate cached accounts")
	}
}

// GetTransaction retrieves a committed transaction with its entries.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, passBusinessError("get transaction", err)
	}

	return txn, nil
}

// ListTransactions lists committed transactions, oldest first.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	txns, err := uc.transactionRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError("list transactions", err)
	}

	return txns, nil
}

// storeError classifies an error returned by the store. Business errors and
// lock conflicts raised by the store keep their identity; everything else is
// an infrastructure failure.
func storeError(op string, err error) error {
	var ledgerErr *domain.LedgerError
	if errors.As(err, &ledgerErr) || errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrConcurrencyConflict, op, err)
	}

	return fmt.Errorf("%w: %s: %w", domain.ErrStoreFailure, op, err)
}

// passBusinessError is storeError for read paths, where a timeout is not a
// lock conflict.
func passBusinessError(op string, err error) error {
	var ledgerErr *domain.LedgerError
	if errors.As(err, &ledgerErr) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", domain.ErrStoreFailure, op, err)
}
