package memory

import (
	"context"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create buffers the transaction header in tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.transactions = append(t.transactions, cloneTransaction(txn))
	return nil
}

// Exists reports whether a committed transaction has id.
func (r *TransactionRepository) Exists(ctx context.Context, tx usecase.Tx, id string) (bool, error) {
	if _, err := asTx(tx); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.transactions[id]
	return ok, nil
}

// GetByID retrieves a transaction and its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	txn, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityTransaction, id)
	}
	return cloneTransaction(txn), nil
}

// List lists transactions in commit order.
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	start, end := page(len(r.store.transactionOrder), limit, offset)
	txns := make([]*domain.Transaction, 0, end-start)
	for _, id := range r.store.transactionOrder[start:end] {
		txns = append(txns, cloneTransaction(r.store.transactions[id]))
	}

	return txns, nil
}
