package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/postgres/generated"
	"github.com/iho/ledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Create inserts the transaction header within tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	err = queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:        txn.ID,
		Name:      txn.Name,
		CreatedAt: timeToPgTimestamptz(txn.CreatedAt),
	})
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(domain.EntityTransaction, txn.ID)
	}

	return translateError(err)
}

// Exists reports whether a transaction with id exists.
func (r *TransactionRepository) Exists(ctx context.Context, tx usecase.Tx, id string) (bool, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return false, err
	}

	exists, err := queries.TransactionExists(ctx, id)
	return exists, translateError(err)
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(domain.EntityTransaction, id)
		}

		return nil, err
	}

	txns, err := r.withEntries(ctx, []generated.Transaction{row})
	if err != nil {
		return nil, err
	}

	return txns[0], nil
}

// List lists transactions in commit order.
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, generated.ListTransactionsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return r.withEntries(ctx, rows)
}

// withEntries loads the entries of all rows with one query.
func (r *TransactionRepository) withEntries(ctx context.Context, rows []generated.Transaction) ([]*domain.Transaction, error) {
	txns := make([]*domain.Transaction, len(rows))
	if len(rows) == 0 {
		return txns, nil
	}

	byID := make(map[string]*domain.Transaction, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		txns[i] = &domain.Transaction{
			ID:        row.ID,
			Name:      row.Name,
			CreatedAt: row.CreatedAt.Time,
		}
		byID[row.ID] = txns[i]
		ids[i] = row.ID
	}

	entryRows, err := r.queries.GetEntriesByTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, er := range entryRows {
		entry, err := rowToEntry(er)
		if err != nil {
			return nil, err
		}
		txn := byID[er.TransactionID]
		txn.Entries = append(txn.Entries, entry)
	}

	return txns, nil
}
