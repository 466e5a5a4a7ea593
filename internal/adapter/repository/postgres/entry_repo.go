package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/postgres/generated"
	"github.com/iho/ledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepository(pool)
}

func newEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// CreateBatch copies entries into the table within tx. Slice order becomes
// the entry position.
func (r *EntryRepository) CreateBatch(ctx context.Context, tx usecase.Tx, entries []*domain.Entry) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	params := make([]generated.CreateEntriesParams, len(entries))
	for i, e := range entries {
		params[i] = generated.CreateEntriesParams{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			AccountID:     e.AccountID,
			Position:      int32(i),
			Amount:        amountToNumeric(e.Amount),
			Direction:     e.Direction.String(),
			CreatedAt:     timeToPgTimestamptz(e.CreatedAt),
		}
	}

	_, err = queries.CreateEntries(ctx, params)
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(domain.EntityEntry)
	}

	return translateError(err)
}

// AnyExist reports whether any of ids is already stored.
func (r *EntryRepository) AnyExist(ctx context.Context, tx usecase.Tx, ids []string) (bool, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return false, err
	}

	exists, err := queries.EntriesExist(ctx, ids)
	return exists, translateError(err)
}

// ListByAccount lists an account's entries in commit order.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.queries.GetEntriesByAccount(ctx, generated.GetEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := rowToEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func rowToEntry(row generated.Entry) (*domain.Entry, error) {
	amount, err := numericToAmount(row.Amount)
	if err != nil {
		return nil, err
	}

	return &domain.Entry{
		ID:            row.ID,
		TransactionID: row.TransactionID,
		AccountID:     row.AccountID,
		Amount:        amount,
		Direction:     domain.Direction(row.Direction),
		CreatedAt:     row.CreatedAt.Time,
	}, nil
}
