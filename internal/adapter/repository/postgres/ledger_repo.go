package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/postgres/generated"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepository(pool)
}

func newLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// UnbalancedTransactions returns ids of transactions whose entries do not
// balance.
func (r *LedgerRepository) UnbalancedTransactions(ctx context.Context) ([]string, error) {
	return r.queries.GetUnbalancedTransactions(ctx)
}

// NegativeBalanceAccounts returns ids of accounts with a negative balance.
func (r *LedgerRepository) NegativeBalanceAccounts(ctx context.Context) ([]string, error) {
	return r.queries.GetNegativeBalanceAccounts(ctx)
}

// BalanceDrifts returns accounts whose balance differs from the net of their
// entries.
func (r *LedgerRepository) BalanceDrifts(ctx context.Context) ([]domain.BalanceDrift, error) {
	rows, err := r.queries.GetBalanceDrifts(ctx)
	if err != nil {
		return nil, err
	}

	drifts := make([]domain.BalanceDrift, 0, len(rows))
	for _, row := range rows {
		recorded, err := numericToAmount(row.Balance)
		if err != nil {
			return nil, err
		}
		computed, err := numericToAmount(row.Computed)
		if err != nil {
			return nil, err
		}
		drifts = append(drifts, domain.BalanceDrift{
			AccountID: row.ID,
			Recorded:  recorded,
			Computed:  computed,
		})
	}

	return drifts, nil
}
