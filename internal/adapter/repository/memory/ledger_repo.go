package memory

import (
	"context"
	"sort"

	"github.com/iho/ledger/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// UnbalancedTransactions returns ids of stored transactions whose debits and
// credits differ.
func (r *LedgerRepository) UnbalancedTransactions(ctx context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var ids []string
	for _, id := range r.store.transactionOrder {
		if !r.store.transactions[id].IsBalanced() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// NegativeBalanceAccounts returns ids of accounts with a negative balance.
func (r *LedgerRepository) NegativeBalanceAccounts(ctx context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var ids []string
	for id, a := range r.store.accounts {
		if a.Balance.IsNegative() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// BalanceDrifts compares every stored balance with the net of its entries.
func (r *LedgerRepository) BalanceDrifts(ctx context.Context) ([]domain.BalanceDrift, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := make([]string, 0, len(r.store.accounts))
	for id := range r.store.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var drifts []domain.BalanceDrift
	for _, id := range ids {
		a := r.store.accounts[id]
		computed := domain.ZeroAmount
		for _, entryID := range r.store.entriesByAccount[id] {
			e := r.store.entries[entryID]
			computed = computed.Add(a.Delta(e.Amount, e.Direction))
		}
		if !computed.Equal(a.Balance) {
			drifts = append(drifts, domain.BalanceDrift{
				AccountID: id,
				Recorded:  a.Balance,
				Computed:  computed,
			})
		}
	}
	return drifts, nil
}
