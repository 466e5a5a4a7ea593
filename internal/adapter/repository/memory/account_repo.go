package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create buffers a new account in tx.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.accounts = append(t.accounts, account.Clone())
	return nil
}

// Exists reports whether a committed account has id.
func (r *AccountRepository) Exists(ctx context.Context, tx usecase.Tx, id string) (bool, error) {
	if _, err := asTx(tx); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.accounts[id]
	return ok, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityAccount, id)
	}
	return a.Clone(), nil
}

// GetByIDsForUpdate locks the known accounts among ids in ascending order and
// returns snapshots of them taken under the lock.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) (map[string]*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	result := make(map[string]*domain.Account, len(sorted))
	for _, id := range sorted {
		if _, err := r.GetByID(ctx, id); err != nil {
			continue
		}

		if !t.locked[id] {
			if err := r.store.lockAccount(ctx, id); err != nil {
				return nil, err
			}
			t.locked[id] = true
		}

		// Re-read under the lock so the snapshot includes the previous
		// holder's commit.
		a, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		result[id] = a
	}

	return result, nil
}

// UpdateBalances buffers new balances for accounts locked by tx.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx usecase.Tx, accounts []*domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if t.balances == nil {
		t.balances = make(map[string]*domain.Account, len(accounts))
	}
	for _, a := range accounts {
		if !t.locked[a.ID] {
			return fmt.Errorf("memory: balance update on unlocked account %s", a.ID)
		}
		t.balances[a.ID] = a.Clone()
	}

	return nil
}

// List lists accounts ordered by id.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := make([]string, 0, len(r.store.accounts))
	for id := range r.store.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start, end := page(len(ids), limit, offset)
	accounts := make([]*domain.Account, 0, end-start)
	for _, id := range ids[start:end] {
		accounts = append(accounts, r.store.accounts[id].Clone())
	}

	return accounts, nil
}
