package memory

import (
	"context"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// CreateBatch buffers entries in tx.
func (r *EntryRepository) CreateBatch(ctx context.Context, tx usecase.Tx, entries []*domain.Entry) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		ec := *e
		t.entries = append(t.entries, &ec)
	}
	return nil
}

// AnyExist reports whether any of ids is a committed entry.
func (r *EntryRepository) AnyExist(ctx context.Context, tx usecase.Tx, ids []string) (bool, error) {
	if _, err := asTx(tx); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, id := range ids {
		if _, ok := r.store.entries[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

// ListByAccount lists an account's entries in commit order.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := r.store.entriesByAccount[accountID]
	start, end := page(len(ids), limit, offset)

	entries := make([]*domain.Entry, 0, end-start)
	for _, id := range ids[start:end] {
		e := *r.store.entries[id]
		entries = append(entries, &e)
	}

	return entries, nil
}
