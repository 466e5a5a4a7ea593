package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

var errTxDone = errors.New("memory: transaction already finished")

// TxManager starts units of work against a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new unit of work.
func (m *TxManager) Begin(ctx context.Context) (usecase.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: m.store, locked: make(map[string]bool)}, nil
}

// Tx buffers writes until Commit. Account locks taken through
// GetByIDsForUpdate are held until Commit or Rollback.
type Tx struct {
	store  *Store
	locked map[string]bool
	done   bool

	accounts     []*domain.Account
	transactions []*domain.Transaction
	entries      []*domain.Entry
	balances     map[string]*domain.Account
	events       []*domain.OutboxEvent
}

// Commit applies every buffered write or none of them.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	defer t.finish()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.checkUnique(); err != nil {
		return err
	}

	for _, a := range t.accounts {
		s.accounts[a.ID] = a.Clone()
	}

	for _, txn := range t.transactions {
		s.transactions[txn.ID] = cloneTransaction(txn)
		s.transactionOrder = append(s.transactionOrder, txn.ID)
	}

	for _, e := range t.entries {
		ec := *e
		s.entries[e.ID] = &ec
		s.entriesByAccount[e.AccountID] = append(s.entriesByAccount[e.AccountID], e.ID)
	}

	for id, updated := range t.balances {
		current := s.accounts[id]
		current.Balance = updated.Balance
		current.UpdatedAt = updated.UpdatedAt
	}

	for _, ev := range t.events {
		s.outboxIndex[ev.ID] = len(s.outbox)
		s.outbox = append(s.outbox, cloneEvent(ev))
	}

	return nil
}

// checkUnique must be called with the store write lock held.
func (t *Tx) checkUnique() error {
	s := t.store

	for _, a := range t.accounts {
		if _, ok := s.accounts[a.ID]; ok {
			return domain.NewAlreadyExistsError(domain.EntityAccount, a.ID)
		}
	}

	for _, txn := range t.transactions {
		if _, ok := s.transactions[txn.ID]; ok {
			return domain.NewAlreadyExistsError(domain.EntityTransaction, txn.ID)
		}
	}

	for _, e := range t.entries {
		if _, ok := s.entries[e.ID]; ok {
			return domain.NewAlreadyExistsError(domain.EntityEntry)
		}
	}

	for id := range t.balances {
		if _, ok := s.accounts[id]; !ok {
			return domain.NewNotFoundError(domain.EntityAccount, id)
		}
	}

	return nil
}

// Rollback discards buffered writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true

	ids := make([]string, 0, len(t.locked))
	for id := range t.locked {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	for _, id := range ids {
		t.store.unlockAccount(id)
	}
	t.locked = nil
}
