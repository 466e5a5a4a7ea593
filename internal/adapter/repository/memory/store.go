// Package memory implements the ledger repositories in process memory. It
// gives the same guarantees as the Postgres store: per-account locks taken in
// ascending id order, all-or-nothing commits and uniqueness checks at commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds the committed ledger state.
type Store struct {
	mu sync.RWMutex

	accounts map[string]*domain.Account

	transactions     map[string]*domain.Transaction
	transactionOrder []string

	entries          map[string]*domain.Entry
	entriesByAccount map[string][]string

	outbox      []*domain.OutboxEvent
	outboxIndex map[string]int

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:         make(map[string]*domain.Account),
		transactions:     make(map[string]*domain.Transaction),
		entries:          make(map[string]*domain.Entry),
		entriesByAccount: make(map[string][]string),
		outboxIndex:      make(map[string]int),
		locks:            make(map[string]chan struct{}),
	}
}

func (s *Store) accountLock(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

// lockAccount blocks until the account lock is free or ctx is done. Running
// out of time is a conflict; a cancelled caller gets ctx.Err() back as is.
func (s *Store) lockAccount(ctx context.Context, id string) error {
	select {
	case s.accountLock(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: waiting for lock on account %s: %w", domain.ErrConcurrencyConflict, id, err)
		}
		return fmt.Errorf("waiting for lock on account %s: %w", id, err)
	}
}

func (s *Store) unlockAccount(id string) {
	<-s.accountLock(id)
}

func asTx(tx usecase.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, errForeignTx
	}
	if t.done {
		return nil, errTxDone
	}
	return t, nil
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	c.Entries = make([]*domain.Entry, len(t.Entries))
	for i, e := range t.Entries {
		ec := *e
		c.Entries[i] = &ec
	}
	return &c
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	c := *e
	if e.PublishedAt != nil {
		at := *e.PublishedAt
		c.PublishedAt = &at
	}
	return &c
}

func page(n, limit, offset int) (int, int) {
	if offset > n {
		offset = n
	}
	end := offset + limit
	if limit <= 0 || end > n {
		end = n
	}
	return offset, end
}
