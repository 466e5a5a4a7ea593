package domain

import "time"

// Transaction is an immutable, balanced set of entries. Entries keep the
// order in which they were proposed.
type Transaction struct {
	ID        string
	Name      string
	Entries   []*Entry
	CreatedAt time.Time
}

// TransactionProposal is the caller's request to post a transaction.
type TransactionProposal struct {
	ID      string
	Name    string
	Entries []EntryProposal
}

// NewTransaction materialises a proposal. newID is called for the transaction
// and for every entry the caller left without an id.
func NewTransaction(p TransactionProposal, newID func() string, now time.Time) *Transaction {
	txn := &Transaction{
		ID:        p.ID,
		Name:      p.Name,
		Entries:   make([]*Entry, len(p.Entries)),
		CreatedAt: now,
	}
	if txn.ID == "" {
		txn.ID = newID()
	}

	for i, e := range p.Entries {
		id := e.ID
		if id == "" {
			id = newID()
		}
		txn.Entries[i] = &Entry{
			ID:            id,
			TransactionID: txn.ID,
			AccountID:     e.AccountID,
			Amount:        e.Amount,
			Direction:     e.Direction,
			CreatedAt:     now,
		}
	}

	return txn
}

// Totals returns the debit and credit sums of the transaction's entries.
func (t *Transaction) Totals() (debits, credits Amount) {
	for _, e := range t.Entries {
		if e.Direction == DirectionDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}

// IsBalanced reports whether debits equal credits.
func (t *Transaction) IsBalanced() bool {
	debits, credits := t.Totals()
	return debits.Equal(credits)
}

// AccountIDs returns the distinct account ids referenced by the transaction,
// in ascending order.
func (t *Transaction) AccountIDs() []string {
	ids := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		ids = append(ids, e.AccountID)
	}
	return uniqueSorted(ids)
}
