package domain

import "time"

// Event types
const (
	EventTypeTransactionCommitted = "transaction.committed"
	EventTypeAccountCreated       = "account.created"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeAccount     = "account"
)

// OutboxEvent is written in the same store transaction as the change it
// describes and published later.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransactionCommittedEvent describes a committed transaction and the
// balances it left behind.
func NewTransactionCommittedEvent(id string, txn *Transaction, accounts []*Account) *OutboxEvent {
	entries := make([]map[string]any, len(txn.Entries))
	for i, e := range txn.Entries {
		entries[i] = map[string]any{
			"id":         e.ID,
			"account_id": e.AccountID,
			"amount":     e.Amount.String(),
			"direction":  e.Direction.String(),
		}
	}

	balances := make(map[string]any, len(accounts))
	for _, a := range accounts {
		balances[a.ID] = a.Balance.String()
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   txn.ID,
		AggregateType: AggregateTypeTransaction,
		EventType:     EventTypeTransactionCommitted,
		Payload: map[string]any{
			"transaction_id": txn.ID,
			"name":           txn.Name,
			"entries":        entries,
			"balances":       balances,
		},
		CreatedAt: txn.CreatedAt,
	}
}

// NewAccountCreatedEvent describes a newly opened account.
func NewAccountCreatedEvent(id string, account *Account) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   account.ID,
		AggregateType: AggregateTypeAccount,
		EventType:     EventTypeAccountCreated,
		Payload: map[string]any{
			"account_id": account.ID,
			"name":       account.Name,
			"direction":  account.Direction.String(),
		},
		CreatedAt: account.CreatedAt,
	}
}
