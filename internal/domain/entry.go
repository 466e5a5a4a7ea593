package domain

import "time"

// Entry is one committed posting. It refers to its account and transaction
// by id only.
type Entry struct {
	ID            string
	TransactionID string
	AccountID     string
	Amount        Amount
	Direction     Direction
	CreatedAt     time.Time
}

// EntryProposal is a caller-supplied posting that has not been validated.
// ID is empty when the caller leaves identity to the ledger.
type EntryProposal struct {
	ID        string
	AccountID string
	Amount    Amount
	Direction Direction
}
