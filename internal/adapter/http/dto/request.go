package dto

import (
	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name"`
	Direction domain.Direction `json:"direction"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		ID:        r.ID,
		Name:      r.Name,
		Direction: r.Direction,
	}
}

// EntryRequest is one proposed posting.
type EntryRequest struct {
	ID        string           `json:"id,omitempty"`
	AccountID string           `json:"account_id"`
	Amount    domain.Amount    `json:"amount"`
	Direction domain.Direction `json:"direction"`
}

// SubmitTransactionRequest represents a request to post a transaction.
type SubmitTransactionRequest struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name,omitempty"`
	Entries []EntryRequest `json:"entries"`
}

// ToUseCaseInput converts to use case input, keeping entry order.
func (r *SubmitTransactionRequest) ToUseCaseInput() usecase.SubmitTransactionInput {
	entries := make([]domain.EntryProposal, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = domain.EntryProposal{
			ID:        e.ID,
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Direction: e.Direction,
		}
	}

	return usecase.SubmitTransactionInput{
		ID:      r.ID,
		Name:    r.Name,
		Entries: entries,
	}
}
