package dto

import (
	"time"

	"github.com/iho/ledger/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Direction domain.Direction `json:"direction"`
	Balance   domain.Amount    `json:"balance"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Direction: a.Direction,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Count    int                `json:"count"`
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID            string           `json:"id"`
	TransactionID string           `json:"transaction_id"`
	AccountID     string           `json:"account_id"`
	Amount        domain.Amount    `json:"amount"`
	Direction     domain.Direction `json:"direction"`
	CreatedAt     time.Time        `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		AccountID:     e.AccountID,
		Amount:        e.Amount,
		Direction:     e.Direction,
		CreatedAt:     e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse is a page of an account's entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Count   int              `json:"count"`
}

// TransactionResponse represents a committed transaction.
type TransactionResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Entries   []*EntryResponse `json:"entries"`
	CreatedAt time.Time        `json:"created_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        t.ID,
		Name:      t.Name,
		Entries:   EntriesFromDomain(t.Entries),
		CreatedAt: t.CreatedAt,
	}
}

// ListTransactionsResponse is a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Count        int                    `json:"count"`
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// BalanceDriftResponse is an account whose balance disagrees with its entries.
type BalanceDriftResponse struct {
	AccountID string        `json:"account_id"`
	Recorded  domain.Amount `json:"recorded"`
	Computed  domain.Amount `json:"computed"`
}

// ConsistencyResponse is the result of a ledger audit.
type ConsistencyResponse struct {
	Status                 string                 `json:"status"`
	Consistent             bool                   `json:"consistent"`
	UnbalancedTransactions []string               `json:"unbalanced_transactions"`
	NegativeAccounts       []string               `json:"negative_accounts"`
	Drifts                 []BalanceDriftResponse `json:"drifts"`
	CheckedAt              time.Time              `json:"checked_at"`
}

// ConsistencyFromDomain converts a consistency report to response.
func ConsistencyFromDomain(r *domain.ConsistencyReport) *ConsistencyResponse {
	resp := &ConsistencyResponse{
		Status:                 "consistent",
		Consistent:             r.Consistent(),
		UnbalancedTransactions: nonNil(r.UnbalancedTransactions),
		NegativeAccounts:       nonNil(r.NegativeAccounts),
		Drifts:                 make([]BalanceDriftResponse, len(r.Drifts)),
		CheckedAt:              r.CheckedAt,
	}
	if !resp.Consistent {
		resp.Status = "inconsistent"
	}
	for i, d := range r.Drifts {
		resp.Drifts[i] = BalanceDriftResponse{
			AccountID: d.AccountID,
			Recorded:  d.Recorded,
			Computed:  d.Computed,
		}
	}
	return resp
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Code    string   `json:"code,omitempty"`
	IDs     []string `json:"ids,omitempty"`
}
