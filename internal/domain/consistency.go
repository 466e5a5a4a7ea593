package domain

import "time"

// BalanceDrift is an account whose stored balance disagrees with the net of
// its entries.
type BalanceDrift struct {
	AccountID string
	Recorded  Amount
	Computed  Amount
}

// ConsistencyReport is the result of a ledger-wide audit.
type ConsistencyReport struct {
	UnbalancedTransactions []string
	NegativeAccounts       []string
	Drifts                 []BalanceDrift
	CheckedAt              time.Time
}

// Consistent reports whether the audit found nothing wrong.
func (r *ConsistencyReport) Consistent() bool {
	return len(r.UnbalancedTransactions) == 0 && len(r.NegativeAccounts) == 0 && len(r.Drifts) == 0
}
