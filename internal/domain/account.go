package domain

import "time"

// Account is a balance-bearing party with a fixed normal direction.
type Account struct {
	ID        string
	Name      string
	Direction Direction
	Balance   Amount
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount returns an account with a zero balance.
func NewAccount(id, name string, direction Direction, now time.Time) *Account {
	return &Account{
		ID:        id,
		Name:      name,
		Direction: direction,
		Balance:   ZeroAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Delta returns the signed balance change a posting causes on this account.
// A posting on the account's own side increases the balance.
func (a *Account) Delta(amount Amount, direction Direction) Amount {
	if direction == a.Direction {
		return amount
	}
	return amount.Neg()
}

// Post applies a posting to the balance without any invariant check.
func (a *Account) Post(amount Amount, direction Direction) {
	a.Balance = a.Balance.Add(a.Delta(amount, direction))
}

// Clone returns an independent copy.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
