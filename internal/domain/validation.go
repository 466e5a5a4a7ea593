package domain

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Validation constants
const (
	MaxIDLength   = 64
	MaxNameLength = 255
	MaxEntries    = 1000

	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID checks the format of a caller-supplied identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidID)
	}

	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidID, id, MaxIDLength)
	}

	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q contains forbidden characters", ErrInvalidID, id)
	}

	return nil
}

// ValidateName checks an optional label. Empty is allowed.
func ValidateName(name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}
	return nil
}

// ValidateProposalFormat rejects malformed input before it reaches the
// transaction rules: bad ids, unknown directions and oversized proposals.
func ValidateProposalFormat(p TransactionProposal) error {
	if p.ID != "" {
		if err := ValidateID(p.ID); err != nil {
			return err
		}
	}

	if err := ValidateName(p.Name); err != nil {
		return err
	}

	if len(p.Entries) > MaxEntries {
		return fmt.Errorf("%w: a transaction may carry at most %d entries", ErrTooManyEntries, MaxEntries)
	}

	for i, e := range p.Entries {
		if e.ID != "" {
			if err := ValidateID(e.ID); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}
		if err := ValidateID(e.AccountID); err != nil {
			return fmt.Errorf("entry %d account_id: %w", i, err)
		}
		if !e.Direction.IsValid() {
			return fmt.Errorf("entry %d: %w: %q", i, ErrInvalidDirection, e.Direction)
		}
	}

	return nil
}

// ValidateEntries runs the structural transaction rules in order and stops
// at the first failure:
//  1. at least one debit and one credit entry
//  2. every amount strictly positive
//  3. debits equal credits exactly
//  4. caller-supplied entry ids are unique
func ValidateEntries(entries []EntryProposal) error {
	if err := validateEntryDirections(entries); err != nil {
		return err
	}
	if err := validateEntryAmounts(entries); err != nil {
		return err
	}
	if err := validateBalanced(entries); err != nil {
		return err
	}
	return validateUniqueEntryIDs(entries)
}

func validateEntryDirections(entries []EntryProposal) error {
	var hasDebit, hasCredit bool
	for _, e := range entries {
		switch e.Direction {
		case DirectionDebit:
			hasDebit = true
		case DirectionCredit:
			hasCredit = true
		}
	}

	if !hasDebit || !hasCredit {
		return NewInvalidEntryDirectionsError()
	}
	return nil
}

func validateEntryAmounts(entries []EntryProposal) error {
	var offending []string
	invalid := false
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			invalid = true
			if e.ID != "" {
				offending = append(offending, e.ID)
			}
		}
	}

	if invalid {
		return NewInvalidEntryAmountError(offending)
	}
	return nil
}

func validateBalanced(entries []EntryProposal) error {
	var debits, credits Amount
	for _, e := range entries {
		if e.Direction == DirectionDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}

	if !debits.Equal(credits) {
		return NewUnbalancedTransactionError(debits, credits)
	}
	return nil
}

func validateUniqueEntryIDs(entries []EntryProposal) error {
	seen := make(map[string]struct{}, len(entries))
	var duplicates []string
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			duplicates = append(duplicates, e.ID)
			continue
		}
		seen[e.ID] = struct{}{}
	}

	if len(duplicates) > 0 {
		return NewDuplicateEntryIDsError(uniqueSorted(duplicates))
	}
	return nil
}

// SuppliedEntryIDs returns the entry ids the caller chose, in proposal order.
func SuppliedEntryIDs(entries []EntryProposal) []string {
	var ids []string
	for _, e := range entries {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// ReferencedAccountIDs returns the distinct account ids in entries, sorted
// ascending. The order is the global lock order for accounts.
func ReferencedAccountIDs(entries []EntryProposal) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AccountID)
	}
	return uniqueSorted(ids)
}

// MissingAccounts returns the ids absent from found, preserving the order
// of ids.
func MissingAccounts(ids []string, found map[string]*Account) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// ProjectBalances applies the net effect of entries to copies of accounts.
//
// All entries are applied before any balance is checked, so an account
// touched several times is judged on its final balance only. The inputs are
// never modified. The touched accounts are returned sorted by id, with
// UpdatedAt set to now.
func ProjectBalances(accounts map[string]*Account, entries []EntryProposal, now time.Time) ([]*Account, error) {
	projected := make(map[string]*Account, len(accounts))
	for _, e := range entries {
		acc, ok := projected[e.AccountID]
		if !ok {
			current, found := accounts[e.AccountID]
			if !found {
				return nil, NewAccountsNotFoundError([]string{e.AccountID})
			}
			acc = current.Clone()
			projected[e.AccountID] = acc
		}
		acc.Post(e.Amount, e.Direction)
	}

	touched := make([]*Account, 0, len(projected))
	var overdrawn []string
	for _, acc := range projected {
		acc.UpdatedAt = now
		touched = append(touched, acc)
		if acc.Balance.IsNegative() {
			overdrawn = append(overdrawn, acc.ID)
		}
	}

	if len(overdrawn) > 0 {
		sort.Strings(overdrawn)
		return nil, NewInsufficientFundsError(overdrawn)
	}

	sort.Slice(touched, func(i, j int) bool { return touched[i].ID < touched[j].ID })
	return touched, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
