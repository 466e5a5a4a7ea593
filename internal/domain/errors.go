package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Transaction validation errors
	ErrInvalidEntryDirections = errors.New("invalid entry directions")
	ErrInvalidEntryAmount     = errors.New("invalid entry amount")
	ErrUnbalancedTransaction  = errors.New("unbalanced transaction")
	ErrDuplicateEntryIDs      = errors.New("duplicate entry ids")

	// Identity errors
	ErrEntityAlreadyExists = errors.New("entity already exists")
	ErrEntityNotFound      = errors.New("entity not found")

	// Balance errors
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Input format errors
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidName      = errors.New("invalid name")
	ErrTooManyEntries   = errors.New("too many entries")

	// Infrastructure errors
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
	ErrStoreFailure        = errors.New("ledger store failure")
)

// Entity names carried by LedgerError.
const (
	EntityAccount     = "account"
	EntityTransaction = "transaction"
	EntityEntry       = "entry"
)

// LedgerError is a business rule failure. Kind is one of the sentinel errors
// above, so callers branch with errors.Is and read context with errors.As.
type LedgerError struct {
	Kind    error
	Entity  string
	IDs     []string
	Message string
}

func (e *LedgerError) Error() string {
	return e.Message
}

func (e *LedgerError) Unwrap() error {
	return e.Kind
}

func NewInvalidEntryDirectionsError() *LedgerError {
	return &LedgerError{
		Kind:    ErrInvalidEntryDirections,
		Entity:  EntityTransaction,
		Message: "The transaction must have at least two entries, where the sum of all the debits must equal the sum of all the credits.",
	}
}

func NewInvalidEntryAmountError(entryIDs []string) *LedgerError {
	return &LedgerError{
		Kind:    ErrInvalidEntryAmount,
		Entity:  EntityEntry,
		IDs:     entryIDs,
		Message: "Transaction entries must have amounts greater than zero.",
	}
}

func NewUnbalancedTransactionError(debits, credits Amount) *LedgerError {
	return &LedgerError{
		Kind:   ErrUnbalancedTransaction,
		Entity: EntityTransaction,
		Message: fmt.Sprintf(
			"The sum of all the debits must equal the sum of all the credits in the transaction (debits %s, credits %s).",
			debits, credits,
		),
	}
}

func NewDuplicateEntryIDsError(ids []string) *LedgerError {
	return &LedgerError{
		Kind:    ErrDuplicateEntryIDs,
		Entity:  EntityEntry,
		IDs:     ids,
		Message: "Duplicate IDs found in the Entries collection.",
	}
}

// NewAlreadyExistsError reports an identity collision for entity. The ids may
// be empty when the store cannot tell which one collided.
func NewAlreadyExistsError(entity string, ids ...string) *LedgerError {
	var msg string
	switch {
	case entity == EntityEntry:
		msg = "An entry with a duplicated ID already exists."
	case len(ids) == 0:
		msg = fmt.Sprintf("A %s with the same ID already exists.", entity)
	case entity == EntityAccount:
		msg = fmt.Sprintf("An account with the ID '%s' already exists.", ids[0])
	default:
		msg = fmt.Sprintf("A %s with the ID '%s' already exists.", entity, ids[0])
	}

	return &LedgerError{
		Kind:    ErrEntityAlreadyExists,
		Entity:  entity,
		IDs:     ids,
		Message: msg,
	}
}

// NewNotFoundError names a single missing entity.
func NewNotFoundError(entity, id string) *LedgerError {
	return &LedgerError{
		Kind:    ErrEntityNotFound,
		Entity:  entity,
		IDs:     []string{id},
		Message: fmt.Sprintf("The %s with ID '%s' was not found.", entity, id),
	}
}

// NewAccountsNotFoundError names every account missing from a batched lookup.
func NewAccountsNotFoundError(ids []string) *LedgerError {
	return &LedgerError{
		Kind:    ErrEntityNotFound,
		Entity:  EntityAccount,
		IDs:     ids,
		Message: "The following accounts do not exist: " + strings.Join(ids, ", "),
	}
}

// NewAmountOutOfRangeError reports a value the store cannot represent.
func NewAmountOutOfRangeError() *LedgerError {
	return &LedgerError{
		Kind:    ErrInvalidAmount,
		Entity:  EntityEntry,
		Message: "The amount exceeds the range the ledger can store.",
	}
}

func NewInsufficientFundsError(accountIDs []string) *LedgerError {
	msg := fmt.Sprintf("The account with the ID '%s' does not have sufficient funds.", accountIDs[0])
	if len(accountIDs) > 1 {
		msg = "The following accounts do not have sufficient funds: " + strings.Join(accountIDs, ", ")
	}

	return &LedgerError{
		Kind:    ErrInsufficientFunds,
		Entity:  EntityAccount,
		IDs:     accountIDs,
		Message: msg,
	}
}

// ErrorKind returns a stable snake_case label for err, used in metrics and
// API error codes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidEntryDirections):
		return "invalid_entry_directions"
	case errors.Is(err, ErrInvalidEntryAmount):
		return "invalid_entry_amount"
	case errors.Is(err, ErrUnbalancedTransaction):
		return "unbalanced_transaction"
	case errors.Is(err, ErrDuplicateEntryIDs):
		return "duplicate_entry_ids"
	case errors.Is(err, ErrEntityAlreadyExists):
		return "entity_already_exists"
	case errors.Is(err, ErrEntityNotFound):
		return "entity_not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, ErrInvalidID):
		return "invalid_id"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, ErrTooManyEntries):
		return "too_many_entries"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrStoreFailure):
		return "store_failure"
	default:
		return "internal"
	}
}

// ErrorIDs returns the offending ids carried by err, if any.
func ErrorIDs(err error) []string {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.IDs
	}
	return nil
}
