package postgres

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/ledger/internal/domain"
)

// PostgreSQL error codes.
const (
	pgErrNumericOutOfRange    = "22003"
	pgErrUniqueViolation      = "23505"
	pgErrCheckViolation       = "23514"
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
	pgErrLockNotAvailable     = "55P03"
)

// translateError turns lock contention into domain.ErrConcurrencyConflict and
// numeric overflow into an invalid amount. Every other error is untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch pgErrorCode(err) {
	case pgErrSerializationFailure, pgErrDeadlock, pgErrLockNotAvailable:
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
	case pgErrNumericOutOfRange:
		return domain.NewAmountOutOfRangeError()
	}

	return err
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgErrUniqueViolation
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == pgErrCheckViolation
}

// Type conversion helpers.
func amountToNumeric(a domain.Amount) pgtype.Numeric {
	d := a.Decimal()
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToAmount(n pgtype.Numeric) (domain.Amount, error) {
	if !n.Valid {
		return domain.ZeroAmount, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return domain.ZeroAmount, fmt.Errorf("%w: non-finite numeric", domain.ErrInvalidAmount)
	}

	coef := n.Int
	if coef == nil {
		coef = new(big.Int)
	}

	return domain.AmountFromDecimal(decimal.NewFromBigInt(coef, n.Exp))
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
