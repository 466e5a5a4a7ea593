package domain

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a whole number of minor currency units.
//
// Amounts are exact and unbounded. A value can only be built from integral
// input, so fractional quantities never reach the ledger. Negative values are
// representable because balance projection may pass through them.
type Amount struct {
	value decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmount returns an Amount of v minor units.
func NewAmount(v int64) Amount {
	return Amount{value: decimal.NewFromInt(v)}
}

// ParseAmount parses a base-10 integer such as "1500" or "-20".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}

	return AmountFromDecimal(d)
}

// AmountFromDecimal converts d, rejecting values with a fractional part.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.IsInteger() {
		return Amount{}, fmt.Errorf("%w: %s must be an integer", ErrInvalidAmount, d.String())
	}

	return Amount{value: d.Truncate(0)}, nil
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{value: a.value.Add(b.value)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{value: a.value.Sub(b.value)}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{value: a.value.Neg()}
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.value.Cmp(b.value)
}

// Equal reports whether a and b are the same quantity.
func (a Amount) Equal(b Amount) bool {
	return a.value.Equal(b.value)
}

func (a Amount) Sign() int        { return a.value.Sign() }
func (a Amount) IsZero() bool     { return a.value.IsZero() }
func (a Amount) IsPositive() bool { return a.value.IsPositive() }
func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// Decimal exposes the underlying value for storage adapters.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// Float64 is lossy and only meant for metrics.
func (a Amount) Float64() float64 {
	f, _ := a.value.Float64()
	return f
}

func (a Amount) String() string {
	return a.value.String()
}

// MarshalJSON encodes the amount as a bare JSON integer.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}

	parsed, err := ParseAmount(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}
