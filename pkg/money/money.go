package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative count of minor currency units (cents). All ledger
// arithmetic happens on this integer form; floats never enter the funding
// path.
type Amount int64

// ErrNegativeResult signals an underflow during subtraction. It marks an
// internal invariant violation, not a user-facing condition.
var ErrNegativeResult = errors.New("money: negative result")

// ErrNegativeAmount rejects construction from a negative unit count.
var ErrNegativeAmount = errors.New("money: negative amount")

var centsPerUnit = decimal.New(100, 0)

// New builds an Amount from raw minor units.
func New(units int64) (Amount, error) {
	if units < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeAmount, units)
	}
	return Amount(units), nil
}

// Units returns the raw minor-unit count.
func (a Amount) Units() int64 {
	return int64(a)
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// Add returns the sum of both amounts.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a minus b, failing with ErrNegativeResult on underflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrNegativeResult, a.Units(), b.Units())
	}
	return a - b, nil
}

// Clamp caps the amount at max.
func (a Amount) Clamp(max Amount) Amount {
	if a > max {
		return max
	}
	return a
}

// Sum folds the provided amounts into a total.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// ParseDecimal converts a user-supplied decimal string such as "12.34" into
// minor units. Sub-cent precision and negative values are rejected. This is
// boundary-layer parsing; the ledger core only ever sees the integer result.
func ParseDecimal(raw string) (Amount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", raw, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrNegativeAmount, raw)
	}
	cents := d.Mul(centsPerUnit)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("money: %q has sub-cent precision", raw)
	}
	return Amount(cents.IntPart()), nil
}

// FormatDecimal renders the amount as a two-decimal string, e.g. 1234 -> "12.34".
func (a Amount) FormatDecimal() string {
	return decimal.New(int64(a), -2).StringFixed(2)
}
