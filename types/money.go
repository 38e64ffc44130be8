// Package types provides common types used across Mint.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed number of fractional digits of every ledger amount.
const Decimals = 7

// One is one whole unit expressed in stroops.
const One int64 = 10_000_000

// Unit names the denomination of a Money value.
type Unit string

const (
	UnitNative   Unit = "native"   // Ledger native currency
	UnitPlatform Unit = "platform" // Platform token
	UnitUSD      Unit = "usd"      // US dollars, for price inputs only
)

// Rounding selects how a conversion result is brought back to 7 digits.
type Rounding int

const (
	// RoundCeil rounds toward +inf. Use for amounts the platform receives.
	RoundCeil Rounding = iota
	// RoundFloor rounds toward -inf. Use for amounts the platform pays out.
	RoundFloor
	// RoundHalfUp rounds half away from zero. Display and reporting only.
	RoundHalfUp
)

func (r Rounding) String() string {
	switch r {
	case RoundCeil:
		return "ceil"
	case RoundFloor:
		return "floor"
	case RoundHalfUp:
		return "half_up"
	default:
		return fmt.Sprintf("rounding(%d)", int(r))
	}
}

// Money represents a ledger amount in stroops (1e-7 of a unit).
// All arithmetic is integer-only. Conversions between units go through
// decimal and must name their rounding.
//
// Examples:
//   - Native(20_000_000) = 2.0000000 native
//   - Platform(5_000_000) = 0.5000000 platform token
type Money struct {
	Amount int64 `json:"amount"` // Stroops
	Unit   Unit  `json:"unit"`
}

// Native creates a Money value in the ledger native currency.
func Native(stroops int64) Money { return Money{Amount: stroops, Unit: UnitNative} }

// Platform creates a Money value in the platform token.
func Platform(stroops int64) Money { return Money{Amount: stroops, Unit: UnitPlatform} }

// USD creates a Money value in US dollars with 7-digit precision.
func USD(stroops int64) Money { return Money{Amount: stroops, Unit: UnitUSD} }

// Zero returns a zero Money value in the specified unit.
func Zero(unit Unit) Money { return Money{Unit: unit} }

// ParseMoney parses a decimal string such as "12.5" or "0.0000001".
// More than 7 fractional digits, negative values and values beyond int64
// stroops are rejected rather than rounded.
func ParseMoney(s string, unit Unit) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ValidationError{Field: "amount", Message: "empty amount"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ValidationError{Field: "amount", Message: fmt.Sprintf("invalid amount %q", s)}
	}
	if d.IsNegative() {
		return Money{}, ValidationError{Field: "amount", Message: fmt.Sprintf("negative amount %q", s)}
	}
	if -d.Exponent() > Decimals && !d.Equal(d.Truncate(Decimals)) {
		return Money{}, ValidationError{Field: "amount", Message: fmt.Sprintf("amount %q has more than %d decimals", s, Decimals)}
	}

	stroops := d.Shift(Decimals)
	if stroops.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return Money{}, ValidationError{Field: "amount", Message: fmt.Sprintf("amount %q out of range", s)}
	}

	return Money{Amount: stroops.IntPart(), Unit: unit}, nil
}

// MustParseMoney is like ParseMoney but panics on error. Use for constants.
func MustParseMoney(s string, unit Unit) Money {
	m, err := ParseMoney(s, unit)
	if err != nil {
		panic(fmt.Sprintf("money: must parse %q: %v", s, err))
	}
	return m
}

// FromDecimal brings an arbitrary-precision value back to 7 digits.
func FromDecimal(d decimal.Decimal, unit Unit, r Rounding) Money {
	var rounded decimal.Decimal
	switch r {
	case RoundCeil:
		rounded = d.RoundCeil(Decimals)
	case RoundFloor:
		rounded = d.RoundFloor(Decimals)
	default:
		rounded = d.Round(Decimals)
	}
	return Money{Amount: rounded.Shift(Decimals).IntPart(), Unit: unit}
}

// Arithmetic operations

// Add adds two Money values. Panics if units don't match.
func (m Money) Add(other Money) Money {
	m.assertSameUnit(other)
	return Money{Amount: m.Amount + other.Amount, Unit: m.Unit}
}

// Subtract subtracts another Money value. Panics if units don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameUnit(other)
	return Money{Amount: m.Amount - other.Amount, Unit: m.Unit}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Unit: m.Unit}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Unit: m.Unit}
}

// In relabels the amount with another unit without converting it.
// Used when a payer's unit maps onto a concrete ledger asset.
func (m Money) In(unit Unit) Money {
	return Money{Amount: m.Amount, Unit: unit}
}

// Convert multiplies by rate (target units per source unit) and rounds
// the result to 7 digits in the target unit.
func (m Money) Convert(rate decimal.Decimal, to Unit, r Rounding) Money {
	return FromDecimal(m.Decimal().Mul(rate), to, r)
}

// ConvertInverse divides by rate (source units per target unit).
func (m Money) ConvertInverse(rate decimal.Decimal, to Unit, r Rounding) Money {
	return FromDecimal(m.Decimal().DivRound(rate, 2*Decimals+8), to, r)
}

// Decimal returns the value in whole units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -Decimals)
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and unit).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Unit == other.Unit
}

// LessThan returns true if this Money is less than other. Panics if units don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameUnit(other)
	return m.Amount < other.Amount
}

// GreaterThan returns true if this Money is greater than other. Panics if units don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameUnit(other)
	return m.Amount > other.Amount
}

// Formatting methods

// String returns the amount with exactly 7 fractional digits, the format
// the ledger expects in every operation: "2.0000000" for Native(20_000_000).
func (m Money) String() string {
	abs := m.Amount
	sign := ""
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%07d", sign, abs/One, abs%One)
}

// Display returns the amount followed by its unit, for logs.
func (m Money) Display() string {
	return m.String() + " " + string(m.Unit)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount  int64  `json:"amount"`
		Unit    Unit   `json:"unit"`
		Display string `json:"display"`
	}{
		Amount:  m.Amount,
		Unit:    m.Unit,
		Display: m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount int64 `json:"amount"`
		Unit   Unit  `json:"unit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount, m.Unit = raw.Amount, raw.Unit
	return nil
}

// assertSameUnit panics if units don't match.
func (m Money) assertSameUnit(other Money) {
	if m.Unit != other.Unit {
		panic(fmt.Sprintf("money: unit mismatch: %s != %s", m.Unit, other.Unit))
	}
}

// Sum calculates the sum of multiple Money values. All must have the given unit.
func Sum(unit Unit, values ...Money) Money {
	result := Zero(unit)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// CheckedAdd is Add that fails instead of wrapping past the int64 range.
func (m Money) CheckedAdd(other Money) (Money, error) {
	m.assertSameUnit(other)
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return Money{}, ValidationError{Field: "amount", Message: fmt.Sprintf("%s + %s overflows", m, other)}
	}
	return Money{Amount: m.Amount + other.Amount, Unit: m.Unit}, nil
}

// SumChecked is Sum that fails on overflow.
func SumChecked(unit Unit, values ...Money) (Money, error) {
	result := Zero(unit)
	for _, v := range values {
		var err error
		if result, err = result.CheckedAdd(v); err != nil {
			return Money{}, err
		}
	}
	return result, nil
}
