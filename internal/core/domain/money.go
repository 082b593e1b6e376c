package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in minor units (cents). It is rendered in JSON as a
// decimal number with two fraction digits.
type Money int64

// MaxMoney bounds every price, subtotal and total. Amounts up to it are
// exact both as int64 cents and as float64 in JSON.
const MaxMoney Money = 10_000_000_000_000

var ErrAmountOutOfRange = errors.New("amount out of range")

// MoneyFromFloat converts a decimal amount to Money, rounding to the nearest
// cent. Non-finite amounts and amounts beyond MaxMoney are rejected.
func MoneyFromFloat(f float64) (Money, error) {
	cents := math.Round(f * 100)
	if math.IsNaN(cents) || math.Abs(cents) > float64(MaxMoney) {
		return 0, fmt.Errorf("%w: %v", ErrAmountOutOfRange, f)
	}
	return Money(cents), nil
}

func (m Money) Float() float64 { return float64(m) / 100 }

// Times returns m multiplied by a quantity. ok is false when the product
// leaves the ±MaxMoney range.
func (m Money) Times(qty int) (Money, bool) {
	if m == 0 || qty == 0 {
		return 0, true
	}
	if abs(m) > MaxMoney || abs(Money(qty)) > MaxMoney/abs(m) {
		return 0, false
	}
	return m * Money(qty), true
}

// Plus returns m + o. ok is false when the sum leaves the ±MaxMoney range.
func (m Money) Plus(o Money) (Money, bool) {
	if abs(m) > MaxMoney || abs(o) > MaxMoney {
		return 0, false
	}
	sum := m + o
	if abs(sum) > MaxMoney {
		return 0, false
	}
	return sum, true
}

func abs(m Money) Money {
	if m < 0 {
		return -m
	}
	return m
}

func (m Money) String() string {
	return strconv.FormatFloat(m.Float(), 'f', 2, 64)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	v, err := MoneyFromFloat(f)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
