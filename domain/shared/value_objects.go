package shared

import "errors"

// Money value object. Amounts are stored in the smallest currency unit
// (cents/fen) to keep arithmetic exact. The zero value is a usable
// "no money yet" accumulator: it adds to anything.
type Money struct {
	amount   int64
	currency string
}

// NewMoney creates a Money value. Negative amounts are rejected;
// refunds and adjustments are modelled as separate positive values.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, errors.New("money amount cannot be negative")
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney is NewMoney for compile-time-constant amounts, mostly in
// tests.
func MustMoney(amount int64, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the amount in minor units.
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the currency code.
func (m Money) Currency() string {
	return m.currency
}

// IsZero reports whether this is the zero accumulator.
func (m Money) IsZero() bool {
	return m.amount == 0 && m.currency == ""
}

// Add returns the sum as a new value; currencies must match, except
// that the zero value takes on the other side's currency.
func (m Money) Add(other Money) (Money, error) {
	if m.IsZero() {
		return other, nil
	}
	if other.IsZero() {
		return m, nil
	}
	if m.currency != other.currency {
		return Money{}, errors.New("cannot add money with different currencies")
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns the difference as a new value; currencies must
// match and the result cannot go negative.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency && !other.IsZero() {
		return Money{}, errors.New("cannot subtract money with different currencies")
	}
	if other.amount > m.amount {
		return Money{}, errors.New("money subtraction would go negative")
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Multiply scales the amount by a non-negative factor with an overflow
// check.
func (m Money) Multiply(factor int64) (Money, error) {
	if factor < 0 {
		return Money{}, errors.New("cannot multiply money by a negative factor")
	}
	if factor != 0 && m.amount > (1<<62)/factor {
		return Money{}, errors.New("money multiplication overflow")
	}
	return Money{amount: m.amount * factor, currency: m.currency}, nil
}

// IsGreaterThanOrEqual compares amounts.
func (m Money) IsGreaterThanOrEqual(other Money) bool {
	return m.amount >= other.amount
}

// Equals compares amount and currency.
func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}
