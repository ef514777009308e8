package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Currency is an ISO 4217 code accepted by the store.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
)

func (c Currency) valid() bool {
	switch c {
	case EUR, USD, GBP:
		return true
	}
	return false
}

// Money is a non-negative amount in minor units (cents) of one currency.
type Money struct {
	minor    int64
	currency Currency
}

// MaxPriceMinor caps a unit price at 100,000,000.00.
const MaxPriceMinor int64 = 10_000_000_000

// MaxLineQuantity caps the quantity of one cart or order line. With
// MaxPriceMinor it keeps a line subtotal within int64.
const MaxLineQuantity = 10_000

func NewMoney(minor int64, currency string) (Money, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(currency)))
	if !c.valid() {
		return Money{}, Errorf(CodeValidation, "entity.NewMoney", "unsupported currency %q", currency)
	}
	if minor < 0 {
		return Money{}, NewError(CodeValidation, "entity.NewMoney", "price cannot be negative", nil)
	}
	return Money{minor: minor, currency: c}, nil
}

// NewPrice builds Money from a decimal amount such as 19.99.
func NewPrice(amount float64, currency string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, NewError(CodeValidation, "entity.NewPrice", "price must be a finite number", nil)
	}
	if amount < 0 {
		return Money{}, NewError(CodeValidation, "entity.NewPrice", "price cannot be negative", nil)
	}
	if limit := float64(MaxPriceMinor) / 100; amount > limit {
		return Money{}, Errorf(CodeValidation, "entity.NewPrice", "price cannot exceed %.2f", limit)
	}
	return NewMoney(int64(math.Round(amount*100)), currency)
}

// ZeroMoney is the zero amount in currency.
func ZeroMoney(currency Currency) Money {
	return Money{currency: currency}
}

func (m Money) Minor() int64 { return m.minor }
func (m Money) Currency() Currency { return m.currency }
func (m Money) IsZero() bool { return m.minor == 0 }
func (m Money) Float() float64 { return float64(m.minor) / 100 }

func (m Money) Equals(o Money) bool {
	return m.minor == o.minor && m.currency == o.currency
}

func (m Money) Add(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, Errorf(CodeValidation, "entity.Money.Add", "cannot add %s to %s", o.currency, m.currency)
	}
	if o.minor > 0 && m.minor > math.MaxInt64-o.minor {
		return Money{}, NewError(CodeInvariantViolation, "entity.Money.Add", "amount overflows", nil)
	}
	return Money{minor: m.minor + o.minor, currency: m.currency}, nil
}

func (m Money) Multiply(n int) (Money, error) {
	const op = "entity.Money.Multiply"
	if n < 0 {
		return Money{}, Errorf(CodeInvalidArgument, op, "cannot multiply by %d", n)
	}
	if n > 0 && m.minor > math.MaxInt64/int64(n) {
		return Money{}, NewError(CodeInvariantViolation, op, "amount overflows", nil)
	}
	return Money{minor: m.minor * int64(n), currency: m.currency}, nil
}

// Decimal renders the amount with two decimals, e.g. "19.99".
func (m Money) Decimal() string {
	return fmt.Sprintf("%d.%02d", m.minor/100, m.minor%100)
}

func (m Money) String() string {
	return m.Decimal() + " " + string(m.currency)
}

type moneyJSON struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.minor, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := NewMoney(raw.Amount, string(raw.Currency))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
