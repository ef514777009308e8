package entity

import (
	"math"
	"strings"
	"testing"
)

func TestNewSKU(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"ABC-123", true, "ABC-123"},
		{"  SKU-9  ", true, "SKU-9"},
		{"abc 123", false, ""},
		{"abc-123", false, ""},
		{"", false, ""},
		{"   ", false, ""},
		{"A_B", false, ""},
	}
	for _, tc := range cases {
		got, err := NewSKU(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("NewSKU(%q): unexpected err: %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("NewSKU(%q): want=%q got=%q", tc.in, tc.want, got.String())
			}
			continue
		}
		if !IsCode(err, CodeValidation) {
			t.Fatalf("NewSKU(%q): want validation error, got %v", tc.in, err)
		}
	}

	long := ""
	for i := 0; i < 51; i++ {
		long += "A"
	}
	if _, err := NewSKU(long); !IsCode(err, CodeValidation) {
		t.Fatalf("NewSKU(51 chars): want validation error, got %v", err)
	}
}

func TestNewPrice(t *testing.T) {
	p, err := NewPrice(19.99, "EUR")
	if err != nil {
		t.Fatalf("NewPrice: %v", err)
	}
	if p.Minor() != 1999 {
		t.Fatalf("minor: want=1999 got=%d", p.Minor())
	}
	if p.String() != "19.99 EUR" {
		t.Fatalf("String: want=%q got=%q", "19.99 EUR", p.String())
	}
	if _, err := NewPrice(-1, "EUR"); !IsCode(err, CodeValidation) {
		t.Fatalf("negative amount: want validation got %v", err)
	}
	if _, err := NewPrice(1, "JPY"); !IsCode(err, CodeValidation) {
		t.Fatalf("unsupported currency: want validation got %v", err)
	}
	zero, err := NewPrice(0, "usd")
	if err != nil || zero.Currency() != USD {
		t.Fatalf("zero usd: want USD got %v err=%v", zero.Currency(), err)
	}
}

func TestNewPriceRejectsHugeAmounts(t *testing.T) {
	for _, amount := range []float64{1e300, float64(math.MaxInt64), 100_000_000.01} {
		_, err := NewPrice(amount, "EUR")
		if !IsCode(err, CodeValidation) {
			t.Fatalf("NewPrice(%g): want validation got %v", amount, err)
		}
		if strings.Contains(err.Error(), "negative") {
			t.Fatalf("NewPrice(%g): misleading error %q", amount, err)
		}
	}
	top, err := NewPrice(100_000_000, "EUR")
	if err != nil || top.Minor() != MaxPriceMinor {
		t.Fatalf("NewPrice at cap: want=%d got=%d err=%v", MaxPriceMinor, top.Minor(), err)
	}
}

func TestMoneyOverflow(t *testing.T) {
	huge := Money{minor: math.MaxInt64 - 1, currency: EUR}
	two, _ := NewMoney(2, "EUR")
	if _, err := huge.Add(two); !IsCode(err, CodeInvariantViolation) {
		t.Fatalf("Add overflow: want invariant violation got %v", err)
	}
	if _, err := huge.Multiply(2); !IsCode(err, CodeInvariantViolation) {
		t.Fatalf("Multiply overflow: want invariant violation got %v", err)
	}
	if _, err := two.Multiply(-1); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("Multiply negative: want invalid argument got %v", err)
	}
	if got, err := two.Multiply(0); err != nil || !got.IsZero() {
		t.Fatalf("Multiply zero: got %s err=%v", got, err)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	ten, _ := NewMoney(1000, "EUR")
	if got, err := ten.Multiply(3); err != nil || got.Decimal() != "30.00" {
		t.Fatalf("Multiply: want=30.00 got=%s err=%v", got.Decimal(), err)
	}
	five, _ := NewMoney(505, "EUR")
	sum, err := ten.Add(five)
	if err != nil || sum.Decimal() != "15.05" {
		t.Fatalf("Add: want=15.05 got=%s err=%v", sum.Decimal(), err)
	}
	usd, _ := NewMoney(100, "USD")
	if _, err := ten.Add(usd); !IsCode(err, CodeValidation) {
		t.Fatalf("Add mixed currency: want validation got %v", err)
	}
}

func TestNewEmail(t *testing.T) {
	e, err := NewEmail("  Jane.Doe@Example.COM ")
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	if e.String() != "jane.doe@example.com" {
		t.Fatalf("normalized: want=%q got=%q", "jane.doe@example.com", e.String())
	}
	for _, bad := range []string{"", "nope", "a@b", "a b@c.de", "@c.de"} {
		if _, err := NewEmail(bad); !IsCode(err, CodeValidation) {
			t.Fatalf("NewEmail(%q): want validation got %v", bad, err)
		}
	}
}

func TestNewAddress(t *testing.T) {
	a, err := NewAddress("1 Main St", "Madrid", "28001", "es")
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if a.Country != "ES" {
		t.Fatalf("country: want=ES got=%s", a.Country)
	}
	if _, err := NewAddress("1 Main St", "Madrid", "28001", "ESP"); !IsCode(err, CodeValidation) {
		t.Fatalf("alpha-3 country: want validation got %v", err)
	}
	if _, err := NewAddress("", "Madrid", "28001", "ES"); !IsCode(err, CodeValidation) {
		t.Fatalf("empty street: want validation got %v", err)
	}
}
