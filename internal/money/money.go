package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	// ErrInvalidAmount is returned when a value cannot be represented as whole minor units.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrCurrencyMismatch signals arithmetic across two different currencies.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// Money is an amount in minor currency units tagged with an ISO 4217 code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New constructs a Money value from minor units.
func New(minor int64, code string) Money {
	return Money{Amount: minor, Currency: normalizeCode(code)}
}

// Zero returns a zero amount in the given currency.
func Zero(code string) Money {
	return New(0, code)
}

// FromMinorUnits converts a float carrying minor units, rejecting fractional values.
func FromMinorUnits(v float64, code string) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, v)
	}
	if v != math.Trunc(v) {
		return Money{}, fmt.Errorf("%w: %v is not a whole number of minor units", ErrInvalidAmount, v)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return Money{}, fmt.Errorf("%w: %v out of range", ErrInvalidAmount, v)
	}
	return New(int64(v), code), nil
}

// FromMajor scales a major-unit decimal (e.g. 12.50) into minor units using the
// currency exponent. Values finer than one minor unit are rejected.
func FromMajor(d decimal.Decimal, code string) (Money, error) {
	shifted := d.Shift(int32(Exponent(code)))
	if !shifted.IsInteger() {
		return Money{}, fmt.Errorf("%w: %s has sub-minor-unit precision for %s", ErrInvalidAmount, d.String(), normalizeCode(code))
	}
	if !shifted.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return New(shifted.IntPart(), code), nil
}

// ParseMajor parses a decimal string in major units.
func ParseMajor(value, code string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return FromMajor(d, code)
}

// Exponent reports the number of minor-unit digits for the currency. Unknown
// codes default to two digits.
func Exponent(code string) int {
	unit, err := currency.ParseISO(normalizeCode(code))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// Major returns the exact major-unit representation.
func (m Money) Major() decimal.Decimal {
	return decimal.New(m.Amount, -int32(Exponent(m.Currency)))
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Add returns a+b. It panics with ErrInvalidAmount on int64 overflow.
func Add(a, b Money) Money {
	code := mustMatch(a, b)
	sum := a.Amount + b.Amount
	if (b.Amount > 0 && sum < a.Amount) || (b.Amount < 0 && sum > a.Amount) {
		panic(fmt.Errorf("%w: %d + %d overflows", ErrInvalidAmount, a.Amount, b.Amount))
	}
	return Money{Amount: sum, Currency: code}
}

// Subtract returns a-b without clamping; negative results are meaningful in
// intermediate math. It panics with ErrInvalidAmount on int64 overflow.
func Subtract(a, b Money) Money {
	code := mustMatch(a, b)
	diff := a.Amount - b.Amount
	if (b.Amount < 0 && diff < a.Amount) || (b.Amount > 0 && diff > a.Amount) {
		panic(fmt.Errorf("%w: %d - %d overflows", ErrInvalidAmount, a.Amount, b.Amount))
	}
	return Money{Amount: diff, Currency: code}
}

// SubtractClamped returns max(0, a-b) for display and totals.
func SubtractClamped(a, b Money) Money {
	out := Subtract(a, b)
	if out.Amount < 0 {
		out.Amount = 0
	}
	return out
}

// MultiplyByQuantity returns m × qty. It panics with ErrInvalidAmount when the
// product does not fit in int64.
func MultiplyByQuantity(m Money, qty int) Money {
	q := int64(qty)
	if m.Amount == 0 || q == 0 {
		return Money{Amount: 0, Currency: m.Currency}
	}
	product := m.Amount * q
	if product/q != m.Amount || (m.Amount == -1 && q == math.MinInt64) || (q == -1 && m.Amount == math.MinInt64) {
		panic(fmt.Errorf("%w: %d × %d overflows", ErrInvalidAmount, m.Amount, qty))
	}
	return Money{Amount: product, Currency: m.Currency}
}

// PercentageOf returns bps/10000 of m rounded half away from zero to the
// nearest minor unit (half-up for non-negative amounts).
func PercentageOf(m Money, bps int64) Money {
	v := decimal.NewFromInt(m.Amount).Mul(decimal.New(bps, -4)).Round(0)
	return Money{Amount: v.IntPart(), Currency: m.Currency}
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	code := mustMatch(a, b)
	if a.Amount <= b.Amount {
		return Money{Amount: a.Amount, Currency: code}
	}
	return Money{Amount: b.Amount, Currency: code}
}

// Format renders the amount for the given BCP 47 locale, e.g. "LKR 1,200.00".
func (m Money) Format(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	scale := Exponent(m.Currency)
	p := message.NewPrinter(tag)

	// Integer and fraction parts are formatted separately so no float is involved.
	abs := uint64(m.Amount)
	sign := ""
	if m.Amount < 0 {
		abs = -abs
		sign = "-"
	}
	unit := uint64(1)
	for i := 0; i < scale; i++ {
		unit *= 10
	}
	out := m.Currency + " " + sign + p.Sprint(number.Decimal(abs/unit))
	if scale == 0 {
		return out
	}
	fraction := p.Sprint(number.Decimal(abs%unit, number.MinIntegerDigits(scale), number.NoSeparator()))
	return out + decimalSeparator(p) + fraction
}

// decimalSeparator extracts the locale's decimal mark from a formatted 0.5.
func decimalSeparator(p *message.Printer) string {
	zero := p.Sprint(number.Decimal(0))
	five := p.Sprint(number.Decimal(5))
	half := p.Sprint(number.Decimal(0.5, number.Scale(1)))
	sep := strings.TrimSuffix(strings.TrimPrefix(half, zero), five)
	if sep == "" {
		return "."
	}
	return sep
}

// String implements fmt.Stringer using English formatting.
func (m Money) String() string {
	return m.Format("en")
}

func mustMatch(a, b Money) string {
	switch {
	case a.Currency == b.Currency:
		return a.Currency
	case a.Currency == "":
		return b.Currency
	case b.Currency == "":
		return a.Currency
	}
	panic(fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
