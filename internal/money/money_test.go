package money_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mall-cart/internal/money"
)

func TestFromMinorUnitsRejectsFractions(t *testing.T) {
	_, err := money.FromMinorUnits(10.5, "LKR")
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.FromMinorUnits(math.NaN(), "LKR")
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	m, err := money.FromMinorUnits(1200, "lkr")
	require.NoError(t, err)
	require.Equal(t, money.New(1200, "LKR"), m)
}

func TestFromMajorScalesByExponent(t *testing.T) {
	m, err := money.FromMajor(decimal.RequireFromString("12.5"), "USD")
	require.NoError(t, err)
	require.Equal(t, int64(1250), m.Amount)

	yen, err := money.FromMajor(decimal.NewFromInt(500), "JPY")
	require.NoError(t, err)
	require.Equal(t, int64(500), yen.Amount)

	_, err = money.FromMajor(decimal.RequireFromString("0.001"), "USD")
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.ParseMajor("abc", "USD")
	require.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestArithmetic(t *testing.T) {
	a := money.New(300, "LKR")
	b := money.New(500, "LKR")

	require.Equal(t, int64(800), money.Add(a, b).Amount)
	require.Equal(t, int64(-200), money.Subtract(a, b).Amount)
	require.Equal(t, int64(0), money.SubtractClamped(a, b).Amount)
	require.Equal(t, int64(900), money.MultiplyByQuantity(a, 3).Amount)
	require.Equal(t, "LKR", money.Add(money.Money{}, a).Currency)
}

func TestCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, money.ErrCurrencyMismatch))
	}()
	money.Add(money.New(1, "LKR"), money.New(1, "USD"))
}

func TestPercentageOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{amount: 1200, bps: 1000, want: 120},
		{amount: 5, bps: 1000, want: 1},  // 0.5 rounds up
		{amount: 14, bps: 1000, want: 1}, // 1.4 rounds down
		{amount: 15, bps: 1000, want: 2}, // 1.5 rounds up
		{amount: 999, bps: 2500, want: 250},
		{amount: 0, bps: 1000, want: 0},
	}
	for _, tc := range cases {
		got := money.PercentageOf(money.New(tc.amount, "LKR"), tc.bps)
		require.Equalf(t, tc.want, got.Amount, "amount=%d bps=%d", tc.amount, tc.bps)
	}
}

func TestFormat(t *testing.T) {
	out := money.New(120000, "LKR").Format("en-LK")
	require.True(t, strings.HasPrefix(out, "LKR "), out)
	require.Contains(t, out, "1,200")

	require.Contains(t, money.New(120000, "LKR").Format("not a locale"), "1,200")
}

func requireInvalidAmountPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, money.ErrInvalidAmount)
	}()
	fn()
}

func TestArithmeticOverflowPanics(t *testing.T) {
	big := money.New(math.MaxInt64/2+1, "LKR")
	requireInvalidAmountPanic(t, func() { money.MultiplyByQuantity(big, 2) })
	requireInvalidAmountPanic(t, func() { money.MultiplyByQuantity(money.New(200, "LKR"), math.MaxInt64/100+1) })
	requireInvalidAmountPanic(t, func() { money.Add(big, big) })
	requireInvalidAmountPanic(t, func() { money.Subtract(money.New(math.MinInt64, "LKR"), money.New(1, "LKR")) })

	require.Equal(t, int64(math.MaxInt64-1), money.MultiplyByQuantity(money.New(math.MaxInt64/2, "LKR"), 2).Amount)
	require.Equal(t, int64(-6), money.MultiplyByQuantity(money.New(-2, "LKR"), 3).Amount)
}

func TestFromMinorUnitsRejectsOutOfRange(t *testing.T) {
	_, err := money.FromMinorUnits(math.Exp2(63), "LKR")
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	m, err := money.FromMinorUnits(-math.Exp2(63), "LKR")
	require.NoError(t, err)
	require.Equal(t, int64(math.MinInt64), m.Amount)
}

func TestFormatIsExactForLargeAmounts(t *testing.T) {
	require.Equal(t, "LKR 92,233,720,368,547,758.07", money.New(math.MaxInt64, "LKR").Format("en"))
	require.Equal(t, "LKR 90,071,992,547,409.93", money.New(1<<53+1, "LKR").Format("en"))
	require.Equal(t, "LKR -0.05", money.New(-5, "LKR").Format("en"))
	require.Equal(t, "JPY 1,200", money.New(1200, "JPY").Format("en"))
	require.Equal(t, "LKR 1.234,50", money.New(123450, "LKR").Format("de"))
}
