package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mall-cart/internal/coupon"
	"github.com/noah-isme/mall-cart/internal/money"
)

func lkr(v int64) money.Money { return money.New(v, "LKR") }

func TestComputeWithoutCoupon(t *testing.T) {
	items := []LineItem{
		{ProductID: "p1", UnitPrice: lkr(25), Quantity: 3},
		{ProductID: "p2", UnitPrice: lkr(10), Quantity: 2},
	}
	totals := Compute(items, "", "LKR", coupon.Default())
	if totals.Subtotal.Amount != 95 {
		t.Fatalf("expected subtotal 95, got %d", totals.Subtotal.Amount)
	}
	if totals.Discount.Amount != 0 {
		t.Fatalf("expected no discount, got %d", totals.Discount.Amount)
	}
	if totals.Total.Amount != 95 {
		t.Fatalf("expected total 95, got %d", totals.Total.Amount)
	}
}

func TestComputeWithLowercaseCoupon(t *testing.T) {
	items := []LineItem{{ProductID: "p3", UnitPrice: lkr(1200), Quantity: 1}}
	totals := Compute(items, "save10", "LKR", coupon.Default())
	require.Equal(t, int64(1200), totals.Subtotal.Amount)
	require.Equal(t, int64(120), totals.Discount.Amount)
	require.Equal(t, int64(1080), totals.Total.Amount)
}

type greedyDiscounter struct{}

func (greedyDiscounter) DiscountFor(_ string, subtotal money.Money) money.Money {
	return money.Add(subtotal, lkr(500))
}

type negativeDiscounter struct{}

func (negativeDiscounter) DiscountFor(_ string, subtotal money.Money) money.Money {
	return money.New(-50, subtotal.Currency)
}

func TestComputeClampsTotal(t *testing.T) {
	items := []LineItem{{ProductID: "p1", UnitPrice: lkr(100), Quantity: 1}}

	totals := Compute(items, "ANY", "LKR", greedyDiscounter{})
	require.Equal(t, int64(0), totals.Total.Amount)

	totals = Compute(items, "ANY", "LKR", negativeDiscounter{})
	require.Equal(t, int64(0), totals.Discount.Amount)
	require.Equal(t, int64(100), totals.Total.Amount)

	totals = Compute(items, "SAVE10", "LKR", nil)
	require.Equal(t, int64(100), totals.Total.Amount)
}

func TestOrderTotalsConsistency(t *testing.T) {
	policy := coupon.Default()
	for _, price := range []int64{0, 1, 5, 14, 15, 99, 1200, 123457} {
		for _, qty := range []int{1, 2, 7} {
			o := Order{ID: "o", Items: []LineItem{{ProductID: "p", UnitPrice: lkr(price), Quantity: qty}}}
			o.SetCoupon("SAVE10")
			totals := o.Totals(policy)
			require.GreaterOrEqual(t, totals.Total.Amount, int64(0))
			require.LessOrEqual(t, totals.Discount.Amount, totals.Subtotal.Amount)
			require.Equal(t, totals.Total.Amount, totals.Subtotal.Amount-totals.Discount.Amount)
		}
	}
}
