package pricing

import "github.com/noah-isme/mall-cart/internal/money"

// Discounter maps a coupon code and subtotal to a discount amount.
type Discounter interface {
	DiscountFor(code string, subtotal money.Money) money.Money
}

// Totals aggregates computed pricing components.
type Totals struct {
	Subtotal money.Money `json:"subtotal"`
	Discount money.Money `json:"discount"`
	Total    money.Money `json:"total"`
}

// Compute calculates totals for the provided items and coupon code. A nil
// discounter grants no discount.
func Compute(items []LineItem, couponCode string, currency string, d Discounter) Totals {
	subtotal := money.Zero(currency)
	for _, it := range items {
		subtotal = money.Add(subtotal, it.LineTotal())
	}
	discount := money.Zero(subtotal.Currency)
	if d != nil && couponCode != "" {
		discount = d.DiscountFor(couponCode, subtotal)
		if discount.IsNegative() {
			discount = money.Zero(subtotal.Currency)
		}
	}
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    money.SubtractClamped(subtotal, discount),
	}
}

// Sum adds b to a component-wise.
func (t Totals) Sum(b Totals) Totals {
	return Totals{
		Subtotal: money.Add(t.Subtotal, b.Subtotal),
		Discount: money.Add(t.Discount, b.Discount),
		Total:    money.Add(t.Total, b.Total),
	}
}
