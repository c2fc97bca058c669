package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/mall-cart/internal/money"
)

// ErrInvalidItem is returned when a line item is missing its product or carries a price out of range.
var ErrInvalidItem = errors.New("pricing: invalid line item")

const (
	// MaxQuantity is the largest quantity a line item may hold.
	MaxQuantity = 9999
	// MaxUnitPrice bounds unit prices in minor units so line and order totals stay within int64.
	MaxUnitPrice = 1_000_000_000_000
)

// LineItem is one product entry within an order.
type LineItem struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name,omitempty"`
	UnitPrice money.Money `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
}

// NewLineItem validates and constructs a line item with a clamped quantity.
func NewLineItem(productID, name string, unitPrice money.Money, qty int) (LineItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return LineItem{}, fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if unitPrice.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: negative unit price for %s", ErrInvalidItem, productID)
	}
	if unitPrice.Amount > MaxUnitPrice {
		return LineItem{}, fmt.Errorf("%w: unit price for %s exceeds %d minor units", ErrInvalidItem, productID, int64(MaxUnitPrice))
	}
	return LineItem{
		ProductID: productID,
		Name:      strings.TrimSpace(name),
		UnitPrice: unitPrice,
		Quantity:  ClampQuantity(qty),
	}, nil
}

// LineTotal returns unit price × quantity.
func (li LineItem) LineTotal() money.Money {
	return money.MultiplyByQuantity(li.UnitPrice, ClampQuantity(li.Quantity))
}

// SetQuantity stores q clamped to [1, MaxQuantity].
func (li *LineItem) SetQuantity(q int) {
	li.Quantity = ClampQuantity(q)
}

// Increment adds one unit.
func (li *LineItem) Increment() {
	li.Quantity = ClampQuantity(li.Quantity + 1)
}

// Decrement removes one unit; at 1 it is a no-op.
func (li *LineItem) Decrement() {
	li.Quantity = ClampQuantity(li.Quantity - 1)
}

// ClampQuantity bounds q to [1, MaxQuantity].
func ClampQuantity(q int) int {
	switch {
	case q < 1:
		return 1
	case q > MaxQuantity:
		return MaxQuantity
	}
	return q
}

// ParseQuantity interprets user input as a quantity. Anything that is not a
// whole number falls back to 1 before clamping; integers too large to parse
// clamp to MaxQuantity.
func ParseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return MaxQuantity
		}
		return 1
	}
	return ClampQuantity(n)
}
