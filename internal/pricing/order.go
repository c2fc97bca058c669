package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/mall-cart/internal/coupon"
)

var (
	// ErrDuplicateItem is returned when an order already holds the product.
	ErrDuplicateItem = errors.New("pricing: duplicate item")
	// ErrItemNotFound is returned when the product is not part of the order.
	ErrItemNotFound = errors.New("pricing: item not found")
)

// DraftPrefix marks orders that exist only locally and have not been created remotely.
const DraftPrefix = "draft-"

// Order is a shop-scoped collection of line items with an optional coupon.
type Order struct {
	ID           string     `json:"id"`
	ShopID       string     `json:"shopId"`
	MallID       string     `json:"mallId"`
	CustomerName string     `json:"customerName,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	Items        []LineItem `json:"items"`
	CouponCode   string     `json:"couponCode,omitempty"`
	Dirty        bool       `json:"dirty,omitempty"`
}

// NewDraft returns an empty local order for the shop.
func NewDraft(shopID, mallID string, now time.Time) Order {
	return Order{
		ID:        DraftPrefix + uuid.NewString(),
		ShopID:    strings.TrimSpace(shopID),
		MallID:    strings.TrimSpace(mallID),
		CreatedAt: now.UTC(),
		Dirty:     true,
	}
}

// IsDraft reports whether the order has never been created on the order service.
func (o Order) IsDraft() bool {
	return o.ID == "" || strings.HasPrefix(o.ID, DraftPrefix)
}

// IsEmpty reports whether the order has no items.
func (o Order) IsEmpty() bool { return len(o.Items) == 0 }

// Currency returns the currency of the first item.
func (o Order) Currency() string {
	for _, it := range o.Items {
		if it.UnitPrice.Currency != "" {
			return it.UnitPrice.Currency
		}
	}
	return ""
}

// Item returns a pointer to the item for productID.
func (o *Order) Item(productID string) (*LineItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// AddItem appends the item, rejecting products already in the order.
func (o *Order) AddItem(item LineItem) error {
	if _, exists := o.Item(item.ProductID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ProductID)
	}
	item.Quantity = ClampQuantity(item.Quantity)
	o.Items = append(o.Items, item)
	o.Dirty = true
	return nil
}

// RemoveItem drops the item for productID. The returned flag reports that
// the order became empty and should be pruned by its owner.
func (o *Order) RemoveItem(productID string) (bool, error) {
	for i := range o.Items {
		if o.Items[i].ProductID != productID {
			continue
		}
		o.Items = append(o.Items[:i], o.Items[i+1:]...)
		o.Dirty = true
		return len(o.Items) == 0, nil
	}
	return false, fmt.Errorf("%w: %s", ErrItemNotFound, productID)
}

// SetCoupon stores the normalized code. Validation happens at pricing time.
func (o *Order) SetCoupon(code string) {
	o.CouponCode = coupon.Normalize(code)
	o.Dirty = true
}

// ClearCoupon removes any coupon code.
func (o *Order) ClearCoupon() {
	if o.CouponCode == "" {
		return
	}
	o.CouponCode = ""
	o.Dirty = true
}

// Totals recomputes subtotal, discount and total.
func (o Order) Totals(d Discounter) Totals {
	return Compute(o.Items, o.CouponCode, o.Currency(), d)
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	out := o
	out.Items = append([]LineItem(nil), o.Items...)
	return out
}

func (o *Order) apply(productID string, op ItemOp) (bool, error) {
	if op.kind == opRemove {
		return o.RemoveItem(productID)
	}
	item, ok := o.Item(productID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrItemNotFound, productID)
	}
	switch op.kind {
	case opSet:
		item.SetQuantity(op.qty)
	case opIncrement:
		item.Increment()
	case opDecrement:
		item.Decrement()
	default:
		return false, fmt.Errorf("pricing: unknown item operation %d", op.kind)
	}
	o.Dirty = true
	return false, nil
}

type opKind int

const (
	opSet opKind = iota + 1
	opIncrement
	opDecrement
	opRemove
)

// ItemOp is a quantity change or removal routed to a line item.
type ItemOp struct {
	kind opKind
	qty  int
}

// SetQuantity sets the item quantity, clamped to at least 1.
func SetQuantity(n int) ItemOp { return ItemOp{kind: opSet, qty: n} }

// Increment adds one unit.
func Increment() ItemOp { return ItemOp{kind: opIncrement} }

// Decrement removes one unit, stopping at 1.
func Decrement() ItemOp { return ItemOp{kind: opDecrement} }

// Remove deletes the item.
func Remove() ItemOp { return ItemOp{kind: opRemove} }

// String names the operation for logs.
func (op ItemOp) String() string {
	switch op.kind {
	case opSet:
		return fmt.Sprintf("set_quantity(%d)", op.qty)
	case opIncrement:
		return "increment"
	case opDecrement:
		return "decrement"
	case opRemove:
		return "remove"
	}
	return "unknown"
}
