package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/mall-cart/internal/money"
)

var (
	// ErrOrderNotFound is returned when the cart does not hold the order.
	ErrOrderNotFound = errors.New("pricing: order not found")
	// ErrDuplicateOrder is returned when an order with the same id is already in the cart.
	ErrDuplicateOrder = errors.New("pricing: duplicate order")
	// ErrEmptyOrder is returned when adding an order without items.
	ErrEmptyOrder = errors.New("pricing: order has no items")
)

// Aggregate is the full set of orders visible to one shopper. It is not safe
// for concurrent mutation; callers serialize access.
type Aggregate struct {
	Currency string
	Policy   Discounter
	// SubmitConcurrency bounds in-flight submissions; values below 1 mean unlimited.
	SubmitConcurrency int

	orders []Order
}

// NewAggregate returns an empty cart priced in currency.
func NewAggregate(currency string, policy Discounter) *Aggregate {
	return &Aggregate{Currency: strings.ToUpper(strings.TrimSpace(currency)), Policy: policy}
}

// Load replaces the order set. Orders without items are dropped.
func (a *Aggregate) Load(orders []Order) {
	a.orders = a.orders[:0]
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if o.IsEmpty() {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		a.orders = append(a.orders, o.Clone())
	}
}

// Len returns the number of orders.
func (a *Aggregate) Len() int { return len(a.orders) }

// Orders returns copies of the orders in display order.
func (a *Aggregate) Orders() []Order {
	out := make([]Order, 0, len(a.orders))
	for _, o := range a.orders {
		out = append(out, o.Clone())
	}
	return out
}

// Order returns a copy of the order with id.
func (a *Aggregate) Order(id string) (Order, bool) {
	idx := a.index(id)
	if idx < 0 {
		return Order{}, false
	}
	return a.orders[idx].Clone(), true
}

// AddOrder appends a non-empty order.
func (a *Aggregate) AddOrder(o Order) error {
	if o.IsEmpty() {
		return ErrEmptyOrder
	}
	if a.index(o.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}
	a.orders = append(a.orders, o.Clone())
	return nil
}

// AddItem adds an item to an existing order.
func (a *Aggregate) AddItem(orderID string, item LineItem) error {
	idx := a.index(orderID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return a.orders[idx].AddItem(item)
}

// MutateItem routes op to the item in the order. When the order becomes
// empty it is removed from the cart and pruned is true.
func (a *Aggregate) MutateItem(orderID, productID string, op ItemOp) (pruned bool, err error) {
	idx := a.index(orderID)
	if idx < 0 {
		return false, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	empty, err := a.orders[idx].apply(productID, op)
	if err != nil {
		return false, err
	}
	if empty {
		a.removeAt(idx)
		return true, nil
	}
	return false, nil
}

// SetCoupon stores a coupon code on the order.
func (a *Aggregate) SetCoupon(orderID, code string) error {
	idx := a.index(orderID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	a.orders[idx].SetCoupon(code)
	return nil
}

// ClearCoupon removes the coupon code from the order.
func (a *Aggregate) ClearCoupon(orderID string) error {
	idx := a.index(orderID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	a.orders[idx].ClearCoupon()
	return nil
}

// OrderTotals prices a single order.
func (a *Aggregate) OrderTotals(orderID string) (Totals, error) {
	idx := a.index(orderID)
	if idx < 0 {
		return Totals{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return a.orders[idx].Totals(a.Policy), nil
}

// GrandTotals sums per-order subtotal, discount and total.
func (a *Aggregate) GrandTotals() Totals {
	zero := money.Zero(a.Currency)
	grand := Totals{Subtotal: zero, Discount: zero, Total: zero}
	for _, o := range a.orders {
		grand = grand.Sum(o.Totals(a.Policy))
	}
	return grand
}

func (a *Aggregate) index(id string) int {
	for i := range a.orders {
		if a.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (a *Aggregate) removeAt(idx int) {
	a.orders = append(a.orders[:idx], a.orders[idx+1:]...)
}

type snapshot struct {
	Currency string  `json:"currency"`
	Orders   []Order `json:"orders"`
}

// Snapshot encodes the orders for persistence.
func (a *Aggregate) Snapshot() ([]byte, error) {
	orders := a.orders
	if orders == nil {
		orders = []Order{}
	}
	return json.Marshal(snapshot{Currency: a.Currency, Orders: orders})
}

// Restore replaces the orders with a previously encoded snapshot.
func (a *Aggregate) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("pricing: decode snapshot: %w", err)
	}
	if snap.Currency != "" {
		a.Currency = snap.Currency
	}
	a.Load(snap.Orders)
	return nil
}
