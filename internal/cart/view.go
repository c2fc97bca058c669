package cart

import (
	"time"

	"github.com/noah-isme/mall-cart/internal/money"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

// Amount is a money value rendered for the storefront.
type Amount struct {
	Minor     int64  `json:"minor"`
	Major     string `json:"major"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

// TotalsView renders pricing.Totals.
type TotalsView struct {
	Subtotal Amount `json:"subtotal"`
	Discount Amount `json:"discount"`
	Total    Amount `json:"total"`
}

// ItemView renders one line item.
type ItemView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Amount `json:"unitPrice"`
	LineTotal Amount `json:"lineTotal"`
}

// OrderView renders one order with its totals.
type OrderView struct {
	ID            string     `json:"id"`
	ShopID        string     `json:"shopId"`
	MallID        string     `json:"mallId"`
	CustomerName  string     `json:"customerName,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	Draft         bool       `json:"draft"`
	Pending       bool       `json:"pendingChanges"`
	CouponCode    string     `json:"couponCode,omitempty"`
	CouponApplied bool       `json:"couponApplied"`
	Items         []ItemView `json:"items"`
	Totals        TotalsView `json:"totals"`
}

// View is the priced cart returned by every cart endpoint.
type View struct {
	Currency string      `json:"currency"`
	Source   string      `json:"source"`
	Warning  string      `json:"warning,omitempty"`
	Orders   []OrderView `json:"orders"`
	Totals   TotalsView  `json:"totals"`
}

// View renders the loaded cart in the configured display locale.
func (s *Service) View(l Loaded) View {
	agg := l.Cart
	out := View{
		Currency: agg.Currency,
		Source:   l.Source,
		Warning:  l.Warning,
		Orders:   make([]OrderView, 0, agg.Len()),
		Totals:   s.RenderTotals(agg.GrandTotals()),
	}
	for _, o := range agg.Orders() {
		out.Orders = append(out.Orders, s.RenderOrder(o, o.Totals(agg.Policy)))
	}
	return out
}

// RenderOrder renders a single order with precomputed totals.
func (s *Service) RenderOrder(o pricing.Order, t pricing.Totals) OrderView {
	_, known := s.Policy.Lookup(o.CouponCode)
	ov := OrderView{
		ID:            o.ID,
		ShopID:        o.ShopID,
		MallID:        o.MallID,
		CustomerName:  o.CustomerName,
		CreatedAt:     o.CreatedAt,
		Draft:         o.IsDraft(),
		Pending:       o.Dirty,
		CouponCode:    o.CouponCode,
		CouponApplied: o.CouponCode != "" && known && !t.Discount.IsZero(),
		Items:         make([]ItemView, 0, len(o.Items)),
		Totals:        s.RenderTotals(t),
	}
	for _, it := range o.Items {
		ov.Items = append(ov.Items, ItemView{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: s.amount(it.UnitPrice),
			LineTotal: s.amount(it.LineTotal()),
		})
	}
	return ov
}

// RenderTotals renders totals in the display locale.
func (s *Service) RenderTotals(t pricing.Totals) TotalsView {
	return TotalsView{
		Subtotal: s.amount(t.Subtotal),
		Discount: s.amount(t.Discount),
		Total:    s.amount(t.Total),
	}
}

func (s *Service) amount(m money.Money) Amount {
	if m.Currency == "" {
		m.Currency = s.Currency
	}
	return Amount{
		Minor:     m.Amount,
		Major:     m.Major().StringFixed(int32(money.Exponent(m.Currency))),
		Currency:  m.Currency,
		Formatted: m.Format(s.Locale),
	}
}
