package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/coupon"
	"github.com/noah-isme/mall-cart/internal/lock"
	"github.com/noah-isme/mall-cart/internal/money"
	"github.com/noah-isme/mall-cart/internal/obs"
	"github.com/noah-isme/mall-cart/internal/orderclient"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

// Cart sources reported in views and fallback metrics.
const (
	SourceOrderService = "order_service"
	SourceCache        = "cache"
	SourceSample       = "sample"
)

const warnOffline = "order service unavailable; showing last known cart"

// Orders is the order service surface the cart needs for one shopper.
type Orders interface {
	ListOrders(ctx context.Context, f orderclient.Filter) ([]pricing.Order, error)
	pricing.Submitter
}

// BindFunc opens an order service session for a bearer token.
type BindFunc func(token string) (Orders, error)

// BindClient adapts an order service client to BindFunc.
func BindClient(c *orderclient.Client) BindFunc {
	return func(token string) (Orders, error) {
		s, err := c.Bind(token)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// ItemInput describes a line item supplied by the storefront. UnitPrice is a
// major-unit decimal string.
type ItemInput struct {
	ProductID string
	Name      string
	UnitPrice string
	Quantity  int
}

// OrderInput describes a new local order.
type OrderInput struct {
	ShopID       string
	MallID       string
	CustomerName string
	Items        []ItemInput
}

// Service encapsulates per-shopper cart workflows. The aggregate lives in
// Redis between requests and every read-modify-write runs under the
// shopper's lock.
type Service struct {
	Store             *Store
	Locker            lock.Locker
	Bind              BindFunc
	Policy            coupon.Policy
	Currency          string
	Locale            string
	LockTTL           time.Duration
	SubmitConcurrency int
	SampleFallback    bool
	Now               func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.LockTTL
}

// Loaded is an aggregate together with where it came from.
type Loaded struct {
	Cart    *pricing.Aggregate
	Source  string
	Warning string
}

func (s *Service) newAggregate() *pricing.Aggregate {
	agg := pricing.NewAggregate(s.Currency, s.Policy)
	agg.SubmitConcurrency = s.SubmitConcurrency
	return agg
}

// Load returns the shopper's cart. A cached snapshot is used unless refresh is
// set; otherwise orders are fetched from the order service. When the service
// is unreachable the cached snapshot, then the sample order set, is served
// with a warning.
func (s *Service) Load(ctx context.Context, sess common.Session, f orderclient.Filter, refresh bool) (View, error) {
	var view View
	err := s.Locker.WithLock(ctx, sess.Shopper, s.lockTTL(), func(ctx context.Context) error {
		loaded, err := s.current(ctx, sess, f, refresh)
		if err != nil {
			return err
		}
		view = s.View(loaded)
		return nil
	})
	return view, err
}

// Mutate runs fn against the shopper's cart under the cart lock and persists
// the result when fn succeeds.
func (s *Service) Mutate(ctx context.Context, sess common.Session, fn func(ctx context.Context, l *Loaded) error) (View, error) {
	var view View
	err := s.Locker.WithLock(ctx, sess.Shopper, s.lockTTL(), func(ctx context.Context) error {
		loaded, err := s.current(ctx, sess, orderclient.Filter{}, false)
		if err != nil {
			return err
		}
		if err := fn(ctx, &loaded); err != nil {
			return err
		}
		if cause := context.Cause(ctx); errors.Is(cause, lock.ErrLost) {
			return cause
		}
		if err := s.Store.Put(context.WithoutCancel(ctx), sess.Shopper, loaded.Cart); err != nil {
			return fmt.Errorf("cart: save snapshot: %w", err)
		}
		view = s.View(loaded)
		return nil
	})
	return view, err
}

func (s *Service) current(ctx context.Context, sess common.Session, f orderclient.Filter, refresh bool) (Loaded, error) {
	logger := zerolog.Ctx(ctx)
	agg := s.newAggregate()
	if !refresh {
		found, err := s.Store.Get(ctx, sess.Shopper, agg)
		if err != nil {
			logger.Warn().Err(err).Msg("cart snapshot unreadable; refetching")
			agg = s.newAggregate()
		} else if found {
			return Loaded{Cart: agg, Source: SourceCache}, nil
		}
	}

	orders, err := s.fetch(ctx, sess, f)
	if err == nil {
		agg.Load(orders)
		if err := s.Store.Put(ctx, sess.Shopper, agg); err != nil {
			logger.Warn().Err(err).Msg("cart snapshot not saved")
		}
		return Loaded{Cart: agg, Source: SourceOrderService}, nil
	}
	if !errors.Is(err, orderclient.ErrNetwork) {
		return Loaded{}, err
	}

	logger.Warn().Err(err).Msg("order service unreachable; using fallback cart")
	cached := s.newAggregate()
	if found, cacheErr := s.Store.Get(ctx, sess.Shopper, cached); cacheErr == nil && found {
		obs.RecordFallback(SourceCache)
		return Loaded{Cart: cached, Source: SourceCache, Warning: warnOffline}, nil
	}
	if !s.SampleFallback {
		return Loaded{}, err
	}
	agg.Load(SampleOrders(s.Currency))
	if err := s.Store.Put(ctx, sess.Shopper, agg); err != nil {
		logger.Warn().Err(err).Msg("cart snapshot not saved")
	}
	obs.RecordFallback(SourceSample)
	return Loaded{Cart: agg, Source: SourceSample, Warning: warnOffline}, nil
}

func (s *Service) fetch(ctx context.Context, sess common.Session, f orderclient.Filter) ([]pricing.Order, error) {
	if s.Bind == nil {
		return nil, errors.New("cart: order service not configured")
	}
	orders, err := s.Bind(sess.Token)
	if err != nil {
		return nil, err
	}
	return orders.ListOrders(ctx, f)
}

// Session opens an order service session for the shopper.
func (s *Service) Session(sess common.Session) (Orders, error) {
	if s.Bind == nil {
		return nil, errors.New("cart: order service not configured")
	}
	return s.Bind(sess.Token)
}

func (s *Service) lineItem(in ItemInput) (pricing.LineItem, error) {
	price, err := money.ParseMajor(in.UnitPrice, s.Currency)
	if err != nil {
		return pricing.LineItem{}, err
	}
	return pricing.NewLineItem(in.ProductID, in.Name, price, in.Quantity)
}

// AddOrder creates a local draft order with the given items.
func (s *Service) AddOrder(ctx context.Context, sess common.Session, in OrderInput) (View, error) {
	draft := pricing.NewDraft(in.ShopID, in.MallID, s.now())
	draft.CustomerName = in.CustomerName
	for _, it := range in.Items {
		item, err := s.lineItem(it)
		if err != nil {
			return View{}, err
		}
		if err := draft.AddItem(item); err != nil {
			return View{}, err
		}
	}
	view, err := s.Mutate(ctx, sess, func(_ context.Context, l *Loaded) error {
		return l.Cart.AddOrder(draft)
	})
	obs.RecordMutation("add_order", err)
	return view, err
}

// AddItem adds a product to an existing order.
func (s *Service) AddItem(ctx context.Context, sess common.Session, orderID string, in ItemInput) (View, error) {
	item, err := s.lineItem(in)
	if err != nil {
		obs.RecordMutation("add_item", err)
		return View{}, err
	}
	view, err := s.Mutate(ctx, sess, func(_ context.Context, l *Loaded) error {
		return l.Cart.AddItem(orderID, item)
	})
	obs.RecordMutation("add_item", err)
	return view, err
}

func (s *Service) mutateItem(ctx context.Context, sess common.Session, orderID, productID string, op pricing.ItemOp, name string) (View, error) {
	view, err := s.Mutate(ctx, sess, func(ctx context.Context, l *Loaded) error {
		pruned, err := l.Cart.MutateItem(orderID, productID, op)
		if err != nil {
			return err
		}
		if pruned {
			zerolog.Ctx(ctx).Debug().Str("order_id", orderID).Msg("order emptied and removed from cart")
		}
		return nil
	})
	obs.RecordMutation(name, err)
	return view, err
}

// SetQuantity sets an item quantity, clamped to at least 1.
func (s *Service) SetQuantity(ctx context.Context, sess common.Session, orderID, productID string, n int) (View, error) {
	return s.mutateItem(ctx, sess, orderID, productID, pricing.SetQuantity(n), "set_quantity")
}

// ParseAndSetQuantity sets an item quantity from raw storefront input.
// Non-numeric input counts as 1.
func (s *Service) ParseAndSetQuantity(ctx context.Context, sess common.Session, orderID, productID, raw string) (View, error) {
	return s.SetQuantity(ctx, sess, orderID, productID, pricing.ParseQuantity(raw))
}

// Increment adds one unit of the item.
func (s *Service) Increment(ctx context.Context, sess common.Session, orderID, productID string) (View, error) {
	return s.mutateItem(ctx, sess, orderID, productID, pricing.Increment(), "increment")
}

// Decrement removes one unit of the item, stopping at 1.
func (s *Service) Decrement(ctx context.Context, sess common.Session, orderID, productID string) (View, error) {
	return s.mutateItem(ctx, sess, orderID, productID, pricing.Decrement(), "decrement")
}

// RemoveItem deletes the item, pruning the order when it becomes empty.
func (s *Service) RemoveItem(ctx context.Context, sess common.Session, orderID, productID string) (View, error) {
	return s.mutateItem(ctx, sess, orderID, productID, pricing.Remove(), "remove_item")
}

// ApplyCoupon stores a coupon code on the order. Unknown codes are kept and
// price to a zero discount.
func (s *Service) ApplyCoupon(ctx context.Context, sess common.Session, orderID, code string) (View, error) {
	view, err := s.Mutate(ctx, sess, func(_ context.Context, l *Loaded) error {
		return l.Cart.SetCoupon(orderID, code)
	})
	obs.RecordMutation("apply_coupon", err)
	return view, err
}

// RemoveCoupon clears the order's coupon code.
func (s *Service) RemoveCoupon(ctx context.Context, sess common.Session, orderID string) (View, error) {
	view, err := s.Mutate(ctx, sess, func(_ context.Context, l *Loaded) error {
		return l.Cart.ClearCoupon(orderID)
	})
	obs.RecordMutation("remove_coupon", err)
	return view, err
}
