package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/cart"
	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/events"
	"github.com/noah-isme/mall-cart/internal/obs"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

// Submit results recorded in metrics.
const (
	ResultSuccess   = "success"
	ResultPartial   = "partial"
	ResultCancelled = "cancelled"
	ResultEmpty     = "empty"
	ResultError     = "error"
)

// Confirmation is a confirmed order as returned to the storefront.
type Confirmation struct {
	OrderID  string          `json:"orderId"`
	RemoteID string          `json:"remoteId"`
	Totals   cart.TotalsView `json:"totals"`
}

// Result is the outcome of one submit batch together with the remaining cart.
type Result struct {
	Confirmed []Confirmation `json:"confirmed"`
	Failed    []string       `json:"failed,omitempty"`
	Cancelled []string       `json:"cancelled,omitempty"`
	Cart      cart.View      `json:"cart"`
}

// Service submits a shopper's whole cart to the order service.
type Service struct {
	Carts  *cart.Service
	Events *events.Bus
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit confirms every order in the cart concurrently. Confirmed orders leave
// the cart and failed ones stay for retry; the remaining cart is persisted in
// both cases. Partial failure is returned as *pricing.PartialSubmitError
// alongside the result.
func (s *Service) Submit(ctx context.Context, sess common.Session) (Result, error) {
	started := s.now()
	orders, err := s.Carts.Session(sess)
	if err != nil {
		return Result{}, err
	}

	var (
		res       pricing.SubmitResult
		submitErr error
	)
	view, err := s.Carts.Mutate(ctx, sess, func(ctx context.Context, l *cart.Loaded) error {
		res, submitErr = l.Cart.Submit(ctx, orders)
		if errors.Is(submitErr, pricing.ErrEmptyCart) {
			return submitErr
		}
		return nil
	})
	elapsed := float64(s.now().Sub(started).Milliseconds())
	if err != nil {
		result := ResultError
		if errors.Is(err, pricing.ErrEmptyCart) {
			result = ResultEmpty
		}
		obs.RecordSubmit(result, 0, 0, elapsed)
		return Result{}, err
	}

	out := Result{Failed: res.Failed, Cancelled: res.Cancelled, Cart: view}
	for _, c := range res.Confirmed {
		out.Confirmed = append(out.Confirmed, Confirmation{
			OrderID:  c.OrderID,
			RemoteID: c.RemoteID,
			Totals:   s.Carts.RenderTotals(c.Totals),
		})
	}

	result := ResultSuccess
	switch {
	case errors.Is(submitErr, pricing.ErrPartialSubmit):
		result = ResultPartial
	case errors.Is(submitErr, pricing.ErrCancelled):
		result = ResultCancelled
	}
	obs.RecordSubmit(result, len(res.Confirmed), len(res.Failed), elapsed)
	s.emit(ctx, sess, res, submitErr, result)
	return out, submitErr
}

func (s *Service) emit(ctx context.Context, sess common.Session, res pricing.SubmitResult, submitErr error, result string) {
	if s.Events == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	logger := zerolog.Ctx(ctx)
	report := func(err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("submit event not delivered")
		}
	}
	for _, c := range res.Confirmed {
		_, err := s.Events.Emit(ctx, events.TopicOrderConfirmed, c.OrderID, sess.Shopper, map[string]any{
			"orderId":  c.OrderID,
			"remoteId": c.RemoteID,
			"total":    c.Totals.Total.Amount,
			"currency": c.Totals.Total.Currency,
		})
		report(err)
	}
	var partial *pricing.PartialSubmitError
	if errors.As(submitErr, &partial) {
		for _, id := range res.Failed {
			_, err := s.Events.Emit(ctx, events.TopicOrderSubmitFailed, id, sess.Shopper, map[string]any{
				"orderId": id,
				"error":   partial.Errors[id].Error(),
			})
			report(err)
		}
	}
	_, err := s.Events.Emit(ctx, events.TopicCartSubmitted, sess.Shopper, sess.Shopper, map[string]any{
		"result":    result,
		"confirmed": len(res.Confirmed),
		"failed":    len(res.Failed),
		"cancelled": len(res.Cancelled),
	})
	report(err)
}
