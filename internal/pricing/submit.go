package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyCart is returned when submitting a cart without orders.
	ErrEmptyCart = errors.New("pricing: cart is empty")
	// ErrCancelled is returned when a submit batch was aborted before any order failed.
	ErrCancelled = errors.New("pricing: submit cancelled")
	// ErrPartialSubmit matches any *PartialSubmitError.
	ErrPartialSubmit = errors.New("pricing: partial submit failure")
)

// Submitter confirms an order with the order service and returns its remote id.
type Submitter interface {
	SubmitOrder(ctx context.Context, order Order) (string, error)
}

// Confirmation pairs a cart order with the id assigned by the order service.
type Confirmation struct {
	OrderID  string `json:"orderId"`
	RemoteID string `json:"remoteId"`
	Totals   Totals `json:"totals"`
}

// SubmitResult describes the outcome of a submit batch.
type SubmitResult struct {
	Confirmed []Confirmation `json:"confirmed"`
	Failed    []string       `json:"failed,omitempty"`
	Cancelled []string       `json:"cancelled,omitempty"`
}

// PartialSubmitError reports the orders that failed in a submit batch.
type PartialSubmitError struct {
	Failed int
	Total  int
	Errors map[string]error
}

func (e *PartialSubmitError) Error() string {
	if e.Failed == 1 {
		return "1 order failed"
	}
	return fmt.Sprintf("%d orders failed", e.Failed)
}

// Is lets errors.Is match ErrPartialSubmit.
func (e *PartialSubmitError) Is(target error) bool {
	return target == ErrPartialSubmit
}

// Unwrap exposes the per-order causes, ordered by order id.
func (e *PartialSubmitError) Unwrap() []error {
	ids := make([]string, 0, len(e.Errors))
	for id := range e.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]error, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.Errors[id])
	}
	return out
}

type outcome struct {
	remoteID string
	err      error
}

// Submit sends every order independently and concurrently. Confirmed orders
// are removed from the cart; failed and cancelled orders stay for retry.
// Failures are reported as *PartialSubmitError. When nothing failed but some
// submissions were cancelled, ErrCancelled is returned alongside the result.
func (a *Aggregate) Submit(ctx context.Context, s Submitter) (SubmitResult, error) {
	if len(a.orders) == 0 {
		return SubmitResult{}, ErrEmptyCart
	}
	batch := a.Orders()
	results := make([]outcome, len(batch))

	var g errgroup.Group
	if a.SubmitConcurrency > 0 {
		g.SetLimit(a.SubmitConcurrency)
	}
	for i := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = outcome{err: err}
				return nil
			}
			remoteID, err := s.SubmitOrder(ctx, batch[i])
			results[i] = outcome{remoteID: remoteID, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var res SubmitResult
	failures := make(map[string]error)
	for i, o := range batch {
		out := results[i]
		switch {
		case out.err == nil:
			res.Confirmed = append(res.Confirmed, Confirmation{
				OrderID:  o.ID,
				RemoteID: out.remoteID,
				Totals:   o.Totals(a.Policy),
			})
			if idx := a.index(o.ID); idx >= 0 {
				a.removeAt(idx)
			}
		case errors.Is(out.err, context.Canceled):
			res.Cancelled = append(res.Cancelled, o.ID)
		default:
			res.Failed = append(res.Failed, o.ID)
			failures[o.ID] = out.err
		}
	}

	if len(failures) > 0 {
		return res, &PartialSubmitError{Failed: len(failures), Total: len(batch), Errors: failures}
	}
	if len(res.Cancelled) > 0 {
		return res, ErrCancelled
	}
	return res, nil
}
