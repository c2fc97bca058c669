package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mall-cart/internal/coupon"
)

var errRejected = errors.New("order service returned status error")

type stubSubmitter struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func (s *stubSubmitter) SubmitOrder(_ context.Context, o Order) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, o.ID)
	s.mu.Unlock()
	if err := s.fail[o.ID]; err != nil {
		return "", err
	}
	return "remote-" + o.ID, nil
}

func TestSubmitPartialFailureKeepsFailedOrders(t *testing.T) {
	agg := NewAggregate("LKR", coupon.Default())
	agg.Load(sampleOrders())
	sub := &stubSubmitter{fail: map[string]error{"O-1002": errRejected}}

	res, err := agg.Submit(context.Background(), sub)
	require.Error(t, err)
	require.Equal(t, "1 order failed", err.Error())
	require.ErrorIs(t, err, ErrPartialSubmit)
	require.ErrorIs(t, err, errRejected)

	var partial *PartialSubmitError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, 1, partial.Failed)
	require.Equal(t, 2, partial.Total)

	require.Len(t, res.Confirmed, 1)
	require.Equal(t, "O-1001", res.Confirmed[0].OrderID)
	require.Equal(t, "remote-O-1001", res.Confirmed[0].RemoteID)
	require.Equal(t, []string{"O-1002"}, res.Failed)

	require.Equal(t, 1, agg.Len())
	remaining, ok := agg.Order("O-1002")
	require.True(t, ok)
	require.Len(t, remaining.Items, 1)
	require.Equal(t, "SAVE10", remaining.CouponCode)
}

func TestSubmitCountsMultipleFailures(t *testing.T) {
	agg := NewAggregate("LKR", coupon.Default())
	agg.Load(sampleOrders())
	sub := &stubSubmitter{fail: map[string]error{"O-1001": errRejected, "O-1002": errRejected}}

	_, err := agg.Submit(context.Background(), sub)
	require.EqualError(t, err, "2 orders failed")
	require.Equal(t, 2, agg.Len())
}

func TestSubmitAllSucceed(t *testing.T) {
	agg := NewAggregate("LKR", coupon.Default())
	agg.Load(sampleOrders())

	res, err := agg.Submit(context.Background(), &stubSubmitter{})
	require.NoError(t, err)
	require.Len(t, res.Confirmed, 2)
	require.Equal(t, 0, agg.Len())

	_, err = agg.Submit(context.Background(), &stubSubmitter{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitCancelledIsNotAFailure(t *testing.T) {
	agg := NewAggregate("LKR", coupon.Default())
	agg.Load(sampleOrders())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub := &stubSubmitter{}
	res, err := agg.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrCancelled)
	require.Empty(t, sub.calls)
	require.Empty(t, res.Failed)
	require.ElementsMatch(t, []string{"O-1001", "O-1002"}, res.Cancelled)
	require.Equal(t, 2, agg.Len())
}

func TestSubmitReportsFailuresOverCancellation(t *testing.T) {
	agg := NewAggregate("LKR", coupon.Default())
	agg.Load(sampleOrders())
	sub := &stubSubmitter{fail: map[string]error{
		"O-1001": context.Canceled,
		"O-1002": errRejected,
	}}

	res, err := agg.Submit(context.Background(), sub)
	require.EqualError(t, err, "1 order failed")
	require.Equal(t, []string{"O-1001"}, res.Cancelled)
	require.Equal(t, 2, agg.Len())
}

type slowSubmitter struct {
	inflight atomic.Int32
	peak     atomic.Int32
}

func (s *slowSubmitter) SubmitOrder(_ context.Context, o Order) (string, error) {
	n := s.inflight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	s.inflight.Add(-1)
	return o.ID, nil
}

func TestSubmitRespectsConcurrencyLimit(t *testing.T) {
	agg := NewAggregate("LKR", coupon.Default())
	agg.SubmitConcurrency = 1
	orders := sampleOrders()
	orders = append(orders, Order{ID: "O-1003", Items: []LineItem{{ProductID: "p4", UnitPrice: lkr(400), Quantity: 2}}})
	agg.Load(orders)

	sub := &slowSubmitter{}
	res, err := agg.Submit(context.Background(), sub)
	require.NoError(t, err)
	require.Len(t, res.Confirmed, 3)
	require.Equal(t, int32(1), sub.peak.Load())
}
