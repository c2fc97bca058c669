package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mall-cart/internal/events"
)

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitFansOut(t *testing.T) {
	first := &captureNotifier{}
	second := &captureNotifier{}
	at := time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Notifiers: []events.Notifier{first, nil, second},
		Now:       func() time.Time { return at },
	}

	payload := map[string]any{"orderId": "O-1001", "remoteId": "abc"}
	event, err := bus.Emit(context.Background(), events.TopicOrderConfirmed, "O-1001", "shopper-1", payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderConfirmed, event.Topic)
	require.Equal(t, at, event.OccurredAt)
	require.JSONEq(t, `{"orderId":"O-1001","remoteId":"abc"}`, string(event.Payload))
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	require.Equal(t, event.ID, second.events[0].ID)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	failing := &captureNotifier{err: errors.New("ledger down")}
	after := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{failing, after}}

	_, err := bus.Emit(context.Background(), events.TopicCartSubmitted, "cart", "s", nil)
	require.ErrorContains(t, err, "ledger down")
	require.Len(t, after.events, 1, "later notifiers still run")
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), " ", "O-1", "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicCartSubmitted, "", "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicCartSubmitted, "O-1", "", json.RawMessage("{oops"))
	require.Error(t, err)
}

func TestNilBusDropsEvents(t *testing.T) {
	var bus *events.Bus
	ev, err := bus.Emit(context.Background(), events.TopicOrderSubmitFailed, "O-1", "", map[string]string{"error": "x"})
	require.NoError(t, err)
	require.Equal(t, "O-1", ev.AggregateID)
}

func TestLogNotifierWritesLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	n := events.LogNotifier{}
	require.NoError(t, n.Notify(ctx, events.Event{
		Topic:       events.TopicOrderConfirmed,
		AggregateID: "O-1002",
		Payload:     json.RawMessage(`{"remoteId":"r-2"}`),
	}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "order.confirmed", line["topic"])
	require.Equal(t, "O-1002", line["aggregate_id"])
	require.Equal(t, map[string]any{"remoteId": "r-2"}, line["payload"])
}
