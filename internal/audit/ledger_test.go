package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mall-cart/internal/events"
)

type execCall struct {
	sql  string
	args []any
}

type stubExec struct {
	calls []execCall
	err   error
}

func (s *stubExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, execCall{sql: sql, args: args})
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestLedgerInsertsEvent(t *testing.T) {
	db := &stubExec{}
	ledger := Ledger{DB: db}
	id := uuid.New()
	at := time.Date(2025, 8, 19, 10, 15, 0, 0, time.UTC)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")

	err := ledger.Notify(ctx, events.Event{
		ID:          id,
		Topic:       events.TopicOrderConfirmed,
		AggregateID: "O-1002",
		Shopper:     "shopper-1",
		Payload:     json.RawMessage(`{"remoteId":"r-1"}`),
		OccurredAt:  at,
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)
	args := db.calls[0].args
	require.Equal(t, pgtype.UUID{Bytes: id, Valid: true}, args[0])
	require.Equal(t, "order.confirmed", args[1])
	require.Equal(t, "O-1002", args[2])
	require.Equal(t, pgtype.Text{String: "shopper-1", Valid: true}, args[3])
	require.Equal(t, pgtype.Text{String: "req-42", Valid: true}, args[4])
	require.JSONEq(t, `{"remoteId":"r-1"}`, string(args[5].([]byte)))
	require.Equal(t, pgtype.Timestamptz{Time: at, Valid: true}, args[6])
}

func TestLedgerSkipsUnlistedTopics(t *testing.T) {
	db := &stubExec{}
	ledger := Ledger{DB: db, Topics: []string{events.TopicCartSubmitted}}
	require.NoError(t, ledger.Notify(context.Background(), events.Event{Topic: events.TopicOrderConfirmed, AggregateID: "O-1"}))
	require.Empty(t, db.calls)
}

func TestLedgerWrapsInsertError(t *testing.T) {
	boom := errors.New("connection reset")
	ledger := Ledger{DB: &stubExec{err: boom}}
	err := ledger.Notify(context.Background(), events.Event{Topic: events.TopicOrderSubmitFailed, AggregateID: "O-1"})
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "order.submit_failed")
}

func TestLedgerRequiresDatabase(t *testing.T) {
	require.Error(t, Ledger{}.Notify(context.Background(), events.Event{Topic: events.TopicCartSubmitted}))
}

func TestMigrationsEmbedded(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	require.Len(t, downs, len(ups))
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/mall?sslmode=disable", migrateURL("postgres://u:p@db:5432/mall?sslmode=disable"))
	require.Equal(t, "pgx5://db/mall", migrateURL("postgresql://db/mall"))
	require.Equal(t, "pgx5://db/mall", migrateURL("pgx5://db/mall"))
}
