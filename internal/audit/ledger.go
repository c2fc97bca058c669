package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/mall-cart/internal/events"
)

const insertSubmissionAudit = `INSERT INTO submission_audit (id, topic, aggregate_id, shopper, request_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Ledger records submission events in Postgres. Topics outside the allowlist
// are ignored.
type Ledger struct {
	DB     Execer
	Topics []string
}

// Notify implements events.Notifier.
func (l Ledger) Notify(ctx context.Context, event events.Event) error {
	if l.DB == nil {
		return errors.New("audit: database not configured")
	}
	if !l.accepts(event.Topic) {
		return nil
	}
	payload := []byte(event.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := l.DB.Exec(ctx, insertSubmissionAudit,
		pgtype.UUID{Bytes: event.ID, Valid: true},
		event.Topic,
		event.AggregateID,
		toNullText(event.Shopper),
		toNullText(middleware.GetReqID(ctx)),
		payload,
		pgtype.Timestamptz{Time: event.OccurredAt, Valid: !event.OccurredAt.IsZero()},
	)
	if err != nil {
		return fmt.Errorf("audit: insert %s: %w", event.Topic, err)
	}
	return nil
}

func (l Ledger) accepts(topic string) bool {
	topics := l.Topics
	if len(topics) == 0 {
		topics = events.DefaultTopics()
	}
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

func toNullText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
