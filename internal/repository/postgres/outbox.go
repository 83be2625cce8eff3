package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/campuswallet/internal/models"
)

type OutboxRepo struct {
	DB DBTX
}

const addOutboxEvent = `-- name: AddOutboxEvent
INSERT INTO outbox_events (id, topic, key, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
`

func (r *OutboxRepo) Add(ctx context.Context, e models.Event) error {
	tag, err := r.DB.Exec(ctx, addOutboxEvent, e.ID, e.Topic, e.Key, []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return dbError(err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("outbox event %s not saved", e.ID)
	}

	return nil
}

const listPendingEvents = `-- name: ListPendingEvents
SELECT id, topic, key, payload, created_at, published_at FROM outbox_events
WHERE published_at IS NULL
ORDER BY seq
LIMIT $1
`

func (r *OutboxRepo) ListPending(ctx context.Context, limit int) ([]models.Event, error) {
	rows, _ := r.DB.Query(ctx, listPendingEvents, limit)
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Event, error) {
		var e models.Event
		var payload []byte
		err := row.Scan(&e.ID, &e.Topic, &e.Key, &payload, &e.CreatedAt, &e.PublishedAt)
		e.Payload = payload
		return e, err
	})
	if err != nil {
		return nil, dbError(err)
	}

	return events, nil
}

const markEventPublished = `-- name: MarkEventPublished
UPDATE outbox_events SET published_at = $2
WHERE id = $1 AND published_at IS NULL
`

func (r *OutboxRepo) MarkPublished(ctx context.Context, eventID uuid.UUID, publishedAt time.Time) error {
	_, err := r.DB.Exec(ctx, markEventPublished, eventID, publishedAt)
	if err != nil {
		return dbError(err)
	}

	return nil
}
