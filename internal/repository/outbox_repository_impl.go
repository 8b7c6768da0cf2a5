package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/fb-app-events/internal/model"
)

const (
	createOutboxEventSQL = `
INSERT INTO app_event_outbox (event_id, event_name, payload)
VALUES ($1, $2, $3)
ON CONFLICT (event_id) DO NOTHING
RETURNING id, event_id, event_name, payload, created_at, published_at`

	getUnpublishedEventsSQL = `
SELECT id, event_id, event_name, payload, created_at, published_at
FROM app_event_outbox
WHERE published_at IS NULL
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED`

	markEventAsPublishedSQL = `
UPDATE app_event_outbox SET published_at = now() WHERE id = $1`
)

// OutboxRepositoryImpl implements OutboxRepository using PostgreSQL.
type OutboxRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewOutboxRepositoryImpl creates a new OutboxRepository implementation.
func NewOutboxRepositoryImpl(pool *pgxpool.Pool) OutboxRepository {
	return &OutboxRepositoryImpl{pool: pool}
}

// CreateEvent stores a wire encoded app event in the outbox. An event id that is
// already stored yields model.ErrDuplicateEvent.
func (r *OutboxRepositoryImpl) CreateEvent(
	ctx context.Context, params *model.CreateOutboxEventParams,
) (*model.OutboxEvent, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, createOutboxEventSQL, params.EventID, params.EventName, params.Payload)

	event, err := scanOutboxEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", params.EventID, model.ErrDuplicateEvent)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return event, nil
}

// GetUnpublishedEvents retrieves unpublished outbox events, oldest first. Rows locked
// by another publisher are skipped.
func (r *OutboxRepositoryImpl) GetUnpublishedEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getUnpublishedEventsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.OutboxEvent
	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// MarkAsPublished marks an outbox event as published.
func (r *OutboxRepositoryImpl) MarkAsPublished(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, markEventAsPublishedSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox event %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}

func scanOutboxEvent(row pgx.Row) (*model.OutboxEvent, error) {
	var (
		event       model.OutboxEvent
		publishedAt *time.Time
	)

	if err := row.Scan(
		&event.ID,
		&event.EventID,
		&event.EventName,
		&event.Payload,
		&event.CreatedAt,
		&publishedAt,
	); err != nil {
		return nil, err
	}
	event.PublishedAt = publishedAt

	return &event, nil
}
