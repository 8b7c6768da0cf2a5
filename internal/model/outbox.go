package model

import "time"

// OutboxEvent is an app event waiting in the outbox to be published.
type OutboxEvent struct {
	ID        int64  `json:"id"`
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	// Payload is the wire encoded event.
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// CreateOutboxEventParams represents parameters for storing an app event in the outbox.
type CreateOutboxEventParams struct {
	EventID   string
	EventName string
	Payload   []byte
}
