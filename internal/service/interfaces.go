// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/jnst/fb-app-events/internal/appevents"
	"github.com/jnst/fb-app-events/internal/hashing"
	"github.com/jnst/fb-app-events/internal/model"
	"github.com/jnst/fb-app-events/internal/stream"
)

// EventService defines business logic methods for app event ingestion.
type EventService interface {
	Enqueue(ctx context.Context, items []EnqueueItem) (*EnqueueResult, error)
}

// OutboxService defines business logic methods for outbox event processing.
type OutboxService interface {
	ProcessUnpublishedEvents(ctx context.Context, limit int) error
}

// DispatchService defines business logic methods for sending streamed events to the
// Graph API.
type DispatchService interface {
	Dispatch(ctx context.Context, messages []stream.Message) (*DispatchResult, error)
}

// EnqueueItem is an app event with the raw identity of the user who triggered it.
type EnqueueItem struct {
	Event    model.Event
	Identity *hashing.Identity
}

// EnqueueResult lists the event ids stored in the outbox and the ones already there.
type EnqueueResult struct {
	Accepted   []string `json:"accepted"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// Publisher appends outbox events to a stream.
type Publisher interface {
	Publish(ctx context.Context, event *model.OutboxEvent) (string, error)
}

// Sender sends a batch of app events to the Graph API.
type Sender interface {
	SendEvents(ctx context.Context, events []model.Event, opts ...appevents.SendOption) (*model.Response, error)
}
