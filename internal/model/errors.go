package model

import "errors"

var (
	// ErrNilRequest is returned when a batch request is nil.
	ErrNilRequest = errors.New("request is required")
	// ErrNoEvents is returned when a batch request carries no events.
	ErrNoEvents = errors.New("at least one event is required")
	// ErrInvalidEvent is returned when an event misses a required field.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrInvalidConfig is returned when the Graph API client is missing credentials.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrExtraKeyCollision is returned when an extra property shadows a modeled field.
	ErrExtraKeyCollision = errors.New("extra property collides with a named field")
	// ErrDuplicateEvent is returned when an event id is already in the outbox.
	ErrDuplicateEvent = errors.New("duplicate event")
)
