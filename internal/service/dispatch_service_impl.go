package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jnst/fb-app-events/internal/model"
	"github.com/jnst/fb-app-events/internal/stream"
	"github.com/jnst/fb-app-events/internal/wire"
)

// Outcome is the result of dispatching a batch.
type Outcome int

const (
	// OutcomeDelivered means the Graph API accepted the batch.
	OutcomeDelivered Outcome = iota
	// OutcomeRejected means the batch failed and retrying it cannot succeed.
	OutcomeRejected
	// OutcomeRetry means the batch failed and may succeed if sent again.
	OutcomeRetry
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetry:
		return "retry"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DispatchResult tells the consumer which stream messages are done with and which must
// stay pending.
type DispatchResult struct {
	Outcome Outcome
	// Ack holds the ids of delivered, rejected and undecodable messages.
	Ack []string
	// Retry holds the ids of messages to send again.
	Retry    []string
	Response *model.Response
}

// DispatchServiceImpl implements DispatchService on top of the Graph API client.
type DispatchServiceImpl struct {
	sender Sender
}

// NewDispatchServiceImpl creates a new DispatchService implementation.
func NewDispatchServiceImpl(sender Sender) DispatchService {
	return &DispatchServiceImpl{sender: sender}
}

// Dispatch decodes the messages and sends the decodable ones as one batch. Messages
// that cannot be decoded are acknowledged on their own. Only cancellation of ctx is
// returned as an error.
func (s *DispatchServiceImpl) Dispatch(ctx context.Context, messages []stream.Message) (*DispatchResult, error) {
	result := &DispatchResult{Outcome: OutcomeDelivered}

	var (
		events []model.Event
		ids    []string
	)

	for _, msg := range messages {
		event, err := decodeMessage(msg)
		if err != nil {
			slog.WarnContext(ctx, "dropping undecodable message",
				slog.String("message_id", msg.ID),
				slog.String("event_id", msg.EventID),
				slog.String("error", err.Error()),
			)
			result.Ack = append(result.Ack, msg.ID)

			continue
		}

		events = append(events, *event)
		ids = append(ids, msg.ID)
	}

	if len(events) == 0 {
		result.Outcome = OutcomeRejected
		return result, nil
	}

	resp, err := s.sender.SendEvents(ctx, events)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}

		slog.ErrorContext(ctx, "batch rejected before dispatch",
			slog.Int("events", len(events)),
			slog.String("error", err.Error()),
		)
		result.Outcome = OutcomeRejected
		result.Ack = append(result.Ack, ids...)

		return result, nil
	}

	result.Response = resp

	switch {
	case resp.Failed() && resp.Error.Transient():
		result.Outcome = OutcomeRetry
		result.Retry = ids
	case resp.Failed():
		result.Outcome = OutcomeRejected
		result.Ack = append(result.Ack, ids...)
	default:
		result.Ack = append(result.Ack, ids...)
	}

	attrs := []any{
		slog.String("outcome", result.Outcome.String()),
		slog.Int("events", len(events)),
		slog.Int("events_received", resp.EventsReceived),
		slog.Int("events_dropped", resp.Dropped()),
	}
	if resp.Failed() {
		attrs = append(attrs, slog.String("error", resp.Error.Error()))
		slog.WarnContext(ctx, "batch dispatch failed", attrs...)
	} else {
		slog.InfoContext(ctx, "batch dispatched", attrs...)
	}

	return result, nil
}

func decodeMessage(msg stream.Message) (*model.Event, error) {
	if len(msg.Payload) == 0 {
		return nil, errors.New("empty payload")
	}

	event, err := wire.DecodeEvent(msg.Payload)
	if err != nil {
		return nil, err
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}
