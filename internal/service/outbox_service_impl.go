package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jnst/fb-app-events/internal/repository"
)

// OutboxServiceImpl implements OutboxService for processing outbox events.
type OutboxServiceImpl struct {
	outboxRepo     repository.OutboxRepository
	transactionMgr repository.TransactionManager
	publisher      Publisher
}

// NewOutboxServiceImpl creates a new OutboxService implementation.
func NewOutboxServiceImpl(
	outboxRepo repository.OutboxRepository,
	transactionMgr repository.TransactionManager,
	publisher Publisher,
) OutboxService {
	return &OutboxServiceImpl{
		outboxRepo:     outboxRepo,
		transactionMgr: transactionMgr,
		publisher:      publisher,
	}
}

// ProcessUnpublishedEvents publishes up to limit unpublished outbox events and marks
// them as published. The rows stay locked until the batch commits, so concurrent
// publishers never pick the same event. An event that fails to publish stays in the
// outbox for the next poll.
func (s *OutboxServiceImpl) ProcessUnpublishedEvents(ctx context.Context, limit int) error {
	return s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		events, err := s.outboxRepo.GetUnpublishedEvents(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to get unpublished events: %w", err)
		}

		for _, event := range events {
			messageID, err := s.publisher.Publish(ctx, event)
			if err != nil {
				slog.ErrorContext(ctx, "failed to publish event",
					slog.Int64("outbox_id", event.ID),
					slog.String("event_id", event.EventID),
					slog.String("error", err.Error()),
				)

				continue
			}

			if err := s.outboxRepo.MarkAsPublished(ctx, event.ID); err != nil {
				return fmt.Errorf("failed to mark event %d as published: %w", event.ID, err)
			}

			slog.DebugContext(ctx, "published event",
				slog.Int64("outbox_id", event.ID),
				slog.String("event_id", event.EventID),
				slog.String("event_name", event.EventName),
				slog.String("message_id", messageID),
			)
		}

		return nil
	})
}
