package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jnst/fb-app-events/internal/model"
	"github.com/jnst/fb-app-events/internal/repository"
	"github.com/jnst/fb-app-events/internal/wire"
)

// EventServiceImpl implements EventService for app event ingestion.
type EventServiceImpl struct {
	outboxRepo     repository.OutboxRepository
	transactionMgr repository.TransactionManager
	newID          func() string
}

// NewEventServiceImpl creates a new EventService implementation.
func NewEventServiceImpl(
	outboxRepo repository.OutboxRepository,
	transactionMgr repository.TransactionManager,
) EventService {
	return &EventServiceImpl{
		outboxRepo:     outboxRepo,
		transactionMgr: transactionMgr,
		newID:          uuid.NewString,
	}
}

// Enqueue hashes the identity of each item into its user data, assigns missing event
// ids and stores the wire encoded events in the outbox in one transaction. Events whose
// id is already stored are reported as duplicates.
func (s *EventServiceImpl) Enqueue(ctx context.Context, items []EnqueueItem) (*EnqueueResult, error) {
	if len(items) == 0 {
		return nil, model.ErrNoEvents
	}

	params := make([]*model.CreateOutboxEventParams, 0, len(items))
	for i := range items {
		p, err := s.prepare(&items[i])
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		params = append(params, p)
	}

	var result EnqueueResult

	err := s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		result = EnqueueResult{}

		for _, p := range params {
			if _, err := s.outboxRepo.CreateEvent(ctx, p); err != nil {
				if errors.Is(err, model.ErrDuplicateEvent) {
					result.Duplicates = append(result.Duplicates, p.EventID)
					continue
				}

				return fmt.Errorf("failed to create outbox event: %w", err)
			}
			result.Accepted = append(result.Accepted, p.EventID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "events enqueued",
		slog.Int("accepted", len(result.Accepted)),
		slog.Int("duplicates", len(result.Duplicates)),
	)

	return &result, nil
}

func (s *EventServiceImpl) prepare(item *EnqueueItem) (*model.CreateOutboxEventParams, error) {
	event := item.Event

	if item.Identity != nil {
		var userData model.UserData
		if event.UserData != nil {
			userData = *event.UserData
		}
		userData.ApplyHashed(item.Identity.Hash())
		event.UserData = &userData
	}

	if event.EventID == nil || *event.EventID == "" {
		event.EventID = model.Ptr(s.newID())
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	payload, err := wire.EncodeEvent(&event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	return &model.CreateOutboxEventParams{
		EventID:   *event.EventID,
		EventName: event.EventName,
		Payload:   payload,
	}, nil
}
