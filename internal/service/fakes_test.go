package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jnst/fb-app-events/internal/appevents"
	"github.com/jnst/fb-app-events/internal/model"
)

type fakeOutboxRepo struct {
	mu        sync.Mutex
	events    []*model.OutboxEvent
	published map[int64]bool
	createErr error
	markErr   error
	nextID    int64
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{published: map[int64]bool{}}
}

func (r *fakeOutboxRepo) CreateEvent(
	_ context.Context, params *model.CreateOutboxEventParams,
) (*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}

	for _, e := range r.events {
		if e.EventID == params.EventID {
			return nil, fmt.Errorf("event %s: %w", params.EventID, model.ErrDuplicateEvent)
		}
	}

	r.nextID++
	event := &model.OutboxEvent{
		ID:        r.nextID,
		EventID:   params.EventID,
		EventName: params.EventName,
		Payload:   params.Payload,
	}
	r.events = append(r.events, event)

	return event, nil
}

func (r *fakeOutboxRepo) GetUnpublishedEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.OutboxEvent
	for _, e := range r.events {
		if len(out) == limit {
			break
		}
		if !r.published[e.ID] {
			out = append(out, e)
		}
	}

	return out, nil
}

func (r *fakeOutboxRepo) MarkAsPublished(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.markErr != nil {
		return r.markErr
	}
	r.published[id] = true

	return nil
}

// fakeTxManager runs fn directly and counts the transactions.
type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakePublisher struct {
	published []string
	failFor   map[string]bool
}

func (p *fakePublisher) Publish(_ context.Context, event *model.OutboxEvent) (string, error) {
	if p.failFor[event.EventID] {
		return "", errors.New("connection refused")
	}
	p.published = append(p.published, event.EventID)

	return fmt.Sprintf("%d-0", len(p.published)), nil
}

type fakeSender struct {
	resp  *model.Response
	err   error
	calls [][]model.Event
}

func (s *fakeSender) SendEvents(
	_ context.Context, events []model.Event, _ ...appevents.SendOption,
) (*model.Response, error) {
	s.calls = append(s.calls, events)
	if s.err != nil {
		return nil, s.err
	}

	return s.resp, nil
}
