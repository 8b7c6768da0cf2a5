package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/fb-app-events/internal/service"
	"github.com/jnst/fb-app-events/internal/stream"
)

type readCall struct {
	pending bool
	count   int64
}

type fakeStream struct {
	batches [][]stream.Message
	readErr error
	reads   []readCall
	acked   []string
}

func (s *fakeStream) Read(
	_ context.Context, group, _ string, count, _ int64, pending bool,
) ([]stream.Message, error) {
	if group != groupName {
		return nil, errors.New("unexpected group")
	}
	s.reads = append(s.reads, readCall{pending: pending, count: count})
	if s.readErr != nil {
		return nil, s.readErr
	}
	if len(s.batches) == 0 {
		return nil, nil
	}

	batch := s.batches[0]
	s.batches = s.batches[1:]

	return batch, nil
}

func (s *fakeStream) Ack(_ context.Context, _ string, ids ...string) error {
	s.acked = append(s.acked, ids...)
	return nil
}

type fakeDispatcher struct {
	results []*service.DispatchResult
	err     error
	calls   int
}

func (d *fakeDispatcher) Dispatch(_ context.Context, _ []stream.Message) (*service.DispatchResult, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}

	result := d.results[0]
	d.results = d.results[1:]

	return result, nil
}

func TestConsumeBatch_StartsWithPendingEntries(t *testing.T) {
	messages := &fakeStream{}
	handler := NewMessageHandler(messages, &fakeDispatcher{}, "consumer-1", 50)

	retry, err := handler.consumeBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, retry)

	_, err = handler.consumeBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []readCall{{pending: true, count: 50}, {pending: false, count: 50}}, messages.reads)
}

func TestConsumeBatch_AcksDeliveredAndRejected(t *testing.T) {
	messages := &fakeStream{batches: [][]stream.Message{{{ID: "1-0"}, {ID: "2-0"}}}}
	dispatcher := &fakeDispatcher{results: []*service.DispatchResult{
		{Outcome: service.OutcomeRejected, Ack: []string{"1-0", "2-0"}},
	}}
	handler := NewMessageHandler(messages, dispatcher, "consumer-1", 50)
	handler.pending = false

	retry, err := handler.consumeBatch(context.Background())
	require.NoError(t, err)

	assert.False(t, retry)
	assert.False(t, handler.pending)
	assert.Equal(t, []string{"1-0", "2-0"}, messages.acked)
}

func TestConsumeBatch_TransientFailureRereadsPending(t *testing.T) {
	batch := []stream.Message{{ID: "1-0"}}
	messages := &fakeStream{batches: [][]stream.Message{batch, batch}}
	dispatcher := &fakeDispatcher{results: []*service.DispatchResult{
		{Outcome: service.OutcomeRetry, Retry: []string{"1-0"}},
		{Outcome: service.OutcomeDelivered, Ack: []string{"1-0"}},
	}}
	handler := NewMessageHandler(messages, dispatcher, "consumer-1", 50)
	handler.pending = false

	retry, err := handler.consumeBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, retry)
	assert.Empty(t, messages.acked)

	retry, err = handler.consumeBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, retry)

	assert.Equal(t, []readCall{{pending: false, count: 50}, {pending: true, count: 50}}, messages.reads)
	assert.Equal(t, []string{"1-0"}, messages.acked)
}

func TestRun_BacksOffOnErrorsAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := &fakeStream{readErr: errors.New("connection refused")}
	handler := NewMessageHandler(messages, &fakeDispatcher{}, "consumer-1", 10)

	var delays []time.Duration
	handler.sleep = func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
		if len(delays) == 3 {
			cancel()
		}
	}

	handler.Run(ctx)

	assert.Len(t, messages.reads, 3)
	require.Len(t, delays, 3)
	for _, d := range delays {
		assert.Positive(t, d)
	}
}

func TestRun_DispatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := &fakeStream{batches: [][]stream.Message{{{ID: "1-0"}}}}
	dispatcher := &fakeDispatcher{err: context.Canceled}
	handler := NewMessageHandler(messages, dispatcher, "consumer-1", 10)
	handler.sleep = func(context.Context, time.Duration) { t.Fatal("unexpected backoff") }

	handler.Run(ctx)

	assert.Equal(t, 1, dispatcher.calls)
	assert.Empty(t, messages.acked)
}

// pendingStream keeps a pending entries list the way a consumer group does: read
// entries stay pending until acknowledged.
type pendingStream struct {
	pel   []stream.Message
	fresh []stream.Message
	reads []bool
}

func (s *pendingStream) Read(
	_ context.Context, _, _ string, count, _ int64, pending bool,
) ([]stream.Message, error) {
	s.reads = append(s.reads, pending)

	if pending {
		n := min(int(count), len(s.pel))
		return append([]stream.Message(nil), s.pel[:n]...), nil
	}

	n := min(int(count), len(s.fresh))
	batch := s.fresh[:n]
	s.fresh = s.fresh[n:]
	s.pel = append(s.pel, batch...)

	return batch, nil
}

func (s *pendingStream) Ack(_ context.Context, _ string, ids ...string) error {
	acked := make(map[string]bool, len(ids))
	for _, id := range ids {
		acked[id] = true
	}

	kept := s.pel[:0]
	for _, m := range s.pel {
		if !acked[m.ID] {
			kept = append(kept, m)
		}
	}
	s.pel = kept

	return nil
}

type ackAllDispatcher struct{}

func (ackAllDispatcher) Dispatch(_ context.Context, messages []stream.Message) (*service.DispatchResult, error) {
	result := &service.DispatchResult{Outcome: service.OutcomeDelivered}
	for _, m := range messages {
		result.Ack = append(result.Ack, m.ID)
	}

	return result, nil
}

func TestConsumeBatch_DrainsPendingLargerThanBatch(t *testing.T) {
	messages := &pendingStream{
		pel:   []stream.Message{{ID: "1-0"}, {ID: "2-0"}, {ID: "3-0"}},
		fresh: []stream.Message{{ID: "4-0"}},
	}
	handler := NewMessageHandler(messages, ackAllDispatcher{}, "consumer-1", 2)

	for range 4 {
		retry, err := handler.consumeBatch(context.Background())
		require.NoError(t, err)
		assert.False(t, retry)
	}

	assert.Equal(t, []bool{true, true, true, false}, messages.reads)
	assert.Empty(t, messages.pel)
	assert.Empty(t, messages.fresh)
}

func TestConsumeBatch_NewBatchDeliveredStaysOnNewEntries(t *testing.T) {
	messages := &pendingStream{fresh: []stream.Message{{ID: "1-0"}, {ID: "2-0"}}}
	handler := NewMessageHandler(messages, ackAllDispatcher{}, "consumer-1", 1)
	handler.pending = false

	for range 2 {
		_, err := handler.consumeBatch(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []bool{false, false}, messages.reads)
	assert.Empty(t, messages.pel)
}
