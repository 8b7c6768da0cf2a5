// Package stream publishes outbox events to a Redis stream and reads them back in a
// consumer group.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/rueidis"

	"github.com/jnst/fb-app-events/internal/model"
)

const (
	fieldEventID   = "event_id"
	fieldEventName = "event_name"
	fieldPayload   = "payload"

	newMessagesID     = ">"
	pendingMessagesID = "0"
)

// Message is an app event read from the stream.
type Message struct {
	ID        string
	EventID   string
	EventName string
	Payload   []byte
}

// RedisStream is a Redis Streams backed queue of wire encoded app events.
type RedisStream struct {
	client rueidis.Client
	key    string
}

// NewRedisStream creates a RedisStream on the given stream key.
func NewRedisStream(client rueidis.Client, key string) *RedisStream {
	return &RedisStream{
		client: client,
		key:    key,
	}
}

// Key returns the stream key.
func (s *RedisStream) Key() string {
	return s.key
}

// Publish appends an outbox event to the stream and returns the message id.
func (s *RedisStream) Publish(ctx context.Context, event *model.OutboxEvent) (string, error) {
	cmd := s.client.B().Xadd().Key(s.key).Id("*").
		FieldValue().FieldValue(fieldEventID, event.EventID).
		FieldValue(fieldEventName, event.EventName).
		FieldValue(fieldPayload, string(event.Payload)).
		Build()

	id, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		return "", fmt.Errorf("failed to publish event %s: %w", event.EventID, err)
	}

	return id, nil
}

// CreateGroup creates the consumer group and the stream if needed. An existing group
// is not an error.
func (s *RedisStream) CreateGroup(ctx context.Context, group string) error {
	cmd := s.client.B().XgroupCreate().Key(s.key).Group(group).Id("0").Mkstream().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			slog.Debug("consumer group already exists", slog.String("group", group))
			return nil
		}

		return fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}

	return nil
}

// Read returns up to count messages for consumer. With pending set it returns the
// messages delivered to consumer but not acknowledged yet, otherwise it blocks up to
// blockMillis for new ones.
func (s *RedisStream) Read(
	ctx context.Context,
	group, consumer string,
	count, blockMillis int64,
	pending bool,
) ([]Message, error) {
	id := newMessagesID
	if pending {
		id = pendingMessagesID
	}

	cmd := s.client.B().Xreadgroup().Group(group, consumer).
		Count(count).
		Block(blockMillis).
		Streams().
		Key(s.key).
		Id(id).
		Build()

	result, err := s.client.Do(ctx, cmd).AsXRead()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}

		return nil, err
	}

	var messages []Message
	for _, entries := range result {
		for _, entry := range entries {
			messages = append(messages, Message{
				ID:        entry.ID,
				EventID:   entry.FieldValues[fieldEventID],
				EventName: entry.FieldValues[fieldEventName],
				Payload:   []byte(entry.FieldValues[fieldPayload]),
			})
		}
	}

	return messages, nil
}

// Ack acknowledges messages for group.
func (s *RedisStream) Ack(ctx context.Context, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	cmd := s.client.B().Xack().Key(s.key).Group(group).Id(ids...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to ACK %d messages: %w", len(ids), err)
	}

	return nil
}
