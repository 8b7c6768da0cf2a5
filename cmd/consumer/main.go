// Package main provides the stream consumer that dispatches app events from Redis Streams to the Graph API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/rueidis"

	"github.com/jnst/fb-app-events/internal/appevents"
	"github.com/jnst/fb-app-events/internal/config"
	"github.com/jnst/fb-app-events/internal/logger"
	"github.com/jnst/fb-app-events/internal/service"
	"github.com/jnst/fb-app-events/internal/stream"
)

const (
	groupName         = "graph-api-dispatcher"
	redisBlockTimeout = 1000 // milliseconds
	signalBufferSize  = 1
	exitCode          = 1
)

type messageStream interface {
	Read(ctx context.Context, group, consumer string, count, blockMillis int64, pending bool) ([]stream.Message, error)
	Ack(ctx context.Context, group string, ids ...string) error
}

// MessageHandler reads batches from the stream and dispatches them to the Graph API.
type MessageHandler struct {
	stream       messageStream
	dispatcher   service.DispatchService
	consumerName string
	batchSize    int64
	backoff      *backoff.ExponentialBackOff
	sleep        func(ctx context.Context, d time.Duration)
	// pending is set while entries delivered to this consumer are still unacknowledged.
	pending bool
}

// NewMessageHandler creates a new message handler instance. It starts with the
// entries left pending by a previous run.
func NewMessageHandler(
	messages messageStream,
	dispatcher service.DispatchService,
	consumerName string,
	batchSize int,
) *MessageHandler {
	return &MessageHandler{
		stream:       messages,
		dispatcher:   dispatcher,
		consumerName: consumerName,
		batchSize:    int64(batchSize),
		backoff:      backoff.NewExponentialBackOff(),
		sleep:        sleepContext,
		pending:      true,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Run consumes batches until ctx is canceled. Redis errors and transient dispatch
// failures are retried after an exponential backoff.
func (h *MessageHandler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		retry, err := h.consumeBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			slog.Error("error consuming messages", slog.String("error", err.Error()))
			retry = true
		}

		if !retry {
			h.backoff.Reset()
			continue
		}

		delay := h.backoff.NextBackOff()
		slog.Debug("backing off", slog.Duration("delay", delay))
		h.sleep(ctx, delay)
	}

	slog.Info("consumer stopped")
}

// consumeBatch reads and dispatches one batch. It reports whether the batch must be
// sent again. New entries are read only once no pending entry is left.
func (h *MessageHandler) consumeBatch(ctx context.Context) (bool, error) {
	messages, err := h.stream.Read(ctx, groupName, h.consumerName, h.batchSize, redisBlockTimeout, h.pending)
	if err != nil {
		return false, err
	}

	if len(messages) == 0 {
		h.pending = false
		return false, nil
	}

	result, err := h.dispatcher.Dispatch(ctx, messages)
	if err != nil {
		return false, err
	}

	if err := h.stream.Ack(ctx, groupName, result.Ack...); err != nil {
		return false, err
	}

	slog.Debug("batch processed",
		slog.String("outcome", result.Outcome.String()),
		slog.Int("acked", len(result.Ack)),
		slog.Int("pending", len(result.Retry)),
	)

	// Pending entries are drained until a pending read comes back empty.
	retry := len(result.Retry) > 0
	if retry {
		h.pending = true
	}

	return retry, nil
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, stopping consumer")
		cancel()
	}()

	return ctx, cancel
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	client, err := appevents.NewClient(cfg.AppEvents(), appevents.NewHTTPTransport(cfg.Facebook.HTTPTimeout), log)
	if err != nil {
		slog.Error("failed to create Graph API client", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	ctx, cancel := setupSignalHandling()
	defer cancel()

	events := stream.NewRedisStream(redisClient, cfg.EventStreamKey)
	if err := events.CreateGroup(ctx, groupName); err != nil {
		slog.Error("failed to create consumer group", slog.String("error", err.Error()))
		return
	}

	handler := NewMessageHandler(events, service.NewDispatchServiceImpl(client), cfg.ConsumerName, cfg.DispatchBatchSize)

	slog.Info("starting message consumer",
		slog.String("service", "consumer"),
		slog.String("stream", events.Key()),
		slog.String("group", groupName),
		slog.String("consumer", cfg.ConsumerName),
		slog.Int("batch_size", cfg.DispatchBatchSize),
	)

	handler.Run(ctx)
}
