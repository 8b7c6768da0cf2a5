// Package appevents sends app events to the Graph API activities endpoint and
// classifies the outcome.
package appevents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jnst/fb-app-events/internal/model"
	"github.com/jnst/fb-app-events/internal/wire"
)

const (
	// DefaultBaseURL is the Graph API host.
	DefaultBaseURL = "https://graph.facebook.com"
	// DefaultAPIVersion is the Graph API version used when none is configured.
	DefaultAPIVersion = "v22.0"
	// TestEventCodePlaceholder is sent as test_event_code in test mode when the caller
	// gives none.
	TestEventCodePlaceholder = "TEST_EVENT_CODE"
)

// Options configures a Client.
type Options struct {
	AppID       string
	AccessToken string
	BaseURL     string
	APIVersion  string
	// TestMode sends TestEventCodePlaceholder when no test event code is given.
	TestMode bool
}

// Client sends app events. It holds no mutable state and is safe for concurrent use.
type Client struct {
	opts      Options
	endpoint  string
	transport Transport
	logger    *slog.Logger
	telemetry *telemetry
}

// NewClient validates opts and creates a Client. A nil transport uses an HTTPTransport
// with the default timeout; a nil logger uses slog.Default().
func NewClient(opts Options, transport Transport, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.AppID) == "" {
		return nil, fmt.Errorf("%w: app id is required", model.ErrInvalidConfig)
	}
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, fmt.Errorf("%w: access token is required", model.ErrInvalidConfig)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}

	endpoint, err := buildEndpoint(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}

	if transport == nil {
		transport = NewHTTPTransport(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	tel, err := newTelemetry()
	if err != nil {
		return nil, err
	}

	return &Client{
		opts:      opts,
		endpoint:  endpoint,
		transport: transport,
		logger:    logger,
		telemetry: tel,
	}, nil
}

// buildEndpoint returns {base}/{version}/{app_id}/activities?access_token={token}.
func buildEndpoint(opts Options) (string, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	u = u.JoinPath(opts.APIVersion, opts.AppID, "activities")
	q := u.Query()
	q.Set("access_token", opts.AccessToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// SendOption customizes the request built by SendEvent and SendEvents.
type SendOption func(*model.BatchRequest)

// WithTestEventCode sets the test event code of the request.
func WithTestEventCode(code string) SendOption {
	return func(r *model.BatchRequest) {
		r.TestEventCode = &code
	}
}

// WithPartnerAgent sets the partner agent of the request.
func WithPartnerAgent(agent string) SendOption {
	return func(r *model.BatchRequest) {
		r.PartnerAgent = &agent
	}
}

// WithUpload tags the request as part of an offline upload.
func WithUpload(id, tag, source string) SendOption {
	return func(r *model.BatchRequest) {
		if id != "" {
			r.UploadID = &id
		}
		if tag != "" {
			r.UploadTag = &tag
		}
		if source != "" {
			r.UploadSource = &source
		}
	}
}

// SendEvent sends a single event.
func (c *Client) SendEvent(ctx context.Context, event model.Event, opts ...SendOption) (*model.Response, error) {
	return c.SendEvents(ctx, []model.Event{event}, opts...)
}

// SendEvents sends events in one request.
func (c *Client) SendEvents(ctx context.Context, events []model.Event, opts ...SendOption) (*model.Response, error) {
	if events == nil {
		return nil, fmt.Errorf("events: %w", model.ErrNoEvents)
	}

	req := &model.BatchRequest{Data: events}
	for _, opt := range opts {
		opt(req)
	}
	if req.TestEventCode == nil && c.opts.TestMode {
		req.TestEventCode = model.Ptr(TestEventCodePlaceholder)
	}

	return c.Send(ctx, req)
}

// Send posts req to the activities endpoint.
//
// An error is returned only when the request is invalid or ctx was canceled. Every
// other failure is reported as a Response with a populated Error, whose Transient
// method tells whether a retry may succeed.
func (c *Client) Send(ctx context.Context, req *model.BatchRequest) (*model.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, span := c.telemetry.tracer.Start(ctx, "appevents.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("appevents.app_id", c.opts.AppID),
			attribute.Int("appevents.event_count", len(req.Data)),
			attribute.Bool("appevents.test", req.TestEventCode != nil),
		),
	)
	defer span.End()

	c.logger.InfoContext(ctx, "sending app events",
		slog.Int("count", len(req.Data)),
		slog.String("api_version", c.opts.APIVersion),
	)

	resp, err := c.dispatch(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch canceled")
		return nil, err
	}

	c.record(ctx, span, len(req.Data), resp)

	return resp, nil
}

func (c *Client) dispatch(ctx context.Context, body []byte) (*model.Response, error) {
	if err := ctx.Err(); err != nil {
		return c.transportFailure(ctx, err)
	}

	result, err := c.transport.Execute(ctx, c.endpoint, body)
	if err != nil {
		if ctx.Err() != nil {
			return c.transportFailure(ctx, ctx.Err())
		}

		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			return c.transportFailure(ctx, err)
		}

		if errors.Is(err, ErrResponseTooLarge) {
			c.logger.WarnContext(ctx, "received oversized response from Graph API", slog.String("error", err.Error()))
			return failedResponse(model.NewClientError(fmt.Sprintf("Invalid response from Graph API: %v", err), false)), nil
		}

		c.logger.ErrorContext(ctx, "unexpected error while sending app events", slog.String("error", err.Error()))
		return failedResponse(model.NewClientError(fmt.Sprintf("Unexpected error: %v", err), false)), nil
	}

	if result.Success() {
		return c.decodeSuccess(ctx, result), nil
	}

	return c.decodeFailure(ctx, result), nil
}

// transportFailure classifies a request that produced no response. Caller
// cancellation is returned as an error; everything else is a transient failure.
func (c *Client) transportFailure(ctx context.Context, err error) (*model.Response, error) {
	if errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("dispatch canceled: %w", err)
	}

	c.logger.ErrorContext(ctx, "HTTP request to Graph API failed", slog.String("error", err.Error()))

	return failedResponse(model.NewClientError(fmt.Sprintf("HTTP request failed: %v", err), true)), nil
}

func (c *Client) decodeSuccess(ctx context.Context, result *TransportResponse) *model.Response {
	resp, err := wire.DecodeResponse(result.Body)
	if err != nil || resp == nil {
		c.logger.WarnContext(ctx, "received invalid response from Graph API",
			slog.Int("status", result.StatusCode),
			slog.Int("body_size", len(result.Body)),
		)
		return failedResponse(model.NewClientError("Invalid response from Graph API", false))
	}

	return resp
}

func (c *Client) decodeFailure(ctx context.Context, result *TransportResponse) *model.Response {
	c.logger.ErrorContext(ctx, "Graph API returned error status",
		slog.Int("status", result.StatusCode),
		slog.String("body", string(result.Body)),
	)

	if resp, err := wire.DecodeResponse(result.Body); err == nil && resp != nil && resp.Error != nil {
		return resp
	}

	return failedResponse(&model.APIError{
		Message:     fmt.Sprintf("HTTP %d: %s", result.StatusCode, result.Reason),
		Code:        result.StatusCode,
		IsTransient: model.Ptr(true),
	})
}

func (c *Client) record(ctx context.Context, span trace.Span, sent int, resp *model.Response) {
	if !resp.Failed() {
		span.SetAttributes(
			attribute.Int("appevents.events_received", resp.EventsReceived),
			attribute.Int("appevents.events_dropped", resp.Dropped()),
		)
		c.telemetry.sent.Add(ctx, int64(resp.EventsReceived))
		c.logger.InfoContext(ctx, "app events sent",
			slog.Int("received", resp.EventsReceived),
			slog.Int("dropped", resp.Dropped()),
		)
		return
	}

	span.SetAttributes(
		attribute.Int("appevents.error_code", resp.Error.Code),
		attribute.Bool("appevents.error_transient", resp.Error.Transient()),
	)
	span.SetStatus(codes.Error, resp.Error.Message)
	c.telemetry.failed.Add(ctx, int64(sent), failureAttributes(resp.Error))
}

func failedResponse(e *model.APIError) *model.Response {
	return &model.Response{EventsReceived: 0, Error: e}
}
