package appevents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	contentTypeJSON    = "Content-Type"
	applicationJSON    = "application/json"
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
	redactedValue      = "REDACTED"
)

// ErrResponseTooLarge is returned when the response body exceeds the read limit.
var ErrResponseTooLarge = fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)

// Transport posts a JSON body to endpoint and returns whatever the server answered.
// Implementations return a *TransportError when no response was obtained.
type Transport interface {
	Execute(ctx context.Context, endpoint string, body []byte) (*TransportResponse, error)
}

// TransportResponse is the raw answer of the Graph API.
type TransportResponse struct {
	StatusCode int
	Reason     string
	Body       []byte
}

// Success reports whether the status code is 2xx.
func (r *TransportResponse) Success() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// TransportError means the request never produced a response: connection refused,
// reset, DNS failure, timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPTransport is the net/http Transport, instrumented with OpenTelemetry.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates an HTTPTransport with the given request timeout. A zero
// timeout uses the default of 10s.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPTransport{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// NewHTTPTransportWithClient wraps an existing http.Client.
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// Execute posts body to endpoint. Errors never carry the access token of endpoint.
func (t *HTTPTransport) Execute(ctx context.Context, endpoint string, body []byte) (*TransportResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", scrubURLError(err))
	}
	req.Header.Set(contentTypeJSON, applicationJSON)
	req.Header.Set("Accept", applicationJSON)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: scrubURLError(err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", scrubURLError(err))}
	}
	if len(respBody) > maxResponseBytes {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrResponseTooLarge)
	}

	return &TransportResponse{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Body:       respBody,
	}, nil
}

// scrubURLError masks the access token in the URL that net/http puts in its errors.
func scrubURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}

	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}

	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", redactedValue)
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// reasonPhrase returns "Bad Request" out of a "400 Bad Request" status line.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}

	return reason
}
