package appevents

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jnst/fb-app-events/internal/model"
)

const instrumentationName = "github.com/jnst/fb-app-events/internal/appevents"

type telemetry struct {
	tracer trace.Tracer
	sent   metric.Int64Counter
	failed metric.Int64Counter
}

// newTelemetry uses the global providers, which are no-ops unless the binary installs
// an SDK.
func newTelemetry() (*telemetry, error) {
	meter := otel.Meter(instrumentationName)

	sent, err := meter.Int64Counter("appevents.events.received",
		metric.WithDescription("Number of app events accepted by the Graph API"))
	if err != nil {
		return nil, fmt.Errorf("failed to create received counter: %w", err)
	}

	failed, err := meter.Int64Counter("appevents.events.failed",
		metric.WithDescription("Number of app events in failed dispatches"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}

	return &telemetry{
		tracer: otel.Tracer(instrumentationName),
		sent:   sent,
		failed: failed,
	}, nil
}

func failureAttributes(e *model.APIError) metric.AddOption {
	class := "remote"
	if e.Code == model.ClientErrorCode {
		class = "client"
	}

	return metric.WithAttributes(
		attribute.String("error.class", class),
		attribute.Bool("error.transient", e.Transient()),
	)
}
