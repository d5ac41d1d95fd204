// Package otel provides OpenTelemetry instrumentation utilities for the flight registry server.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for business context used across the application.
const (
	AttrFlightNumber = attribute.Key("flight.number")
	AttrFlightStatus = attribute.Key("flight.status")
	AttrProviderName = attribute.Key("provider.name")
	AttrResultCount  = attribute.Key("result.count")
	AttrErrorCount   = attribute.Key("result.error_count")
	AttrRefreshRunID = attribute.Key("refresh.run_id")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns the span
// already carried by ctx (a no-op span when there is none).
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description is generic; the full error is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
