package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aerotrack/flight-registry-server/internal/otel"
	"github.com/aerotrack/flight-registry-server/internal/telemetry"
)

const (
	// TracerName is the name used for the provider aggregator tracer
	TracerName = "github.com/aerotrack/flight-registry-server/provider"
)

// priorityAggregator queries every provider concurrently and picks the first
// usable answer in declaration order, regardless of which provider finished first.
type priorityAggregator struct {
	providers []Provider
	tracer    trace.Tracer
	metrics   *telemetry.ProviderMetrics
}

var _ Aggregator = (*priorityAggregator)(nil)

// AggregatorOption is a functional option for configuring the aggregator
type AggregatorOption func(*priorityAggregator)

// WithTracer sets the tracer used for resolve spans
func WithTracer(tracer trace.Tracer) AggregatorOption {
	return func(a *priorityAggregator) {
		a.tracer = tracer
	}
}

// WithProviderMetrics sets the metrics recorded for every provider lookup
func WithProviderMetrics(metrics *telemetry.ProviderMetrics) AggregatorOption {
	return func(a *priorityAggregator) {
		a.metrics = metrics
	}
}

// NewAggregator creates an Aggregator over providers, listed from highest to lowest priority
func NewAggregator(providers []Provider, opts ...AggregatorOption) (Aggregator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	a := &priorityAggregator{
		providers: providers,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// outcome is what a single provider produced for one lookup
type outcome struct {
	result *Result
	err    error
}

func (o outcome) usable() bool {
	return o.err == nil && !o.result.Failed()
}

func (o outcome) reason() string {
	if o.err != nil {
		return o.err.Error()
	}
	return o.result.Err
}

// Resolve implements Aggregator.Resolve.
// Every provider runs to completion; a fast answer from a lower-priority provider
// never preempts a higher-priority one.
func (a *priorityAggregator) Resolve(ctx context.Context, flightNumber string) (*FlightTimes, error) {
	ctx, span := otel.StartSpan(ctx, a.tracer, "provider.Resolve",
		trace.WithAttributes(otel.AttrFlightNumber.String(flightNumber)),
	)
	defer span.End()

	outcomes := make([]outcome, len(a.providers))

	// Provider failures are captured in outcomes; the group only waits for all of them
	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			outcomes[i] = a.fetch(ctx, p, flightNumber)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		if o.usable() {
			span.SetAttributes(otel.AttrProviderName.String(a.providers[i].Name()))
			return &FlightTimes{
				ActualDepartureTime: o.result.ActualDepartureTime,
				ActualArrivalTime:   o.result.ActualArrivalTime,
			}, nil
		}
	}

	unavailable := &UnavailableError{
		FlightNumber: flightNumber,
		Failures:     make([]Failure, 0, len(outcomes)),
	}
	for i, o := range outcomes {
		unavailable.Failures = append(unavailable.Failures, Failure{
			Provider: a.providers[i].Name(),
			Reason:   o.reason(),
		})
	}

	slog.WarnContext(ctx, "All providers failed",
		"flight_number", flightNumber,
		"error", unavailable.Error())
	otel.RecordError(span, unavailable)
	return nil, unavailable
}

// fetch calls a single provider, converting panics and empty answers into failures
func (a *priorityAggregator) fetch(ctx context.Context, p Provider, flightNumber string) (o outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: fmt.Errorf("provider panicked: %v", r)}
		}
		a.metrics.RecordFetch(ctx, p.Name(), time.Since(start), o.usable())

		if !o.usable() {
			slog.DebugContext(ctx, "Provider lookup failed",
				"provider", p.Name(),
				"flight_number", flightNumber,
				"reason", o.reason())
		}
	}()

	result, err := p.Fetch(ctx, flightNumber)
	if err == nil && result == nil {
		err = errors.New("provider returned no result")
	}
	return outcome{result: result, err: err}
}
