// Package telemetry provides OpenTelemetry instrumentation for the flight registry server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RegistryMetricsMeterName is the name used for the flight registry metrics meter
	RegistryMetricsMeterName = "github.com/aerotrack/flight-registry-server/registry"

	// RefreshMetricsMeterName is the name used for the refresh metrics meter
	RefreshMetricsMeterName = "github.com/aerotrack/flight-registry-server/refresh"

	// ProviderMetricsMeterName is the name used for the provider metrics meter
	ProviderMetricsMeterName = "github.com/aerotrack/flight-registry-server/provider"
)

const (
	// OutcomeSuccess marks an operation that produced usable data
	OutcomeSuccess = "success"

	// OutcomeError marks an operation that failed
	OutcomeError = "error"
)

// RegistryMetrics holds the OpenTelemetry instruments for the tracked flight set
type RegistryMetrics struct {
	flightsTracked metric.Int64Gauge
}

// NewRegistryMetrics creates a new RegistryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegistryMetricsMeterName)

	flightsTracked, err := meter.Int64Gauge(
		"flight_registry_flights_tracked",
		metric.WithDescription("Number of flights currently tracked, by status"),
		metric.WithUnit("{flight}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		flightsTracked: flightsTracked,
	}, nil
}

// RecordFlightsTracked records the number of tracked flights in each status
func (m *RegistryMetrics) RecordFlightsTracked(ctx context.Context, byStatus map[string]int) {
	if m == nil || m.flightsTracked == nil {
		return
	}

	for status, count := range byStatus {
		m.flightsTracked.Record(ctx, int64(count), metric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// RefreshMetrics holds the OpenTelemetry instruments for refresh batches
type RefreshMetrics struct {
	refreshDuration metric.Float64Histogram
	flightsRefresh  metric.Int64Counter
}

// NewRefreshMetrics creates a new RefreshMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRefreshMetrics(provider metric.MeterProvider) (*RefreshMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RefreshMetricsMeterName)

	refreshDuration, err := meter.Float64Histogram(
		"flight_registry_refresh_duration_seconds",
		metric.WithDescription("Duration of refresh batches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	flightsRefresh, err := meter.Int64Counter(
		"flight_registry_flight_refreshes_total",
		metric.WithDescription("Number of per-flight refresh attempts, by outcome"),
		metric.WithUnit("{flight}"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshMetrics{
		refreshDuration: refreshDuration,
		flightsRefresh:  flightsRefresh,
	}, nil
}

// RecordRefresh records the duration and per-flight outcomes of a refresh batch
func (m *RefreshMetrics) RecordRefresh(ctx context.Context, duration time.Duration, updated, failed int) {
	if m == nil || m.refreshDuration == nil {
		return
	}

	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Bool("partial_failure", failed > 0),
	))
	m.flightsRefresh.Add(ctx, int64(updated), metric.WithAttributes(attribute.String("outcome", OutcomeSuccess)))
	m.flightsRefresh.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", OutcomeError)))
}

// ProviderMetrics holds the OpenTelemetry instruments for provider lookups
type ProviderMetrics struct {
	fetchDuration metric.Float64Histogram
}

// NewProviderMetrics creates a new ProviderMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewProviderMetrics(provider metric.MeterProvider) (*ProviderMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ProviderMetricsMeterName)

	fetchDuration, err := meter.Float64Histogram(
		"flight_registry_provider_fetch_duration_seconds",
		metric.WithDescription("Duration of provider lookups in seconds, by provider and outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		fetchDuration: fetchDuration,
	}, nil
}

// RecordFetch records the duration and outcome of a single provider lookup
func (m *ProviderMetrics) RecordFetch(ctx context.Context, providerName string, duration time.Duration, success bool) {
	if m == nil || m.fetchDuration == nil {
		return
	}

	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}

	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.String("outcome", outcome),
	))
}
