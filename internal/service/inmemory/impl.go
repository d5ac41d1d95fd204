// Package inmemory provides an in-memory implementation of the FlightService interface
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aerotrack/flight-registry-server/internal/otel"
	"github.com/aerotrack/flight-registry-server/internal/provider"
	"github.com/aerotrack/flight-registry-server/internal/service"
	"github.com/aerotrack/flight-registry-server/internal/status"
	"github.com/aerotrack/flight-registry-server/internal/telemetry"
)

const (
	// TracerName is the name used for the flight registry tracer
	TracerName = "github.com/aerotrack/flight-registry-server/registry"
)

// flightRegistry implements the FlightService interface
type flightRegistry struct {
	mu      sync.RWMutex // Protects flights
	flights map[string]*service.Flight

	// keys serializes add, remove and refresh writes per flight number
	keys *keyLocks

	aggregator      provider.Aggregator
	now             func() time.Time
	tracer          trace.Tracer
	registryMetrics *telemetry.RegistryMetrics
	refreshMetrics  *telemetry.RefreshMetrics
}

var _ service.FlightService = (*flightRegistry)(nil)

// Option is a functional option for configuring the flightRegistry
type Option func(*flightRegistry)

// WithClock overrides the time source used for CreatedAt and UpdatedAt
func WithClock(now func() time.Time) Option {
	return func(r *flightRegistry) {
		r.now = now
	}
}

// WithTracer sets the tracer used for registry spans
func WithTracer(tracer trace.Tracer) Option {
	return func(r *flightRegistry) {
		r.tracer = tracer
	}
}

// WithRegistryMetrics sets the metrics recorded whenever the tracked set changes
func WithRegistryMetrics(metrics *telemetry.RegistryMetrics) Option {
	return func(r *flightRegistry) {
		r.registryMetrics = metrics
	}
}

// WithRefreshMetrics sets the metrics recorded for every refresh batch
func WithRefreshMetrics(metrics *telemetry.RefreshMetrics) Option {
	return func(r *flightRegistry) {
		r.refreshMetrics = metrics
	}
}

// New creates an empty flight registry backed by the given aggregator
func New(aggregator provider.Aggregator, opts ...Option) (service.FlightService, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("provider aggregator is required")
	}

	return newRegistry(aggregator, opts...), nil
}

func newRegistry(aggregator provider.Aggregator, opts ...Option) *flightRegistry {
	r := &flightRegistry{
		flights:    make(map[string]*service.Flight),
		keys:       newKeyLocks(),
		aggregator: aggregator,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// CheckReadiness implements FlightService.CheckReadiness
func (r *flightRegistry) CheckReadiness(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("flight registry not available: %w", err)
	}
	return nil
}

// AddFlight implements FlightService.AddFlight.
// The flight number lock is held across the provider lookup, so concurrent adds of the
// same flight produce exactly one success.
func (r *flightRegistry) AddFlight(ctx context.Context, flightNumber string) (*service.Flight, error) {
	id := service.NormalizeFlightNumber(flightNumber)
	if id == "" {
		return nil, service.ErrInvalidInput
	}

	ctx, span := otel.StartSpan(ctx, r.tracer, "registry.AddFlight",
		trace.WithAttributes(otel.AttrFlightNumber.String(id)),
	)
	defer span.End()

	unlock := r.keys.Lock(id)
	defer unlock()

	if _, ok := r.lookup(id); ok {
		err := fmt.Errorf("%w: %s", service.ErrAlreadyTracked, id)
		otel.RecordError(span, err)
		return nil, err
	}

	times, err := r.aggregator.Resolve(ctx, id)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	now := r.now().UTC()
	flight := &service.Flight{
		FlightNumber:        id,
		Status:              status.Classify(times.ActualDepartureTime, times.ActualArrivalTime),
		ActualDepartureTime: cloneTime(times.ActualDepartureTime),
		ActualArrivalTime:   cloneTime(times.ActualArrivalTime),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	r.mu.Lock()
	r.flights[id] = flight
	r.mu.Unlock()

	span.SetAttributes(otel.AttrFlightStatus.String(flight.Status.String()))
	slog.InfoContext(ctx, "Tracking flight",
		"flight_number", id,
		"status", flight.Status.String())
	r.recordTracked(ctx)

	return cloneFlight(flight), nil
}

// GetFlight implements FlightService.GetFlight
func (r *flightRegistry) GetFlight(_ context.Context, flightNumber string) (*service.Flight, error) {
	id := service.NormalizeFlightNumber(flightNumber)
	if id == "" {
		return nil, service.ErrInvalidInput
	}

	flight, ok := r.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrFlightNotTracked, id)
	}
	return flight, nil
}

// ListFlights implements FlightService.ListFlights.
// Flights are ordered by creation time, then by flight number.
func (r *flightRegistry) ListFlights(_ context.Context) ([]service.Flight, error) {
	r.mu.RLock()
	flights := make([]service.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		flights = append(flights, *cloneFlight(f))
	}
	r.mu.RUnlock()

	slices.SortFunc(flights, func(a, b service.Flight) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.FlightNumber, b.FlightNumber)
	})

	return flights, nil
}

// RemoveFlight implements FlightService.RemoveFlight.
// Removing a flight that is not tracked is not an error.
func (r *flightRegistry) RemoveFlight(ctx context.Context, flightNumber string) (bool, error) {
	id := service.NormalizeFlightNumber(flightNumber)
	if id == "" {
		return false, nil
	}

	unlock := r.keys.Lock(id)
	defer unlock()

	r.mu.Lock()
	_, ok := r.flights[id]
	delete(r.flights, id)
	r.mu.Unlock()

	if ok {
		slog.InfoContext(ctx, "Stopped tracking flight", "flight_number", id)
		r.recordTracked(ctx)
	}

	return ok, nil
}

// refreshOutcome is the result of refreshing a single flight
type refreshOutcome struct {
	flight *service.Flight
	err    error
}

// RefreshAll implements FlightService.RefreshAll
func (r *flightRegistry) RefreshAll(ctx context.Context) (*service.RefreshResult, error) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "registry.RefreshAll")
	defer span.End()

	start := time.Now()

	r.mu.RLock()
	snapshot := make([]service.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		snapshot = append(snapshot, *cloneFlight(f))
	}
	r.mu.RUnlock()

	outcomes := make([]refreshOutcome, len(snapshot))

	// Per-flight failures are captured in outcomes; the group only waits for all of them
	var g errgroup.Group
	for i := range snapshot {
		g.Go(func() error {
			outcomes[i] = r.refreshFlight(ctx, &snapshot[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &service.RefreshResult{
		UpdatedFlights: make([]service.Flight, 0, len(outcomes)),
		Errors:         []service.RefreshError{},
	}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			result.Errors = append(result.Errors, service.RefreshError{
				FlightNumber: snapshot[i].FlightNumber,
				Error:        o.err.Error(),
			})
		case o.flight != nil:
			result.UpdatedFlights = append(result.UpdatedFlights, *o.flight)
		}
	}

	duration := time.Since(start)
	span.SetAttributes(
		otel.AttrResultCount.Int(len(result.UpdatedFlights)),
		otel.AttrErrorCount.Int(len(result.Errors)),
	)
	r.refreshMetrics.RecordRefresh(ctx, duration, len(result.UpdatedFlights), len(result.Errors))
	r.recordTracked(ctx)

	if len(result.Errors) > 0 {
		slog.WarnContext(ctx, "Refreshed flights with errors",
			"updated", len(result.UpdatedFlights),
			"failed", len(result.Errors),
			"duration", duration.String())
	} else {
		slog.InfoContext(ctx, "Refreshed flights",
			"updated", len(result.UpdatedFlights),
			"duration", duration.String())
	}

	return result, nil
}

// refreshFlight refreshes one flight from its snapshot. Arrived flights are returned
// unchanged without a provider lookup. A nil flight with a nil error means the flight
// was removed while its lookup was in flight.
func (r *flightRegistry) refreshFlight(ctx context.Context, snapshot *service.Flight) refreshOutcome {
	if snapshot.Status.IsTerminal() {
		return refreshOutcome{flight: snapshot}
	}

	times, err := r.aggregator.Resolve(ctx, snapshot.FlightNumber)
	if err != nil {
		return refreshOutcome{err: err}
	}

	unlock := r.keys.Lock(snapshot.FlightNumber)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.flights[snapshot.FlightNumber]
	if !ok {
		return refreshOutcome{}
	}

	updated := cloneFlight(current)
	updated.Status = status.Merge(current.Status,
		status.Classify(times.ActualDepartureTime, times.ActualArrivalTime))
	if updated.ActualDepartureTime == nil {
		updated.ActualDepartureTime = cloneTime(times.ActualDepartureTime)
	}
	if updated.ActualArrivalTime == nil {
		updated.ActualArrivalTime = cloneTime(times.ActualArrivalTime)
	}
	updated.UpdatedAt = r.now().UTC()

	r.flights[updated.FlightNumber] = updated

	if updated.Status != current.Status {
		slog.DebugContext(ctx, "Flight status changed",
			"flight_number", updated.FlightNumber,
			"from", current.Status.String(),
			"to", updated.Status.String())
	}

	return refreshOutcome{flight: cloneFlight(updated)}
}

// lookup returns a copy of a tracked flight
func (r *flightRegistry) lookup(id string) (*service.Flight, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flights[id]
	if !ok {
		return nil, false
	}
	return cloneFlight(f), true
}

// recordTracked publishes the number of tracked flights per status
func (r *flightRegistry) recordTracked(ctx context.Context) {
	if r.registryMetrics == nil {
		return
	}

	byStatus := map[string]int{
		status.Awaiting.String(): 0,
		status.Departed.String(): 0,
		status.Arrived.String():  0,
	}

	r.mu.RLock()
	for _, f := range r.flights {
		byStatus[f.Status.String()]++
	}
	r.mu.RUnlock()

	r.registryMetrics.RecordFlightsTracked(ctx, byStatus)
}

func cloneFlight(f *service.Flight) *service.Flight {
	c := *f
	c.ActualDepartureTime = cloneTime(f.ActualDepartureTime)
	c.ActualArrivalTime = cloneTime(f.ActualArrivalTime)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
