package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/aerotrack/flight-registry-server/internal/provider"
	"github.com/aerotrack/flight-registry-server/internal/provider/mocks"
	"github.com/aerotrack/flight-registry-server/internal/service"
	"github.com/aerotrack/flight-registry-server/internal/status"
	"github.com/aerotrack/flight-registry-server/internal/telemetry"
)

var (
	baseTime   = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	departure1 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	departure2 = time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC)
	arrival    = time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)
)

// steppingClock returns a clock that advances by one minute on every call
func steppingClock() func() time.Time {
	var ticks atomic.Int64
	return func() time.Time {
		return baseTime.Add(time.Duration(ticks.Add(1)) * time.Minute)
	}
}

func newTestRegistry(t *testing.T) (*flightRegistry, *mocks.MockAggregator) {
	t.Helper()
	ctrl := gomock.NewController(t)
	agg := mocks.NewMockAggregator(ctrl)
	return newRegistry(agg, WithClock(steppingClock())), agg
}

func seed(r *flightRegistry, f service.Flight) {
	r.flights[f.FlightNumber] = &f
}

func resolved(dep, arr *time.Time) *provider.FlightTimes {
	return &provider.FlightTimes{ActualDepartureTime: dep, ActualArrivalTime: arr}
}

func unavailable(flightNumber string) error {
	return &provider.UnavailableError{
		FlightNumber: flightNumber,
		Failures: []provider.Failure{
			{Provider: "FlightStats", Reason: "Flight " + flightNumber + " not found in FlightStats database"},
			{Provider: "FlightAware", Reason: "Flight " + flightNumber + " not found in FlightAware database"},
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	svc, err := New(nil)
	require.Error(t, err)
	assert.Nil(t, svc)

	svc, err = New(mocks.NewMockAggregator(gomock.NewController(t)))
	require.NoError(t, err)
	require.NoError(t, svc.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.CheckReadiness(ctx), context.Canceled)
}

func TestAddFlight_Normalization(t *testing.T) {
	t.Parallel()

	for _, input := range []string{" aa123 ", "AA123", "aa123", "\taA123\n"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			r, agg := newTestRegistry(t)
			agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(resolved(nil, nil), nil)

			flight, err := r.AddFlight(context.Background(), input)
			require.NoError(t, err)
			assert.Equal(t, "AA123", flight.FlightNumber)

			_, ok := r.flights["AA123"]
			assert.True(t, ok)
			assert.Len(t, r.flights, 1)
		})
	}
}

func TestAddFlight_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		times      *provider.FlightTimes
		wantStatus status.Status
	}{
		{name: "no events", times: resolved(nil, nil), wantStatus: status.Awaiting},
		{name: "departed", times: resolved(&departure1, nil), wantStatus: status.Departed},
		{name: "arrived", times: resolved(&departure1, &arrival), wantStatus: status.Arrived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, agg := newTestRegistry(t)
			agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(tt.times, nil)

			flight, err := r.AddFlight(context.Background(), "AA123")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, flight.Status)
			assert.Equal(t, tt.times.ActualDepartureTime, flight.ActualDepartureTime)
			assert.Equal(t, tt.times.ActualArrivalTime, flight.ActualArrivalTime)
			assert.Equal(t, flight.CreatedAt, flight.UpdatedAt)
			assert.Equal(t, baseTime.Add(time.Minute), flight.CreatedAt)
		})
	}
}

func TestAddFlight_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\t\n"} {
		r, _ := newTestRegistry(t)

		flight, err := r.AddFlight(context.Background(), input)
		require.ErrorIs(t, err, service.ErrInvalidInput)
		assert.Nil(t, flight)
		assert.Empty(t, r.flights)
	}
}

func TestAddFlight_AlreadyTracked(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(resolved(&departure1, nil), nil).Times(1)

	first, err := r.AddFlight(context.Background(), "AA123")
	require.NoError(t, err)

	second, err := r.AddFlight(context.Background(), "aa123")
	require.ErrorIs(t, err, service.ErrAlreadyTracked)
	assert.Nil(t, second)

	stored, err := r.GetFlight(context.Background(), "AA123")
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestAddFlight_ProviderUnavailable(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	providerErr := unavailable("AA123")
	agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(nil, providerErr)

	flight, err := r.AddFlight(context.Background(), "AA123")
	require.Error(t, err)
	assert.Nil(t, flight)
	assert.Same(t, providerErr, err)
	assert.ErrorIs(t, err, service.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "FlightStats")
	assert.Contains(t, err.Error(), "FlightAware")
	assert.Empty(t, r.flights)
}

func TestAddFlight_ConcurrentSameFlight(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	agg.EXPECT().Resolve(gomock.Any(), "AA123").DoAndReturn(
		func(context.Context, string) (*provider.FlightTimes, error) {
			time.Sleep(20 * time.Millisecond)
			return resolved(nil, nil), nil
		}).Times(1)

	const callers = 10
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		duplicate atomic.Int32
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := "AA123"
			if i%2 == 0 {
				input = " aa123"
			}
			_, err := r.AddFlight(context.Background(), input)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, service.ErrAlreadyTracked):
				duplicate.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(callers-1), duplicate.Load())
	assert.Len(t, r.flights, 1)
	assert.Zero(t, r.keys.size())
}

func TestGetFlight(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	seed(r, service.Flight{FlightNumber: "BA42", Status: status.Departed, ActualDepartureTime: &departure1})

	flight, err := r.GetFlight(context.Background(), " ba42 ")
	require.NoError(t, err)
	assert.Equal(t, "BA42", flight.FlightNumber)
	assert.Equal(t, status.Departed, flight.Status)

	// returned flights are copies
	*flight.ActualDepartureTime = arrival
	assert.Equal(t, departure1, *r.flights["BA42"].ActualDepartureTime)

	_, err = r.GetFlight(context.Background(), "LH400")
	require.ErrorIs(t, err, service.ErrFlightNotTracked)

	_, err = r.GetFlight(context.Background(), " ")
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestListFlights(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)

	flights, err := r.ListFlights(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, flights)
	assert.Empty(t, flights)

	seed(r, service.Flight{FlightNumber: "LH400", CreatedAt: baseTime.Add(2 * time.Minute)})
	seed(r, service.Flight{FlightNumber: "BA42", CreatedAt: baseTime.Add(time.Minute)})
	seed(r, service.Flight{FlightNumber: "AA123", CreatedAt: baseTime.Add(2 * time.Minute)})

	flights, err = r.ListFlights(context.Background())
	require.NoError(t, err)
	require.Len(t, flights, 3)
	assert.Equal(t, "BA42", flights[0].FlightNumber)
	assert.Equal(t, "AA123", flights[1].FlightNumber)
	assert.Equal(t, "LH400", flights[2].FlightNumber)
}

func TestRemoveFlight(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	ctx := context.Background()

	removed, err := r.RemoveFlight(ctx, "AA123")
	require.NoError(t, err)
	assert.False(t, removed, "removing from an empty registry")

	agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(resolved(nil, nil), nil)
	_, err = r.AddFlight(ctx, "AA123")
	require.NoError(t, err)

	removed, err = r.RemoveFlight(ctx, " aa123 ")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.RemoveFlight(ctx, "AA123")
	require.NoError(t, err)
	assert.False(t, removed, "second remove")

	removed, err = r.RemoveFlight(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Empty(t, r.flights)
}

func TestRefreshAll(t *testing.T) {
	t.Parallel()

	created := baseTime.Add(-time.Hour)

	tests := []struct {
		name          string
		stored        service.Flight
		times         *provider.FlightTimes
		wantStatus    status.Status
		wantDeparture *time.Time
		wantArrival   *time.Time
	}{
		{
			name:       "awaiting to departed",
			stored:     service.Flight{FlightNumber: "AA123", Status: status.Awaiting},
			times:      resolved(&departure1, nil),
			wantStatus: status.Departed, wantDeparture: &departure1,
		},
		{
			name: "departed to arrived keeps departure",
			stored: service.Flight{
				FlightNumber: "AA123", Status: status.Departed, ActualDepartureTime: &departure1,
			},
			times:      resolved(&departure2, &arrival),
			wantStatus: status.Arrived, wantDeparture: &departure1, wantArrival: &arrival,
		},
		{
			name: "status never regresses",
			stored: service.Flight{
				FlightNumber: "AA123", Status: status.Departed, ActualDepartureTime: &departure1,
			},
			times:      resolved(nil, nil),
			wantStatus: status.Departed, wantDeparture: &departure1,
		},
		{
			name: "departure is sticky",
			stored: service.Flight{
				FlightNumber: "AA123", Status: status.Departed, ActualDepartureTime: &departure1,
			},
			times:      resolved(&departure2, nil),
			wantStatus: status.Departed, wantDeparture: &departure1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, agg := newTestRegistry(t)
			stored := tt.stored
			stored.CreatedAt, stored.UpdatedAt = created, created
			seed(r, stored)
			agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(tt.times, nil)

			result, err := r.RefreshAll(context.Background())
			require.NoError(t, err)
			require.Empty(t, result.Errors)
			require.Len(t, result.UpdatedFlights, 1)

			got := result.UpdatedFlights[0]
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantDeparture, got.ActualDepartureTime)
			assert.Equal(t, tt.wantArrival, got.ActualArrivalTime)
			assert.Equal(t, created, got.CreatedAt)
			assert.True(t, got.UpdatedAt.After(created))

			assert.Equal(t, got, *r.flights["AA123"])
		})
	}
}

func TestRefreshAll_ArrivedFlightsAreNotFetched(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	landed := service.Flight{
		FlightNumber:        "BA42",
		Status:              status.Arrived,
		ActualDepartureTime: &departure1,
		ActualArrivalTime:   &arrival,
		CreatedAt:           baseTime,
		UpdatedAt:           baseTime,
	}
	seed(r, landed)

	var calls atomic.Int32
	agg.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string) (*provider.FlightTimes, error) {
			calls.Add(1)
			return resolved(nil, nil), nil
		}).AnyTimes()

	result, err := r.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.Zero(t, calls.Load())
	require.Len(t, result.UpdatedFlights, 1)
	assert.Equal(t, landed, result.UpdatedFlights[0])
	assert.Equal(t, landed, *r.flights["BA42"])
}

func TestRefreshAll_PartialFailure(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	failing := service.Flight{FlightNumber: "AA123", Status: status.Awaiting, CreatedAt: baseTime, UpdatedAt: baseTime}
	healthy := service.Flight{FlightNumber: "BA42", Status: status.Awaiting, CreatedAt: baseTime, UpdatedAt: baseTime}
	seed(r, failing)
	seed(r, healthy)

	agg.EXPECT().Resolve(gomock.Any(), "AA123").Return(nil, unavailable("AA123"))
	agg.EXPECT().Resolve(gomock.Any(), "BA42").Return(resolved(&departure1, nil), nil)

	result, err := r.RefreshAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.UpdatedFlights, 1)
	assert.Equal(t, "BA42", result.UpdatedFlights[0].FlightNumber)
	assert.Equal(t, status.Departed, result.UpdatedFlights[0].Status)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "AA123", result.Errors[0].FlightNumber)
	assert.Equal(t, unavailable("AA123").Error(), result.Errors[0].Error)

	assert.Equal(t, failing, *r.flights["AA123"])
}

func TestRefreshAll_Empty(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)

	result, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result.UpdatedFlights)
	assert.NotNil(t, result.Errors)
	assert.Empty(t, result.UpdatedFlights)
	assert.Empty(t, result.Errors)
}

func TestRefreshAll_RemovedDuringLookup(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	seed(r, service.Flight{FlightNumber: "AA123", Status: status.Awaiting})

	agg.EXPECT().Resolve(gomock.Any(), "AA123").DoAndReturn(
		func(ctx context.Context, flightNumber string) (*provider.FlightTimes, error) {
			removed, err := r.RemoveFlight(ctx, flightNumber)
			assert.NoError(t, err)
			assert.True(t, removed)
			return resolved(&departure1, nil), nil
		})

	result, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.UpdatedFlights)
	assert.Empty(t, result.Errors)
	assert.Empty(t, r.flights, "refresh must not resurrect a removed flight")
}

func TestRefreshAll_ManyFlights(t *testing.T) {
	t.Parallel()

	r, agg := newTestRegistry(t)
	numbers := []string{"AA1", "AA2", "AA3", "AA4", "AA5", "AA6", "AA7", "AA8"}
	for _, n := range numbers {
		seed(r, service.Flight{FlightNumber: n, Status: status.Awaiting})
	}

	agg.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string) (*provider.FlightTimes, error) {
			time.Sleep(5 * time.Millisecond)
			return resolved(&departure1, nil), nil
		}).Times(len(numbers))

	result, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.UpdatedFlights, len(numbers))

	for _, n := range numbers {
		assert.Equal(t, status.Departed, r.flights[n].Status, n)
	}
	assert.Zero(t, r.keys.size())
}

func TestRegistry_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	registryMetrics, err := telemetry.NewRegistryMetrics(mp)
	require.NoError(t, err)
	refreshMetrics, err := telemetry.NewRefreshMetrics(mp)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	agg := mocks.NewMockAggregator(ctrl)
	agg.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(resolved(&departure1, nil), nil).AnyTimes()

	r := newRegistry(agg, WithRegistryMetrics(registryMetrics), WithRefreshMetrics(refreshMetrics))
	_, err = r.AddFlight(context.Background(), "AA123")
	require.NoError(t, err)
	_, err = r.RefreshAll(context.Background())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["flight_registry_flights_tracked"])
	assert.True(t, names["flight_registry_refresh_duration_seconds"])
	assert.True(t, names["flight_registry_flight_refreshes_total"])
}
