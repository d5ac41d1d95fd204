package provider

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerotrack/flight-registry-server/internal/config"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// scriptedSource feeds rand.Rand a fixed sequence so that successive Float64 calls
// return the given values. Draw order in Fetch: delay, not-found, maintenance (only
// when configured), departure offset, flight duration.
type scriptedSource struct {
	values []float64
	next   int
}

func (s *scriptedSource) Uint64() uint64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return uint64(v * (1 << 53))
}

func newScriptedSimulator(cfg config.ProviderConfig, values ...float64) *Simulator {
	return NewSimulator(cfg,
		WithRand(rand.New(&scriptedSource{values: values})),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func flightStatsConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Name:                   config.ProviderFlightStats,
		NotFoundProbability:    0.03,
		MaintenanceProbability: 0.05,
		FlightDuration:         config.DurationRangeConfig{Min: 1, Max: 6},
	}
}

func flightAwareConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Name:                config.ProviderFlightAware,
		NotFoundProbability: 0.05,
		FlightDuration:      config.DurationRangeConfig{Min: 1, Max: 8},
	}
}

func TestSimulator_Name(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "FlightStats", NewSimulator(flightStatsConfig()).Name())
}

func TestSimulator_Fetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cfg           config.ProviderConfig
		draws         []float64
		wantErr       string
		wantDeparture *time.Time
		wantArrival   *time.Time
	}{
		{
			name:    "not found",
			cfg:     flightStatsConfig(),
			draws:   []float64{0, 0.0},
			wantErr: "Flight AA123 not found in FlightStats database",
		},
		{
			name:    "under maintenance",
			cfg:     flightStatsConfig(),
			draws:   []float64{0, 0.5, 0.03125},
			wantErr: "Flight AA123 is currently under maintenance - data temporarily unavailable",
		},
		{
			// offset draw 0.75 puts the scheduled departure 12h in the future
			name:  "not yet departed",
			cfg:   flightStatsConfig(),
			draws: []float64{0, 0.5, 0.5, 0.75, 0.5},
		},
		{
			// no maintenance draw: offset 0.25 is 12h ago, duration 0.5 is 4.5h
			name:          "arrived",
			cfg:           flightAwareConfig(),
			draws:         []float64{0, 0.5, 0.25, 0.5},
			wantDeparture: timePtr(fixedNow.Add(-12 * time.Hour)),
			wantArrival:   timePtr(fixedNow.Add(-12*time.Hour + 270*time.Minute)),
		},
		{
			// offset 0.4375 is 3h ago, duration 0.5 is 4.5h so the flight is still airborne
			name:          "in flight",
			cfg:           flightAwareConfig(),
			draws:         []float64{0, 0.5, 0.4375, 0.5},
			wantDeparture: timePtr(fixedNow.Add(-3 * time.Hour)),
		},
		{
			// a zero-length duration range is floored at 30 minutes
			name: "duration floor",
			cfg: config.ProviderConfig{
				Name:           "Floor",
				FlightDuration: config.DurationRangeConfig{Min: 0, Max: 0},
			},
			draws:         []float64{0, 0.5, 0.25, 0},
			wantDeparture: timePtr(fixedNow.Add(-12 * time.Hour)),
			wantArrival:   timePtr(fixedNow.Add(-12*time.Hour + 30*time.Minute)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sim := newScriptedSimulator(tt.cfg, tt.draws...)
			result, err := sim.Fetch(context.Background(), "AA123")
			require.NoError(t, err)
			require.NotNil(t, result)

			if tt.wantErr != "" {
				assert.True(t, result.Failed())
				assert.Equal(t, tt.wantErr, result.Err)
				assert.Nil(t, result.ActualDepartureTime)
				assert.Nil(t, result.ActualArrivalTime)
				return
			}

			assert.False(t, result.Failed())
			assertTimeEqual(t, tt.wantDeparture, result.ActualDepartureTime)
			assertTimeEqual(t, tt.wantArrival, result.ActualArrivalTime)
		})
	}
}

func TestSimulator_FetchHonoursContext(t *testing.T) {
	t.Parallel()

	cfg := flightStatsConfig()
	cfg.NetworkDelay = config.DelayRangeConfig{Min: "1h", Max: "1h"}
	sim := NewSimulator(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Fetch(ctx, "AA123")
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestSimulator_FetchDelay(t *testing.T) {
	t.Parallel()

	cfg := flightAwareConfig()
	cfg.NetworkDelay = config.DelayRangeConfig{Min: "20ms", Max: "20ms"}
	sim := NewSimulator(cfg)

	start := time.Now()
	_, err := sim.Fetch(context.Background(), "AA123")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSimulator_Invariants(t *testing.T) {
	t.Parallel()

	cfg := config.ProviderConfig{
		Name:           "Reliable",
		FlightDuration: config.DurationRangeConfig{Min: 1, Max: 8},
	}
	sim := NewSimulator(cfg,
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return fixedNow }),
	)

	for range 500 {
		result, err := sim.Fetch(context.Background(), "BA42")
		require.NoError(t, err)
		require.False(t, result.Failed())

		if result.ActualArrivalTime != nil {
			require.NotNil(t, result.ActualDepartureTime, "arrival without departure")
			assert.True(t, result.ActualArrivalTime.After(*result.ActualDepartureTime))
			assert.True(t, result.ActualArrivalTime.Before(fixedNow))
			assert.GreaterOrEqual(t, result.ActualArrivalTime.Sub(*result.ActualDepartureTime), 30*time.Minute)
		}
		if result.ActualDepartureTime != nil {
			assert.True(t, result.ActualDepartureTime.Before(fixedNow))
			assert.True(t, result.ActualDepartureTime.After(fixedNow.Add(-24*time.Hour-time.Millisecond)))
		}
	}
}

func TestSimulator_AlwaysNotFound(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.ProviderConfig{Name: "Empty", NotFoundProbability: 1})
	for range 20 {
		result, err := sim.Fetch(context.Background(), "LH400")
		require.NoError(t, err)
		assert.Equal(t, "Flight LH400 not found in Empty database", result.Err)
	}
}

func TestNewSimulators(t *testing.T) {
	t.Parallel()

	providers := NewSimulators(config.DefaultProviders())
	require.Len(t, providers, 2)
	assert.Equal(t, config.ProviderFlightStats, providers[0].Name())
	assert.Equal(t, config.ProviderFlightAware, providers[1].Name())
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func assertTimeEqual(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.WithinDuration(t, *want, *got, time.Millisecond)
}
