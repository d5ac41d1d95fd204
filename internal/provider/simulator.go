package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aerotrack/flight-registry-server/internal/config"
)

const (
	// minFlightDurationHours keeps simulated flights from landing the instant they depart
	minFlightDurationHours = 0.5

	// departureWindow is the span around now in which scheduled departures are drawn (±24h)
	departureWindow = 48 * time.Hour
)

// Simulator is a Provider that synthesizes plausible flight data with configurable failure rates
type Simulator struct {
	name                   string
	notFoundProbability    float64
	maintenanceProbability float64
	minDelay               time.Duration
	maxDelay               time.Duration
	minHours               float64
	maxHours               float64

	// rng is not safe for concurrent use; mu guards it when injected
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

var _ Provider = (*Simulator)(nil)

// SimulatorOption is a functional option for configuring the Simulator
type SimulatorOption func(*Simulator)

// WithRand makes the simulator draw from the given source, for reproducible runs
func WithRand(rng *rand.Rand) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rng
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) {
		s.now = now
	}
}

// NewSimulator creates a simulated provider from its configuration
func NewSimulator(cfg config.ProviderConfig, opts ...SimulatorOption) *Simulator {
	minDelay, maxDelay := cfg.GetNetworkDelay()
	minHours, maxHours := cfg.GetFlightDuration()

	s := &Simulator{
		name:                   cfg.Name,
		notFoundProbability:    cfg.NotFoundProbability,
		maintenanceProbability: cfg.MaintenanceProbability,
		minDelay:               minDelay,
		maxDelay:               maxDelay,
		minHours:               minHours,
		maxHours:               maxHours,
		now:                    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSimulators creates one simulator per provider configuration, preserving priority order
func NewSimulators(cfgs []config.ProviderConfig, opts ...SimulatorOption) []Provider {
	providers := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		providers = append(providers, NewSimulator(cfg, opts...))
	}
	return providers
}

// Name returns the provider name
func (s *Simulator) Name() string {
	return s.name
}

// Fetch waits a random network delay, then either reports a failure or returns
// times derived from a scheduled departure drawn within ±24h of now.
// It only returns an error if ctx is done before the delay elapses.
func (s *Simulator) Fetch(ctx context.Context, flightNumber string) (*Result, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	if s.draw() < s.notFoundProbability {
		return &Result{
			Err: fmt.Sprintf("Flight %s not found in %s database", flightNumber, s.name),
		}, nil
	}

	if s.maintenanceProbability > 0 && s.draw() < s.maintenanceProbability {
		return &Result{
			Err: fmt.Sprintf("Flight %s is currently under maintenance - data temporarily unavailable", flightNumber),
		}, nil
	}

	now := s.now()
	offset := time.Duration((s.draw() - 0.5) * float64(departureWindow))
	scheduled := now.Add(offset).UTC().Truncate(time.Millisecond)
	hours := max(s.minHours+s.draw()*(s.maxHours-s.minHours), minFlightDurationHours)

	result := &Result{}
	if scheduled.Before(now) {
		departure := scheduled
		result.ActualDepartureTime = &departure

		arrival := departure.Add(time.Duration(hours * float64(time.Hour)))
		if arrival.After(departure) && arrival.Before(now) {
			result.ActualArrivalTime = &arrival
		}
	}

	return result, nil
}

// wait sleeps for a delay drawn from the configured range, or until ctx is done
func (s *Simulator) wait(ctx context.Context) error {
	delay := s.minDelay + time.Duration(s.draw()*float64(s.maxDelay-s.minDelay))
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulator) draw() float64 {
	if s.rng == nil {
		//nolint:gosec // G404: simulated data does not need cryptographic randomness
		return rand.Float64()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
