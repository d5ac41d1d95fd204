// Package provider queries flight data providers and reconciles their answers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrProviderUnavailable is returned when no provider produced usable data for a flight
var ErrProviderUnavailable = errors.New("no provider returned flight data")

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks -source=provider.go Provider,Aggregator

// Provider is a single source of flight data
type Provider interface {
	// Name identifies the provider in error messages, logs and metrics
	Name() string

	// Fetch looks up the actual departure and arrival times of a flight.
	// A provider that answered but has no data for the flight reports it through
	// Result.Err; a non-nil error means the call itself failed.
	Fetch(ctx context.Context, flightNumber string) (*Result, error)
}

// Aggregator resolves a flight across every configured provider
type Aggregator interface {
	// Resolve returns the flight times from the highest-priority provider that
	// produced usable data. It fails with an error wrapping ErrProviderUnavailable
	// only if every provider failed.
	Resolve(ctx context.Context, flightNumber string) (*FlightTimes, error)
}

// Result is a single provider's answer for one flight
type Result struct {
	// Err is set when the provider reported a logical failure (unknown flight, maintenance)
	Err string

	ActualDepartureTime *time.Time
	ActualArrivalTime   *time.Time
}

// Failed reports whether the provider reported a logical failure
func (r *Result) Failed() bool {
	return r.Err != ""
}

// FlightTimes are the reconciled actual times of a flight. Nil means the event has not happened.
type FlightTimes struct {
	ActualDepartureTime *time.Time
	ActualArrivalTime   *time.Time
}

// Failure describes why one provider could not serve a lookup
type Failure struct {
	Provider string
	Reason   string
}

// UnavailableError is returned when every provider failed for a flight.
// It wraps ErrProviderUnavailable.
type UnavailableError struct {
	FlightNumber string
	Failures     []Failure
}

func (e *UnavailableError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s: %s", f.Provider, f.Reason))
	}
	return fmt.Sprintf("unable to retrieve flight data for %s from any provider: %s",
		e.FlightNumber, strings.Join(reasons, ", "))
}

func (*UnavailableError) Unwrap() error {
	return ErrProviderUnavailable
}
