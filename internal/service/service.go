// Package service provides the business logic for the flight registry API
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aerotrack/flight-registry-server/internal/provider"
	"github.com/aerotrack/flight-registry-server/internal/status"
)

var (
	// ErrInvalidInput is returned when a flight identifier is empty after normalization
	ErrInvalidInput = errors.New("flight number is required")
	// ErrAlreadyTracked is returned when adding a flight that is already tracked
	ErrAlreadyTracked = errors.New("flight is already being tracked")
	// ErrFlightNotTracked is returned when looking up a flight that is not tracked
	ErrFlightNotTracked = errors.New("flight is not being tracked")
	// ErrProviderUnavailable is returned when no provider produced data for a flight
	ErrProviderUnavailable = provider.ErrProviderUnavailable
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go FlightService

// FlightService defines the interface for flight registry operations
type FlightService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// AddFlight starts tracking a flight, seeding its status from the providers
	AddFlight(ctx context.Context, flightNumber string) (*Flight, error)

	// GetFlight returns a single tracked flight
	GetFlight(ctx context.Context, flightNumber string) (*Flight, error)

	// ListFlights returns a snapshot of every tracked flight
	ListFlights(ctx context.Context) ([]Flight, error)

	// RemoveFlight stops tracking a flight and reports whether it was tracked
	RemoveFlight(ctx context.Context, flightNumber string) (bool, error)

	// RefreshAll re-queries the providers for every tracked flight that has not arrived.
	// Per-flight failures are reported in the result, never as the returned error.
	RefreshAll(ctx context.Context) (*RefreshResult, error)
}

// Flight is a tracked flight and its reconciled status
type Flight struct {
	FlightNumber        string        `json:"flightNumber"`
	Status              status.Status `json:"status"`
	ActualDepartureTime *time.Time    `json:"actualDepartureTime"`
	ActualArrivalTime   *time.Time    `json:"actualArrivalTime"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// RefreshResult is the outcome of a RefreshAll batch
type RefreshResult struct {
	// UpdatedFlights holds every flight processed successfully, arrived flights included
	UpdatedFlights []Flight `json:"updatedFlights"`
	// Errors holds one entry per flight whose refresh failed
	Errors []RefreshError `json:"errors"`
}

// RefreshError describes a failed refresh of a single flight
type RefreshError struct {
	FlightNumber string `json:"flightNumber"`
	Error        string `json:"error"`
}

// NormalizeFlightNumber trims surrounding whitespace and upper-cases a flight identifier
func NormalizeFlightNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
