package app

import (
	"github.com/aerotrack/flight-registry-server/internal/provider"
	"github.com/aerotrack/flight-registry-server/internal/service"
	"github.com/aerotrack/flight-registry-server/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// RefreshCoordinator refreshes tracked flights in the background (nil when disabled)
	RefreshCoordinator coordinator.Coordinator

	// FlightService provides flight registry business logic
	FlightService service.FlightService

	// Aggregator resolves flight times across the configured providers
	Aggregator provider.Aggregator
}
