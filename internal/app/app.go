// Package app provides application lifecycle management for the flight registry server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aerotrack/flight-registry-server/internal/config"
)

// FlightRegistryApp encapsulates all components needed to run the flight registry API server
// It provides lifecycle management and graceful shutdown capabilities
type FlightRegistryApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the application components (HTTP server and background refresh)
// This method blocks until the HTTP server stops or encounters an error
func (app *FlightRegistryApp) Start() error {
	// Start refresh coordinator in background
	if app.components.RefreshCoordinator != nil {
		go func() {
			if err := app.components.RefreshCoordinator.Start(app.ctx); err != nil {
				slog.Error("Refresh coordinator failed", "error", err)
			}
		}()
	}

	// Start HTTP server (blocks until stopped)
	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout
// It stops the refresh coordinator and then shuts down the HTTP server
func (app *FlightRegistryApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server")

	// Stop refresh coordinator first
	if app.components.RefreshCoordinator != nil {
		if err := app.components.RefreshCoordinator.Stop(); err != nil {
			slog.Error("Failed to stop refresh coordinator", "error", err)
		}
	}

	// Cancel the application context
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	// Graceful HTTP server shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *FlightRegistryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *FlightRegistryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetComponents returns the application components
func (app *FlightRegistryApp) GetComponents() *AppComponents {
	return app.components
}
