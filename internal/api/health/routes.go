// Package health provides the liveness, readiness and version endpoints.
package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aerotrack/flight-registry-server/internal/api/common"
	"github.com/aerotrack/flight-registry-server/internal/service"
	"github.com/aerotrack/flight-registry-server/internal/versions"
)

// StatusResponse represents the health and readiness check responses
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents a failed readiness check
type ErrorResponse struct {
	Error string `json:"error"`
}

// Router creates a router for health check endpoints
func Router(svc service.FlightService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles GET /health
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, StatusResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler handles GET /readiness
func readinessHandler(svc service.FlightService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteJSONResponse(w, ErrorResponse{
				Error: "FlightService not ready: " + err.Error(),
			}, http.StatusServiceUnavailable)
			return
		}

		common.WriteJSONResponse(w, StatusResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler handles GET /version
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
