// Package flights provides the REST API handlers for flight tracking.
package flights

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aerotrack/flight-registry-server/internal/api/common"
	"github.com/aerotrack/flight-registry-server/internal/service"
)

// maxRequestBodySize bounds the body of POST /track
const maxRequestBodySize = 64 << 10

// TrackFlightRequest is the body of POST /api/flights/track
type TrackFlightRequest struct {
	FlightNumber string `json:"flightNumber"`
}

// MessageResponse is returned by endpoints that have no resource to return
type MessageResponse struct {
	Message string `json:"message"`
}

// Routes handles HTTP requests for the flight tracking endpoints.
type Routes struct {
	service service.FlightService
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.FlightService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates and configures the HTTP router for the flight tracking endpoints.
func Router(svc service.FlightService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/", routes.listFlights)
	r.Post("/track", routes.trackFlight)
	r.Post("/refresh", routes.refreshFlights)
	r.Get("/{flightNumber}", routes.getFlight)
	r.Delete("/{flightNumber}", routes.removeFlight)

	return r
}

// trackFlight handles POST /api/flights/track
func (routes *Routes) trackFlight(w http.ResponseWriter, r *http.Request) {
	var req TrackFlightRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	flight, err := routes.service.AddFlight(r.Context(), req.FlightNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	common.WriteDataResponse(w, flight, http.StatusCreated)
}

// listFlights handles GET /api/flights
func (routes *Routes) listFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := routes.service.ListFlights(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if flights == nil {
		flights = []service.Flight{}
	}
	common.WriteDataResponse(w, flights, http.StatusOK)
}

// getFlight handles GET /api/flights/{flightNumber}
func (routes *Routes) getFlight(w http.ResponseWriter, r *http.Request) {
	flightNumber, err := common.GetFlightNumberParam(r, "flightNumber")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	flight, err := routes.service.GetFlight(r.Context(), flightNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	common.WriteDataResponse(w, flight, http.StatusOK)
}

// removeFlight handles DELETE /api/flights/{flightNumber}
func (routes *Routes) removeFlight(w http.ResponseWriter, r *http.Request) {
	flightNumber, err := common.GetFlightNumberParam(r, "flightNumber")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	removed, err := routes.service.RemoveFlight(r.Context(), flightNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	id := service.NormalizeFlightNumber(flightNumber)
	if !removed {
		common.WriteErrorResponse(w, fmt.Sprintf("Flight %s not found in tracking list", id), http.StatusNotFound)
		return
	}

	common.WriteDataResponse(w, MessageResponse{
		Message: fmt.Sprintf("Flight %s removed from tracking", id),
	}, http.StatusOK)
}

// refreshFlights handles POST /api/flights/refresh.
// Per-flight failures are part of a successful response.
func (routes *Routes) refreshFlights(w http.ResponseWriter, r *http.Request) {
	result, err := routes.service.RefreshAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	common.WriteDataResponse(w, result, http.StatusOK)
}

// writeServiceError maps a FlightService error to its HTTP status
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		common.WriteErrorResponse(w, "Flight number is required and must be a non-empty string", http.StatusBadRequest)
	case errors.Is(err, service.ErrAlreadyTracked):
		common.WriteErrorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrFlightNotTracked):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrProviderUnavailable):
		common.WriteErrorResponse(w, err.Error(), http.StatusBadGateway)
	default:
		slog.ErrorContext(r.Context(), "Flight request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		common.WriteErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}
