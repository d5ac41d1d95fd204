// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the envelope returned by every flight API endpoint
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteDataResponse writes a successful envelope wrapping data
func WriteDataResponse(w http.ResponseWriter, data any, statusCode int) {
	WriteJSONResponse(w, Response{Success: true, Data: data}, statusCode)
}

// WriteErrorResponse writes a failed envelope carrying message
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, Response{Success: false, Error: message}, statusCode)
}
