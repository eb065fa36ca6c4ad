// Package api provides the HTTP surface of the Ariadne service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/ingestion"
)

// WriteError writes a JSON error response with the standard envelope. Every
// error path in the API goes through here so the wire shape exists exactly
// once.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, resp *ErrorResponse) {
	correlationID := middleware.GetCorrelationID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("Failed to encode error response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.Any("encode_error", err),
			slog.Int("status", status),
		)
	}
}

// Common error constructors for frequently used errors.

// ValidationFailed creates the 400 body for schema violations and malformed
// JSON. details carries the union of field-path/message pairs.
func ValidationFailed(details []ingestion.FieldError) *ErrorResponse {
	return &ErrorResponse{
		Error:   "Validation failed",
		Details: details,
	}
}

// InvalidSince creates the 400 body for a bad since query parameter.
func InvalidSince() *ErrorResponse {
	return &ErrorResponse{
		Error: "Invalid since parameter",
	}
}

// PayloadTooLarge creates the 413 body for an oversized request.
func PayloadTooLarge(message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   "Payload too large",
		Message: message,
	}
}

// InternalServerError creates the 500 body for unexpected failures.
func InternalServerError(message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   "Internal server error",
		Message: message,
	}
}

// NotFound creates the 404 body for unknown endpoints.
func NotFound(message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   "Not found",
		Message: message,
	}
}
