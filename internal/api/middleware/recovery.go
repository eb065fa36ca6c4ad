// Package middleware provides HTTP middleware components for the Ariadne API.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// errorEnvelope is the JSON error shape the API uses everywhere:
// {"error": ..., "message": ...}. Redeclared here because middleware sits
// below the api package in the import graph.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeErrorEnvelope writes a JSON error response with the API envelope.
func writeErrorEnvelope(w http.ResponseWriter, status int, errText, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(errorEnvelope{Error: errText, Message: message})
}

// Recovery creates a middleware that recovers from panics and logs them.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func(ctx context.Context) {
				if err := recover(); err != nil {
					correlationID := GetCorrelationID(ctx)

					logger.Error("HTTP request panic recovered",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("correlation_id", correlationID),
						slog.Any("panic", err),
						slog.String("stack_trace", string(debug.Stack())),
					)

					// Best effort: if the handler already wrote headers
					// (an in-flight SSE stream, for instance) this write
					// fails silently and the connection just closes.
					writeErr := writeErrorEnvelope(w, http.StatusInternalServerError,
						"Internal server error",
						"An unexpected error occurred while processing the request")
					if writeErr != nil {
						logger.Error("Failed to encode panic error response",
							slog.Any("error", writeErr),
							slog.String("correlation_id", correlationID),
						)
					}
				}
			}(r.Context())

			next.ServeHTTP(w, r)
		})
	}
}
