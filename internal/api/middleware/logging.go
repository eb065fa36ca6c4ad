// Package middleware provides HTTP middleware components for the Ariadne API.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger creates a middleware that logs HTTP requests with structured
// logging.
//
// Streaming requests (GET /events) are passed the original ResponseWriter
// unwrapped: the SSE handler needs the http.Flusher the status-capturing
// wrapper would hide, and a stream's completion log covers the whole
// connection lifetime rather than a single exchange.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Extract correlation ID from context (set by correlation middleware)
			correlationID := GetCorrelationID(r.Context())

			logger.Info("HTTP request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", correlationID),
			)

			if isStreamRequest(r) {
				next.ServeHTTP(w, r)

				logger.Info("HTTP stream closed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Duration("duration", time.Since(start)),
					slog.String("correlation_id", correlationID),
				)

				return
			}

			// Create a response writer wrapper to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("HTTP request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", rw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("correlation_id", correlationID),
			)
		})
	}
}

// isStreamRequest reports whether the request opens an SSE stream.
func isStreamRequest(r *http.Request) bool {
	return r.Method == http.MethodGet && r.URL.Path == "/events"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter

	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
