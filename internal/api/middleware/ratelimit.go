// Package middleware provides HTTP middleware components for the Ariadne API.
package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// burstCapacityMultiplier sizes the token bucket burst as a multiple of the
// sustained rate, allowing short producer bursts without rejections.
const burstCapacityMultiplier = 2

type (
	// Limiter decides whether an ingest request should be admitted.
	//
	// The in-memory token bucket suits the single-node localhost
	// deployment; the interface exists so tests can inject deterministic
	// limiters.
	Limiter interface {
		// Allow reports whether one more request fits within the limit.
		Allow() bool
	}

	// IngestLimiter implements Limiter using golang.org/x/time/rate.
	//
	// A single token bucket covers all producers: they are local agent
	// processes, not tenants, so per-caller accounting would add state
	// without adding protection.
	IngestLimiter struct {
		limiter *rate.Limiter
	}
)

// NewIngestLimiter creates a token-bucket limiter admitting rps requests per
// second with a burst of 2 × rps. A non-positive rps returns nil, which the
// middleware chain treats as "rate limiting disabled".
func NewIngestLimiter(rps int) *IngestLimiter {
	if rps <= 0 {
		return nil
	}

	return &IngestLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps*burstCapacityMultiplier),
	}
}

// Allow implements Limiter.
func (l *IngestLimiter) Allow() bool {
	return l.limiter.Allow()
}

// RateLimit returns a middleware that enforces the ingest rate limit.
//
// Only POST /ingest is guarded: SSE subscriptions and health probes are
// cheap and must stay reachable even when producers misbehave. Over-limit
// requests get 429 with the standard error envelope.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isIngestRequest(r) {
				next.ServeHTTP(w, r)

				return
			}

			if !limiter.Allow() {
				correlationID := GetCorrelationID(r.Context())

				detail := "Ingest rate limit exceeded. Please retry after some time."
				if err := writeErrorEnvelope(w, http.StatusTooManyRequests, "Too many requests", detail); err != nil {
					logger.Error("Failed to write rate limit response",
						slog.String("correlation_id", correlationID),
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)

					// Fallback to plain text if the envelope write fails
					http.Error(w, detail, http.StatusTooManyRequests)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isIngestRequest reports whether the request is an event ingest POST.
func isIngestRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == "/ingest"
}
