// Package api provides the HTTP surface of the Ariadne service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
)

// setupRoutes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Telemetry pipeline
	mux.HandleFunc("POST /ingest", s.handleIngestEvents)
	mux.HandleFunc("GET /events", s.handleStreamEvents)

	// Operational surface
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Catch-all handler for 404 responses
	mux.HandleFunc("/", s.handleNotFound)
}

// handleHealthz reports liveness plus the store's fill level. The service
// has no external dependencies to probe; if this handler runs, the service
// is healthy.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Events: HealthEvents{
			Count:    s.store.Count(),
			Capacity: s.store.Capacity(),
		},
	}

	data, err := json.Marshal(health)
	if err != nil {
		s.logger.Error("Failed to encode health response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteError(w, r, s.logger, http.StatusInternalServerError,
			InternalServerError("Failed to encode health response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write health response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleIndex returns a self-describing service index.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	index := IndexResponse{
		Service: "ariadne",
		Version: Version,
		Endpoints: map[string]string{
			"POST /ingest": "ingest a trace/span event or {\"batch\": [...]}",
			"GET /events":  "live SSE stream; filters: traceId, kinds, since",
			"GET /healthz": "liveness plus event store fill level",
			"GET /metrics": "Prometheus metrics",
		},
	}

	data, err := json.Marshal(index)
	if err != nil {
		s.logger.Error("Failed to encode index response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteError(w, r, s.logger, http.StatusInternalServerError,
			InternalServerError("Failed to encode index response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write index response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleNotFound returns the standard envelope for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, s.logger, http.StatusNotFound, NotFound("The requested resource was not found"))
}
