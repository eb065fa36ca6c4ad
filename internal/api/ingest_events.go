package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/ingestion"
)

// handleIngestEvents handles telemetry event ingestion.
// POST /ingest - Ingest a single trace/span event or {"batch": [...]}
//
// Request validation (returns 4xx):
//   - 405 Method Not Allowed: Only POST is allowed (handled by route pattern)
//   - 413 Payload Too Large: Request body exceeds MaxRequestSize
//   - 400 Bad Request: Malformed JSON or schema violations; the details
//     list carries the union of field-path/message pairs
//
// The contract is all-or-nothing per request: one invalid event rejects the
// whole payload and nothing is stored or broadcast.
//
// Success response:
//   - 200 OK: {"success": true, "count": N}
func (s *Server) handleIngestEvents(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	correlationID := middleware.GetCorrelationID(r.Context())

	events, batched, status, errResp := s.parseIngestRequest(r)
	if errResp != nil {
		WriteError(w, r, s.logger, status, errResp)

		return
	}

	count, violations := s.pipeline.Ingest(events, batched)
	if violations != nil {
		s.logger.Warn("Ingest request rejected",
			slog.String("correlation_id", correlationID),
			slog.Int("events", len(events)),
			slog.Int("violations", len(violations)),
		)

		WriteError(w, r, s.logger, http.StatusBadRequest, ValidationFailed(violations))

		return
	}

	data, err := json.Marshal(IngestResponse{Success: true, Count: count})
	if err != nil {
		s.logger.Error("Failed to marshal ingest response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteError(w, r, s.logger, http.StatusInternalServerError,
			InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write ingest response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		return
	}

	s.logger.Info("Events ingested",
		slog.String("correlation_id", correlationID),
		slog.Int("count", count),
		slog.Bool("batched", batched),
		slog.Duration("duration", time.Since(startTime)),
	)
}

// parseIngestRequest reads and decodes the request body into events.
// Returns the decoded events and whether the payload used the batch
// wrapper, or the HTTP status and ErrorResponse when the body is oversized
// or malformed.
//
// The oversize gate fires on Content-Length before the body is read;
// MaxBytesReader backstops requests that lie about (or omit) their length.
func (s *Server) parseIngestRequest(r *http.Request) ([]*ingestion.Event, bool, int, *ErrorResponse) {
	tooLarge := PayloadTooLarge(
		fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.config.MaxRequestSize),
	)

	if r.ContentLength > s.config.MaxRequestSize {
		return nil, false, http.StatusRequestEntityTooLarge, tooLarge
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, s.config.MaxRequestSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, false, http.StatusRequestEntityTooLarge, tooLarge
		}

		return nil, false, http.StatusBadRequest, ValidationFailed([]ingestion.FieldError{
			{Path: "body", Message: "failed to read request body"},
		})
	}

	// The wrapper stays invisible to producers posting bare events: only a
	// top-level "batch" field selects batch mode.
	if usesBatchWrapper(body) {
		var envelope ingestEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, false, http.StatusBadRequest, ValidationFailed([]ingestion.FieldError{
				{Path: "body", Message: "invalid JSON: " + err.Error()},
			})
		}

		return envelope.Batch, true, 0, nil
	}

	var event ingestion.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, false, http.StatusBadRequest, ValidationFailed([]ingestion.FieldError{
			{Path: "body", Message: "invalid JSON: " + err.Error()},
		})
	}

	return []*ingestion.Event{&event}, false, 0, nil
}

// usesBatchWrapper reports whether the body is an object carrying a
// top-level "batch" list.
func usesBatchWrapper(body []byte) bool {
	var probe struct {
		Batch json.RawMessage `json:"batch"`
	}

	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}

	return len(probe.Batch) > 0 && !bytes.Equal(probe.Batch, []byte("null"))
}
