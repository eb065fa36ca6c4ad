// Package api provides the HTTP surface of the Ariadne service.
package api

import "github.com/ariadne-io/ariadne/internal/ingestion"

type (
	// IngestResponse is the success body of POST /ingest.
	IngestResponse struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}

	// HealthResponse is the body of GET /healthz.
	HealthResponse struct {
		Status    string       `json:"status"`
		Timestamp string       `json:"timestamp"`
		Events    HealthEvents `json:"events"`
	}

	// HealthEvents reports the event store's fill level.
	HealthEvents struct {
		Count    int `json:"count"`
		Capacity int `json:"capacity"`
	}

	// IndexResponse is the self-describing body of GET /.
	IndexResponse struct {
		Service   string            `json:"service"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}

	// ErrorResponse is the error envelope used by every non-2xx JSON
	// response: error names the failure class, message carries optional
	// free text, and details lists per-field validation violations.
	ErrorResponse struct {
		Error   string                 `json:"error"`
		Message string                 `json:"message,omitempty"`
		Details []ingestion.FieldError `json:"details,omitempty"`
	}

	// ingestEnvelope distinguishes the two POST /ingest body shapes: a
	// bare event object, or {"batch": [...]}. Batch stays raw until the
	// handler knows which shape it is looking at.
	ingestEnvelope struct {
		Batch []*ingestion.Event `json:"batch"`
	}
)
