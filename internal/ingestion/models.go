// Package ingestion provides the telemetry event model, payload truncation,
// schema validation, and the serialized ingest lane that feeds the event
// store and the live stream.
package ingestion

// Event type discriminators carried in the wire field "type".
const (
	// TypeTrace marks a workflow/session envelope.
	TypeTrace = "trace"

	// TypeSpan marks a single operation inside a trace.
	TypeSpan = "span"
)

// Span status values. Absent status is valid; producers typically set
// StatusError when the underlying operation raised.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

type (
	// Event is a single telemetry record: either a trace envelope or a span.
	// One struct covers both kinds because they share identity and timestamp
	// fields and the wire shape is the domain shape; Type discriminates.
	//
	// Timestamps stay strings on purpose. Arrival order is the only ordering
	// the service preserves, so timestamps are opaque payload that must
	// round-trip byte-for-byte; the validator parses them only to check
	// RFC 3339 shape and start/end ordering. Unknown wire fields are dropped
	// by encoding/json at decode time, which keeps forward-compatible
	// producers working.
	Event struct {
		// Type is TypeTrace or TypeSpan.
		Type string `json:"type"`

		// TraceID ties the record to a workflow instance. Required and
		// non-empty for both kinds.
		TraceID string `json:"trace_id"` //nolint:tagliatelle

		// SpanID uniquely labels a span within the buffer's lifetime in
		// practice; uniqueness is not enforced. Required for spans.
		SpanID string `json:"span_id,omitempty"` //nolint:tagliatelle

		// ParentID optionally references another span's SpanID in the same
		// trace to form a tree. The link is advisory: resolution is a
		// consumer concern and is not validated.
		ParentID string `json:"parent_id,omitempty"` //nolint:tagliatelle

		// Kind is an optional free-form span tag (e.g. "agent", "generation",
		// "function", "custom"; exporters in the wild also emit dotted forms
		// such as "openai.response.create").
		Kind string `json:"kind,omitempty"`

		// Name is an optional display label, capped by the truncator.
		Name string `json:"name,omitempty"`

		// GroupID optionally groups related traces (e.g. one conversation).
		// Trace envelopes only.
		GroupID string `json:"group_id,omitempty"` //nolint:tagliatelle

		// StartedAt and EndedAt are optional RFC 3339 timestamps. When both
		// are present, StartedAt must not be after EndedAt.
		StartedAt string `json:"started_at,omitempty"` //nolint:tagliatelle
		EndedAt   string `json:"ended_at,omitempty"`   //nolint:tagliatelle

		// Metadata is an optional string-to-string mapping on trace
		// envelopes.
		Metadata map[string]string `json:"metadata,omitempty"`

		// Data is the span payload: an opaque JSON object carried through
		// intact except that string leaves are capped by the truncator.
		Data map[string]any `json:"data,omitempty"`

		// Status is optional; StatusOK or StatusError when present.
		Status string `json:"status,omitempty"`
	}
)

// IsTrace reports whether the event is a workflow envelope.
func (e *Event) IsTrace() bool { return e.Type == TypeTrace }

// IsSpan reports whether the event is an operation record.
func (e *Event) IsSpan() bool { return e.Type == TypeSpan }
