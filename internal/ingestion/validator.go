package ingestion

import (
	"fmt"
	"time"
)

// Validation messages returned in the details list of a 400 response. The
// wording is part of the wire contract consumers match on, so keep it stable.
const (
	msgInvalidType      = `event type must be "trace" or "span"`
	msgMissingTraceID   = "trace_id is required and must be non-empty"
	msgMissingSpanID    = "span_id is required and must be non-empty"
	msgInvalidStartedAt = "started_at must be an RFC 3339 timestamp"
	msgInvalidEndedAt   = "ended_at must be an RFC 3339 timestamp"
	msgEndBeforeStart   = "ended_at must be >= started_at"
	msgInvalidStatus    = `status must be "ok" or "error"`
)

// FieldError names one schema violation: the offending field path and a
// human-readable reason. A batch request prefixes paths with "batch[i].".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validator performs semantic validation of decoded events against the wire
// schema: type discriminator, required identifiers, RFC 3339 timestamp shape,
// start/end ordering, and the status enum. It accumulates every violation
// instead of stopping at the first so a single 400 response can report the
// union for the whole request.
//
// Validation runs on already-truncated events; oversized producer strings
// never reach an error payload.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEvent checks one event and returns all violations found, or nil.
//
// Rules:
//   - type: required, TypeTrace or TypeSpan
//   - trace_id: required, non-empty
//   - span_id: required and non-empty for spans
//   - started_at, ended_at: RFC 3339 when present
//   - started_at ≤ ended_at when both parse
//   - status: StatusOK or StatusError when present
//
// A nil event reports a single violation on path "event".
func (v *Validator) ValidateEvent(event *Event) []FieldError {
	if event == nil {
		return []FieldError{{Path: "event", Message: "event must be a JSON object"}}
	}

	var errs []FieldError

	if event.Type != TypeTrace && event.Type != TypeSpan {
		errs = append(errs, FieldError{Path: "type", Message: msgInvalidType})
	}

	if event.TraceID == "" {
		errs = append(errs, FieldError{Path: "trace_id", Message: msgMissingTraceID})
	}

	if event.Type == TypeSpan && event.SpanID == "" {
		errs = append(errs, FieldError{Path: "span_id", Message: msgMissingSpanID})
	}

	var started, ended *time.Time

	if event.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339, event.StartedAt); err == nil {
			started = &t
		} else {
			errs = append(errs, FieldError{Path: "started_at", Message: msgInvalidStartedAt})
		}
	}

	if event.EndedAt != "" {
		if t, err := time.Parse(time.RFC3339, event.EndedAt); err == nil {
			ended = &t
		} else {
			errs = append(errs, FieldError{Path: "ended_at", Message: msgInvalidEndedAt})
		}
	}

	// Ordering is only checkable when both timestamps are present and parsed.
	if started != nil && ended != nil && ended.Before(*started) {
		errs = append(errs, FieldError{Path: "ended_at", Message: msgEndBeforeStart})
	}

	if event.Status != "" && event.Status != StatusOK && event.Status != StatusError {
		errs = append(errs, FieldError{Path: "status", Message: msgInvalidStatus})
	}

	return errs
}

// ValidateBatch checks every event of a batch request and returns the union
// of violations with paths prefixed "batch[i].". An empty batch is valid.
func (v *Validator) ValidateBatch(events []*Event) []FieldError {
	var errs []FieldError

	for i, event := range events {
		for _, fe := range v.ValidateEvent(event) {
			errs = append(errs, FieldError{
				Path:    fmt.Sprintf("batch[%d].%s", i, fe.Path),
				Message: fe.Message,
			})
		}
	}

	return errs
}
