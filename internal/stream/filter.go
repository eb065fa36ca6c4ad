// Package stream implements the SSE connection manager: subscription
// registry, per-subscriber bounded queues with drop-oldest backpressure,
// conjunctive event filters, heartbeat pacing, and frame writing.
package stream

import (
	"errors"
	"time"

	"github.com/ariadne-io/ariadne/internal/ingestion"
)

// ErrInvalidSince reports an unparseable since filter value. The HTTP layer
// maps it to a 400 response.
var ErrInvalidSince = errors.New("invalid since parameter")

// Canonicalizer maps producer-specific span kinds onto canonical kinds so
// filter membership tests meet in canonical space. Nil means exact matching.
type Canonicalizer func(kind string) string

// Filter restricts which events a subscription receives. All present
// criteria are conjunctive. The kinds and since criteria only restrict
// spans; trace envelopes always pass them. An empty filter accepts
// everything.
type Filter struct {
	traceID  string
	kinds    map[string]struct{}
	since    time.Time
	hasSince bool
}

// NewFilter builds a filter from raw query values: an exact trace id, a
// list of span kinds, and an RFC 3339 lower bound for span start times.
// Empty values leave the corresponding criterion off. An unparseable since
// returns ErrInvalidSince.
func NewFilter(traceID string, kinds []string, since string) (*Filter, error) {
	f := &Filter{traceID: traceID}

	if len(kinds) > 0 {
		f.kinds = make(map[string]struct{}, len(kinds))
		for _, kind := range kinds {
			f.kinds[kind] = struct{}{}
		}
	}

	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, ErrInvalidSince
		}

		f.since = t
		f.hasSince = true
	}

	return f, nil
}

// Empty reports whether the filter has no criteria.
func (f *Filter) Empty() bool {
	return f == nil || (f.traceID == "" && len(f.kinds) == 0 && !f.hasSince)
}

// Match reports whether e passes the filter. canon, when non-nil, maps the
// span's kind to its canonical form before the membership test; the filter's
// own kind set is canonicalized once at subscribe time.
//
// Semantics per criterion:
//   - traceID: the event's trace_id must equal it exactly.
//   - kinds: spans only; the span's kind must be present and a member.
//   - since: spans with a present started_at only; the timestamp must parse
//     and be at or after the bound. Spans without started_at pass.
func (f *Filter) Match(e *ingestion.Event, canon Canonicalizer) bool {
	if f == nil {
		return true
	}

	if f.traceID != "" && e.TraceID != f.traceID {
		return false
	}

	if !e.IsSpan() {
		return true
	}

	if len(f.kinds) > 0 {
		if e.Kind == "" {
			return false
		}

		kind := e.Kind
		if canon != nil {
			kind = canon(kind)
		}

		if _, ok := f.kinds[kind]; !ok {
			return false
		}
	}

	if f.hasSince && e.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, e.StartedAt)
		if err != nil || t.Before(f.since) {
			return false
		}
	}

	return true
}

// canonicalize returns a filter whose kind set is mapped through canon.
// Without kinds or without a canonicalizer the receiver is returned as is.
func (f *Filter) canonicalize(canon Canonicalizer) *Filter {
	if f == nil || canon == nil || len(f.kinds) == 0 {
		return f
	}

	out := *f
	out.kinds = make(map[string]struct{}, len(f.kinds))

	for kind := range f.kinds {
		out.kinds[canon(kind)] = struct{}{}
	}

	return &out
}
