package storage

import (
	"sync"

	"github.com/ariadne-io/ariadne/internal/ingestion"
)

type (
	// TraceRecord is the per-trace view held by the index: at most one trace
	// envelope plus every span seen for that trace_id, in arrival order. A
	// producer re-emitting the envelope replaces the previous one.
	TraceRecord struct {
		Trace *ingestion.Event
		Spans []*ingestion.Event
	}

	// EventStore composes the ring buffer with a secondary index keyed by
	// trace_id. The index is append-only for the lifetime of the process:
	// ring eviction does not prune it. That asymmetry is deliberate; the
	// index is an advisory convenience for tooling, not an authoritative
	// mirror of the buffer, and bounding it would require bookkeeping the
	// latest-N workload does not justify. Clear truncates both.
	EventStore struct {
		ring *EventRing

		mu     sync.RWMutex
		traces map[string]*TraceRecord
	}
)

// NewEventStore creates a store whose ring holds at most capacity events.
// Non-positive capacities fall back to DefaultCapacity.
func NewEventStore(capacity int) *EventStore {
	return &EventStore{
		ring:   NewEventRing(capacity),
		traces: make(map[string]*TraceRecord),
	}
}

// Append records a validated event: the ring gets it unconditionally, then
// the trace index is updated. Trace envelopes set (or replace) the trace
// slot for their id; spans append to the trace's span list. Events reaching
// here have passed validation, so TraceID is always non-empty.
func (s *EventStore) Append(e *ingestion.Event) {
	s.ring.Append(e)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.traces[e.TraceID]
	if !ok {
		rec = &TraceRecord{}
		s.traces[e.TraceID] = rec
	}

	if e.IsTrace() {
		rec.Trace = e
	} else {
		rec.Spans = append(rec.Spans, e)
	}
}

// Snapshot returns the buffered events oldest-first. See EventRing.Snapshot.
func (s *EventStore) Snapshot() []*ingestion.Event {
	return s.ring.Snapshot()
}

// Trace returns a consistent copy of the indexed record for traceID. The
// spans slice is copied so callers never alias store internals. The second
// return reports whether the trace id has been seen this session.
func (s *EventStore) Trace(traceID string) (TraceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.traces[traceID]
	if !ok {
		return TraceRecord{}, false
	}

	spans := make([]*ingestion.Event, len(rec.Spans))
	copy(spans, rec.Spans)

	return TraceRecord{Trace: rec.Trace, Spans: spans}, true
}

// TraceCount returns the number of indexed trace ids. Because the index is
// never pruned, this can exceed the number of distinct traces still present
// in the ring.
func (s *EventStore) TraceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.traces)
}

// Count returns the number of buffered events.
func (s *EventStore) Count() int {
	return s.ring.Len()
}

// Capacity returns the ring capacity.
func (s *EventStore) Capacity() int {
	return s.ring.Cap()
}

// Clear truncates the ring and the trace index together.
func (s *EventStore) Clear() {
	s.ring.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces = make(map[string]*TraceRecord)
}
