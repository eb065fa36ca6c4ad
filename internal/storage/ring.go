// Package storage provides the bounded in-memory event store: a fixed
// capacity ring over arrival order composed with an advisory per-trace
// index. Nothing here persists; the service is intentionally transient.
package storage

import (
	"sync"

	"github.com/ariadne-io/ariadne/internal/ingestion"
)

// DefaultCapacity is the ring size used when a non-positive capacity is
// requested. Matches the MAX_EVENTS default.
const DefaultCapacity = 10000

// EventRing is a fixed-capacity circular buffer holding the most recent
// events in arrival order. Append is O(1) and silently overwrites the oldest
// slot once the ring is full. A single writer (the ingest lane) and any
// number of concurrent snapshot readers are safe; readers get copies.
//
// The ring is not on the hot broadcast path. Subscribers receive events
// directly from ingest; the ring exists so health probes and late tooling
// can inspect recent history.
type EventRing struct {
	mu    sync.RWMutex
	slots []*ingestion.Event
	next  int // next write position
	count int // occupied slots, never exceeds len(slots)
}

// NewEventRing creates a ring holding at most capacity events. Non-positive
// capacities fall back to DefaultCapacity.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &EventRing{
		slots: make([]*ingestion.Event, capacity),
	}
}

// Append stores e at the next write position. Once the ring has wrapped, the
// oldest event is overwritten without notification.
func (r *EventRing) Append(e *ingestion.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[r.next] = e
	r.next = (r.next + 1) % len(r.slots)

	if r.count < len(r.slots) {
		r.count++
	}
}

// Snapshot returns the buffered events oldest-first. The returned slice is a
// copy; callers may keep it without holding up the writer.
func (r *EventRing) Snapshot() []*ingestion.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ingestion.Event, r.count)
	start := (r.next - r.count + len(r.slots)) % len(r.slots)

	for i := range out {
		out[i] = r.slots[(start+i)%len(r.slots)]
	}

	return out
}

// Len returns the number of buffered events.
func (r *EventRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.count
}

// Cap returns the fixed capacity. The slot slice never changes size after
// construction, so no lock is needed.
func (r *EventRing) Cap() int {
	return len(r.slots)
}

// Clear drops every buffered event and resets the write position.
func (r *EventRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.slots)
	r.next = 0
	r.count = 0
}
