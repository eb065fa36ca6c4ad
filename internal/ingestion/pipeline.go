package ingestion

import (
	"sync"

	"github.com/ariadne-io/ariadne/internal/metrics"
)

type (
	// EventStore is what the ingest lane needs from storage. The domain
	// package owns the interface; the concrete store lives in
	// internal/storage.
	EventStore interface {
		Append(e *Event)
		Count() int
	}

	// Broadcaster fans one stored event out to live subscribers. Delivery
	// must never block the caller.
	Broadcaster interface {
		Broadcast(e *Event)
	}

	// Pipeline is the serialized ingest lane: truncate, validate, then
	// append and broadcast each event in request order under one mutex.
	// The lane is what gives subscribers store order across concurrent
	// requests; within a request, events keep their payload order.
	Pipeline struct {
		mu        sync.Mutex
		store     EventStore
		stream    Broadcaster
		truncator *Truncator
		validator *Validator
	}
)

// NewPipeline wires the ingest lane to its store and broadcaster.
func NewPipeline(store EventStore, stream Broadcaster) *Pipeline {
	return &Pipeline{
		store:     store,
		stream:    stream,
		truncator: NewTruncator(),
		validator: NewValidator(),
	}
}

// Ingest runs the lane for one request: every event is truncated first,
// then the whole payload is validated, and only a violation-free request
// reaches the store. All or nothing: one bad event rejects the request and
// nothing is stored or broadcast. batched selects the "batch[i]." error
// path prefix.
//
// Returns the number of events published, or the union of violations.
func (p *Pipeline) Ingest(events []*Event, batched bool) (int, []FieldError) {
	for _, e := range events {
		p.truncator.Truncate(e)
	}

	var violations []FieldError

	if batched {
		violations = p.validator.ValidateBatch(events)
	} else {
		for _, e := range events {
			violations = append(violations, p.validator.ValidateEvent(e)...)
		}
	}

	if len(violations) > 0 {
		metrics.EventsRejected.Add(float64(len(events)))

		return 0, violations
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range events {
		p.store.Append(e)
		p.stream.Broadcast(e)
	}

	metrics.EventsIngested.Add(float64(len(events)))
	metrics.StoreEvents.Set(float64(p.store.Count()))

	return len(events), nil
}
