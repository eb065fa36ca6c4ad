package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariadne-io/ariadne/internal/ingestion"
	"github.com/ariadne-io/ariadne/internal/metrics"
)

// Subscription is one live SSE client registration: a bounded queue of
// pending events filled by the ingest lane and drained by the connection's
// writer loop. The broadcast side never blocks on a subscription; when the
// queue is full the oldest pending event is evicted and the writer emits a
// single backpressure comment before its next frame.
type Subscription struct {
	id     int64
	filter *Filter

	queue     chan *ingestion.Event
	heartbeat chan struct{}

	done      chan struct{}
	closeOnce sync.Once

	// dropped counts queue evictions since the writer last emitted a
	// backpressure warning; the writer swaps it back to zero.
	dropped atomic.Int64

	// lastBeat is the unix-nano time the heartbeat scanner last scheduled a
	// comment for this subscription (creation time initially).
	lastBeat atomic.Int64
}

// ID returns the monotonically assigned label used in logs.
func (s *Subscription) ID() int64 {
	return s.id
}

// offer delivers e to the queue without ever blocking: enqueue when there is
// room, otherwise evict the oldest pending event and enqueue. The ingest
// lane is the only producer, so the retry send cannot race another offer;
// the consumer only ever removes.
func (s *Subscription) offer(e *ingestion.Event) {
	select {
	case s.queue <- e:
		return
	default:
	}

	select {
	case <-s.queue:
		s.dropped.Add(1)
		metrics.EventsDropped.Inc()
	default:
		// The writer drained the queue between the two selects.
	}

	select {
	case s.queue <- e:
	default:
		// Still no room; drop e itself rather than block ingest.
		s.dropped.Add(1)
		metrics.EventsDropped.Inc()
	}
}

// scheduleHeartbeat signals the writer loop to emit a heartbeat comment.
// The channel holds one pending signal; further signals coalesce. lastBeat
// advances at schedule time so a writer blocked on a slow client does not
// pile up heartbeats.
func (s *Subscription) scheduleHeartbeat(now time.Time) {
	select {
	case s.heartbeat <- struct{}{}:
		s.lastBeat.Store(now.UnixNano())
	default:
	}
}

// close marks the subscription terminated. Idempotent and safe from any
// goroutine: the writer loop, Unsubscribe, and manager shutdown all race
// here legitimately.
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
