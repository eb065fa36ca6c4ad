package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariadne-io/ariadne/internal/ingestion"
	"github.com/ariadne-io/ariadne/internal/metrics"
)

// Manager defaults. Queue size is the per-subscriber bound Q; the heartbeat
// interval paces idle-connection comment frames.
const (
	DefaultQueueSize         = 5000
	DefaultHeartbeatInterval = 15 * time.Second
)

// ErrManagerClosed is returned by Subscribe once the manager has shut down.
var ErrManagerClosed = errors.New("stream manager closed")

type (
	// Config carries the manager knobs. Zero values select the defaults;
	// tests shrink QueueSize and HeartbeatInterval to force backpressure and
	// heartbeat behavior quickly.
	Config struct {
		// QueueSize bounds each subscription's pending-event queue.
		QueueSize int

		// HeartbeatInterval paces the comment frames keeping idle
		// connections alive.
		HeartbeatInterval time.Duration

		// Canonicalizer optionally maps span kinds for filter matching.
		Canonicalizer Canonicalizer

		// Logger receives subscription lifecycle and drop events.
		Logger *slog.Logger
	}

	// Manager owns the set of active subscriptions and fans ingested events
	// out to them. Broadcast holds the registry lock only long enough to
	// snapshot the iteration target; per-subscription delivery is
	// non-blocking (enqueue or drop-oldest), so a slow subscriber never
	// slows ingest or its peers. A dedicated goroutine drives heartbeats.
	Manager struct {
		queueSize int
		interval  time.Duration
		canon     Canonicalizer
		logger    *slog.Logger

		nextID atomic.Int64

		mu     sync.Mutex
		subs   map[int64]*Subscription
		closed bool

		done chan struct{}
	}
)

// NewManager creates the manager and starts its heartbeat goroutine. Close
// releases both.
func NewManager(cfg Config) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		queueSize: cfg.QueueSize,
		interval:  cfg.HeartbeatInterval,
		canon:     cfg.Canonicalizer,
		logger:    cfg.Logger,
		subs:      make(map[int64]*Subscription),
		done:      make(chan struct{}),
	}

	go m.heartbeatLoop()

	return m
}

// Subscribe registers a new subscription with the given filter (nil accepts
// everything). The filter's kind set is canonicalized here so membership
// tests meet event kinds in canonical space.
func (m *Manager) Subscribe(filter *Filter) (*Subscription, error) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return nil, ErrManagerClosed
	}

	sub := &Subscription{
		id:        m.nextID.Add(1),
		filter:    filter.canonicalize(m.canon),
		queue:     make(chan *ingestion.Event, m.queueSize),
		heartbeat: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	sub.lastBeat.Store(time.Now().UnixNano())

	m.subs[sub.id] = sub
	m.mu.Unlock()

	metrics.Subscribers.Inc()
	m.logger.Debug("subscription registered",
		slog.Int64("subscription_id", sub.id),
		slog.Bool("filtered", !filter.Empty()))

	return sub, nil
}

// Unsubscribe removes the subscription from the registry and releases its
// writer loop. Idempotent: the writer's deferred cleanup and manager
// shutdown may both arrive here.
func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	m.mu.Lock()
	_, registered := m.subs[sub.id]
	delete(m.subs, sub.id)
	m.mu.Unlock()

	sub.close()

	if registered {
		metrics.Subscribers.Dec()
		m.logger.Debug("subscription removed", slog.Int64("subscription_id", sub.id))
	}
}

// Broadcast fans one ingested event out to every matching subscription.
// Called only from the ingest lane, which serializes event order across
// requests; delivery per subscription is enqueue-or-drop-oldest and never
// blocks.
func (m *Manager) Broadcast(e *ingestion.Event) {
	for _, sub := range m.snapshot() {
		if !sub.filter.Match(e, m.canon) {
			continue
		}

		sub.offer(e)
	}
}

// Stream writes sub's frames to w until the context ends, the manager shuts
// down, or a write fails. It emits the connected greeting first, then
// pending events interleaved with scheduled heartbeats, flushing after every
// frame. The subscription is always deregistered before returning, so the
// calling handler can simply return with it.
func (m *Manager) Stream(ctx context.Context, sub *Subscription, w FrameWriter) error {
	defer m.Unsubscribe(sub)

	if err := writeConnected(w, time.Now().UTC()); err != nil {
		m.logWriteError(sub, err)

		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-sub.done:
			return nil

		case <-sub.heartbeat:
			if err := writeComment(w, heartbeatComment); err != nil {
				m.logWriteError(sub, err)

				return err
			}

		case e := <-sub.queue:
			if n := sub.dropped.Swap(0); n > 0 {
				m.logger.Warn("subscriber backpressure",
					slog.Int64("subscription_id", sub.id),
					slog.Int64("dropped", n))

				if err := writeComment(w, backpressureComment); err != nil {
					m.logWriteError(sub, err)

					return err
				}
			}

			if err := writeEvent(w, e); err != nil {
				m.logWriteError(sub, err)

				return err
			}

			metrics.EventsDelivered.Inc()
		}
	}
}

// ActiveSubscriptions returns the current registry size.
func (m *Manager) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs)
}

// Close shuts the manager down: Subscribe starts failing, the heartbeat
// goroutine stops, and every writer loop is released so in-flight GET
// /events handlers return promptly. Implements io.Closer for the server's
// shutdown sweep. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return nil
	}

	m.closed = true
	subs := make([]*Subscription, 0, len(m.subs))

	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	close(m.done)

	for _, sub := range subs {
		m.Unsubscribe(sub)
	}

	m.logger.Info("stream manager closed", slog.Int("subscriptions", len(subs)))

	return nil
}

// snapshot copies the registry so broadcast and heartbeat iteration run
// without holding the lock.
func (m *Manager) snapshot() []*Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}

	return subs
}

// heartbeatLoop ticks at the heartbeat interval and schedules a comment for
// every subscription whose last heartbeat is at least one interval old.
// Tick timestamps come from the ticker channel, so consecutive scans are
// spaced by full intervals and the steady-state cadence is exact; a fresh
// subscription gets its first heartbeat within two intervals.
func (m *Manager) heartbeatLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return

		case now := <-ticker.C:
			for _, sub := range m.snapshot() {
				if now.UnixNano()-sub.lastBeat.Load() >= m.interval.Nanoseconds() {
					sub.scheduleHeartbeat(now)
				}
			}
		}
	}
}

func (m *Manager) logWriteError(sub *Subscription, err error) {
	m.logger.Debug("subscriber write failed, terminating subscription",
		slog.Int64("subscription_id", sub.id),
		slog.String("error", err.Error()))
}
