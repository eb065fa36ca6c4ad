// Package metrics defines the service's Prometheus collectors. These are
// health metrics for the service itself, not aggregation over the telemetry
// it carries.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ariadne"

var (
	// EventsIngested counts events that passed validation and were stored.
	EventsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "events_total",
		Help:      "Events accepted, stored and broadcast.",
	})

	// EventsRejected counts events that failed schema validation.
	EventsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "rejected_events_total",
		Help:      "Events rejected by schema validation.",
	})

	// EventsDelivered counts event frames written to subscriber streams.
	EventsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "delivered_events_total",
		Help:      "Event frames written to subscriber streams.",
	})

	// EventsDropped counts events evicted from subscriber queues under
	// backpressure.
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "dropped_events_total",
		Help:      "Events dropped from subscriber queues under backpressure.",
	})

	// Subscribers tracks active SSE subscriptions.
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "subscribers",
		Help:      "Active SSE subscriptions.",
	})

	// StoreEvents tracks the number of events currently buffered.
	StoreEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "events",
		Help:      "Events currently held in the ring buffer.",
	})
)

// Register installs every collector on the default registry. Call once at
// startup; tests exercising the instrumented paths work without it.
func Register() {
	prometheus.MustRegister(
		EventsIngested,
		EventsRejected,
		EventsDelivered,
		EventsDropped,
		Subscribers,
		StoreEvents,
	)
}
