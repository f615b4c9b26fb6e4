// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Saga-level counters. Labels stay low-cardinality: topic names and a
// small fixed set of outcomes.
var (
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "saga",
		Name:      "events_consumed_total",
		Help:      "Messages fetched from the bus, by topic.",
	}, []string{"topic"})

	DuplicatesSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "saga",
		Name:      "duplicates_suppressed_total",
		Help:      "Events dropped by the idempotency marker, by topic.",
	}, []string{"topic"})

	HandlerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "saga",
		Name:      "handler_retries_total",
		Help:      "Retry attempts performed inside handlers, by topic.",
	}, []string{"topic"})

	DeadLetters = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "saga",
		Name:      "dead_letters_total",
		Help:      "Messages routed to a dead-letter topic, by origin topic.",
	}, []string{"topic"})

	ReservationOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "inventory",
		Name:      "reservation_ops_total",
		Help:      "Ledger operations by kind (reserve/commit/release) and outcome.",
	}, []string{"op", "outcome"})

	LockContention = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "inventory",
		Name:      "lock_contention_total",
		Help:      "Reservation attempts rejected because the item lock was held.",
	})
)
