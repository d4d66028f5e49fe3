package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersPlaced = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Orders accepted by the order workflow.",
	})

	// OrdersRejected is labelled by the rejection reason the order service
	// reports, e.g. insufficient_stock or customer_not_found.
	OrdersRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "rejected_total",
		Help:      "Order attempts refused by a lookup or business rule.",
	}, []string{"reason"})

	OrderTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "status_transitions_total",
		Help:      "Order status changes by edge.",
	}, []string{"from", "to"})

	OrderValue = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "total_amount",
		Help:      "Distribution of order totals in currency units.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	})

	IdempotentReplays = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "idempotent_replays_total",
		Help:      "Order requests answered from a stored Idempotency-Key response.",
	})

	// EventsPublished counts broker deliveries by event type and result
	// ("ok" or "error").
	EventsPublished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events handed to the message broker.",
	}, []string{"type", "result"})
)

// RecordTransition counts one order status change.
func RecordTransition(from, to string) {
	OrderTransitions.WithLabelValues(from, to).Inc()
}
