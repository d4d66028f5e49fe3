// Package listeners reacts to the events fired by the services: it feeds
// the domain metrics, writes the audit log lines and, when Kafka is
// configured, forwards every event to the broker.
package listeners

import (
	"context"
	"time"

	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/config"
	"github.com/shashiranjanraj/orderly/pkg/broker"
	"github.com/shashiranjanraj/orderly/pkg/event"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/metrics"
)

// Boot subscribes every listener and starts the Kafka publisher when
// KAFKA_BROKERS is set. The returned func waits for in-flight publishes and
// then flushes the publisher.
func Boot() func() {
	Register()

	p := broker.NewPublisher(broker.ParseBrokers(config.KafkaBrokers()), config.KafkaTopic())
	if !p.Enabled() {
		return event.Wait
	}
	Forward(p)
	logger.Info("listeners: forwarding events to kafka", "topic", config.KafkaTopic())
	return func() {
		event.Wait()
		if err := p.Close(); err != nil {
			logger.Warn("listeners: kafka close failed", "error", err)
		}
	}
}

// Register subscribes the metric and audit listeners.
func Register() {
	event.Listen(services.EventOrderPlaced, orderPlaced)
	event.Listen(services.EventOrderRejected, orderRejected)
	event.Listen(services.EventOrderStatusChanged, orderStatusChanged)
	event.Listen(services.EventCustomerCreated, customerCreated)
}

// Publisher is satisfied by *broker.Publisher.
type Publisher interface {
	Publish(ctx context.Context, env broker.Envelope) error
}

// outbound names the channel a domain event is relayed on for publishing.
func outbound(name string) string { return "outbound." + name }

// Forward publishes every domain event through p, keyed by the aggregate
// it concerns. Publishing runs off the firing goroutine; event.Wait blocks
// until it is done.
func Forward(p Publisher) {
	forward := func(name string, key func(any) string) {
		event.Listen(name, func(payload any) {
			event.FireAsync(outbound(name), payload)
		})
		event.Listen(outbound(name), func(payload any) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.Publish(ctx, broker.NewEnvelope(name, key(payload), payload)); err != nil {
				logger.Warn("listeners: publish failed", "event", name, "error", err)
			}
		})
	}

	forward(services.EventOrderPlaced, func(v any) string {
		e, _ := v.(services.OrderPlaced)
		return e.OrderID.String()
	})
	forward(services.EventOrderStatusChanged, func(v any) string {
		e, _ := v.(services.OrderStatusChanged)
		return e.OrderID.String()
	})
	forward(services.EventOrderRejected, func(v any) string {
		e, _ := v.(services.OrderRejected)
		return e.CustomerID.String()
	})
	forward(services.EventCustomerCreated, func(v any) string {
		e, _ := v.(services.CustomerCreated)
		return e.CustomerID.String()
	})
}

func orderPlaced(payload any) {
	e, ok := payload.(services.OrderPlaced)
	if !ok {
		return
	}
	metrics.OrdersPlaced.Inc()
	metrics.OrderValue.Observe(e.Total)
	logger.Info("audit: order placed",
		"order_id", e.OrderID, "customer_id", e.CustomerID,
		"total", e.Total, "lines", e.Lines)
}

func orderRejected(payload any) {
	e, ok := payload.(services.OrderRejected)
	if !ok {
		return
	}
	metrics.OrdersRejected.WithLabelValues(e.Reason).Inc()
	logger.Warn("audit: order rejected",
		"customer_id", e.CustomerID, "reason", e.Reason, "message", e.Message)
}

func orderStatusChanged(payload any) {
	e, ok := payload.(services.OrderStatusChanged)
	if !ok {
		return
	}
	metrics.RecordTransition(e.From, e.To)
	logger.Info("audit: order status changed", "order_id", e.OrderID, "from", e.From, "to", e.To)
}

func customerCreated(payload any) {
	if e, ok := payload.(services.CustomerCreated); ok {
		logger.Info("audit: customer created", "customer_id", e.CustomerID, "email", e.Email)
	}
}
