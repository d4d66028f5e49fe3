// Package broker publishes domain events to Kafka. A Publisher built with
// no brokers is disabled and drops every message.
package broker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/metrics"
)

// Envelope is the message body written to the topic.
type Envelope struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	Payload   any       `json:"payload"`
}

// NewEnvelope stamps payload with a fresh id and the current UTC time.
func NewEnvelope(eventType, key string, payload any) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

// Publisher writes envelopes to one topic, keyed so every event for the
// same aggregate lands on the same partition.
type Publisher struct {
	w *kafka.Writer
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(csv string) []string {
	var out []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewPublisher returns a Publisher for topic. Writes are asynchronous;
// delivery failures are logged, never returned to the caller.
func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return &Publisher{}
	}
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion:             completion(topic),
	}}
}

const typeHeader = "event-type"

// completion reports async delivery results per event type.
func completion(topic string) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		result := "ok"
		if err != nil {
			result = "error"
			logger.Error("broker: delivery failed", "topic", topic, "messages", len(msgs), "error", err)
		}
		for _, m := range msgs {
			metrics.EventsPublished.WithLabelValues(eventType(m), result).Inc()
		}
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == typeHeader {
			return string(h.Value)
		}
	}
	return "unknown"
}

func (p *Publisher) Enabled() bool { return p != nil && p.w != nil }

// Publish encodes env and hands it to the writer.
func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	if !p.Enabled() {
		return nil
	}
	msg, err := Message(env)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

// Message is the kafka record for env.
func Message(env Envelope) (kafka.Message, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(env.Key),
		Value: data,
		Time:  env.CreatedAt,
		Headers: []kafka.Header{
			{Key: typeHeader, Value: []byte(env.Type)},
		},
	}, nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.w.Close()
}
