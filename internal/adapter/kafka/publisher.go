// Package kafka publishes engine events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/stormview/internal/config"
	"github.com/couchcryptid/stormview/internal/domain"
)

// Publisher produces engine events to the configured events topic.
// It implements domain.Observer; writes are asynchronous so Observe never
// blocks the caller.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates an asynchronous Kafka producer for the events topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Warn("publish events failed", "count", len(messages), "error", err)
			}
		},
	}
	return &Publisher{writer: w, logger: logger}
}

// Observe serializes e and queues it for publishing.
func (p *Publisher) Observe(e domain.Event) {
	msg, err := serializeToMessage(e)
	if err != nil {
		p.logger.Error("serialize event", "type", e.Type, "error", err)
		return
	}
	// With Async set, WriteMessages only enqueues; delivery errors arrive via Completion.
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Warn("queue event", "type", e.Type, "error", err)
	}
}

// Close flushes queued events and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an Event into a Kafka message keyed by subject.
func serializeToMessage(e domain.Event) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event: %w", err)
	}
	key := e.Subject
	if key == "" {
		key = domain.OverviewID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  e.At,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "observed_at", Value: []byte(e.At.Format(time.RFC3339Nano))},
		},
	}, nil
}
