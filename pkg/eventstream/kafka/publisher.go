// Package kafka publishes index events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/strata/pkg/eventstream"
)

// DefaultTopic is the topic index events are published to.
const DefaultTopic = "strata.index.events"

// Publisher writes index events to Kafka, keyed by document id so all
// events for one document land on the same partition in order.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses. Required.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic if
	// empty.
	Topic string
}

// NewPublisher creates a Kafka-backed event publisher.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// Publish marshals the event and writes it to the topic.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.IndexEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing event %s to kafka: %w", event.EventID, err)
	}

	p.logger.Debug("published index event",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"doc", event.DocumentID,
		"version", event.Version,
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
