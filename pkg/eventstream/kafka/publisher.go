// Package kafka publishes entry events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/designlog/pkg/eventstream"
)

// DefaultWriteTimeout bounds a single publish.
const DefaultWriteTimeout = 10 * time.Second

// ErrNoBrokers is returned when no broker address is configured.
var ErrNoBrokers = errors.New("kafka publisher needs at least one broker")

// MessageWriter is the subset of *kafkago.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by week id, so a
// week's entries land on one partition in order.
type Publisher struct {
	writer MessageWriter
	topic  string
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithWriter replaces the kafka-go writer, for tests.
func WithWriter(w MessageWriter) Option {
	return func(p *Publisher) {
		p.writer = w
	}
}

// NewPublisher creates a publisher for topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if topic == "" {
		return nil, errors.New("kafka publisher needs a topic")
	}

	p := &Publisher{topic: topic}
	for _, opt := range opts {
		opt(p)
	}

	if p.writer == nil {
		if len(brokers) == 0 {
			return nil, ErrNoBrokers
		}
		p.writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           DefaultWriteTimeout,
		}
	}

	return p, nil
}

// PublishEntry encodes event and writes it synchronously.
func (p *Publisher) PublishEntry(ctx context.Context, event *eventstream.EntryRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEntryEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Entry.WeekID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
