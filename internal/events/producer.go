// Package events publishes briefing lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	TypeReportGenerated = "report.generated"
	TypeRunFailed       = "run.failed"
)

// RunEvent describes the outcome of one briefing run.
type RunEvent struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	ReportID    int64     `json:"report_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	SourceCount int       `json:"source_count"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher publishes RunEvents.
type Publisher interface {
	Publish(ctx context.Context, event RunEvent) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a Kafka writer for publishing run events.
type Producer struct {
	writer MessageWriter
}

// NewProducer creates a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
	}
}

// NewProducerWithWriter builds a producer using a custom writer (tests).
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish writes event keyed by its run ID.
func (p *Producer) Publish(ctx context.Context, event RunEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Discard is a Publisher that drops every event. It is used when no brokers are configured.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, RunEvent) error { return nil }

// Close implements Publisher.
func (Discard) Close() error { return nil }
