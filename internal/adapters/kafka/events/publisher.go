package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mergington/activities-api/internal/ports/out/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes enrollment events to a single Kafka topic.
// Messages are keyed by activity name so one activity's events land on one partition in order.
type Publisher struct {
	w messageWriter
}

// NewPublisher returns a Publisher with a synchronous writer that waits for all replicas.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic required")
	}
	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		Async:        false,
	}}, nil
}

func newPublisherWithWriter(w messageWriter) *Publisher {
	return &Publisher{w: w}
}

type payload struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Activity    string    `json:"activity"`
	Participant string    `json:"participant"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (p *Publisher) Publish(ctx context.Context, e events.EnrollmentEvent) error {
	value, err := json.Marshal(payload{
		ID:          e.ID,
		Type:        string(e.Type),
		Activity:    string(e.Activity),
		Participant: string(e.Participant),
		OccurredAt:  e.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode enrollment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.Activity),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write enrollment event: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
