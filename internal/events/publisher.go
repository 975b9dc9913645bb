package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Event types published after commit.
const (
	CommissionCreated = "commission.created"
	CommissionMatured = "commission.matured"
	CommissionPaid    = "commission.paid"
	LedgerEntry       = "ledger.entry"
)

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// KafkaPublisher writes every event type to a single topic; the type goes
// into a header so consumers can filter.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// DefaultPublishTimeout bounds a single publish so a slow broker cannot hold
// up the webhook or sweep that emitted the event.
const DefaultPublishTimeout = 2 * time.Second

func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: timeout,
		},
		timeout: timeout,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(partitionKey),
		Value:   payload,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
		Time:    time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LoggingPublisher is used when no brokers are configured.
type LoggingPublisher struct {
	entry *log.Entry
}

func NewLoggingPublisher() *LoggingPublisher {
	return &LoggingPublisher{entry: log.WithField("component", "events")}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.entry.WithFields(log.Fields{
		"event_type":    eventType,
		"partition_key": partitionKey,
		"payload_bytes": len(payload),
	}).Debug("Event published")
	return nil
}
