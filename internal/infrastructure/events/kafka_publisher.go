// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// HeaderEventType carries the event type on every message.
const HeaderEventType = "event_type"

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON value written for each event.
type Envelope struct {
	ID         string              `json:"id"`
	Type       constants.EventType `json:"type"`
	Source     string              `json:"source"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    interface{}         `json:"payload"`
}

// KafkaPublisher is a Kafka-backed EventPublisher.
type KafkaPublisher struct {
	writer MessageWriter
	logger logger.Logger
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic.
func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchTimeout: cfg.BatchTimeout,
	}
	return NewPublisherWithWriter(writer, log)
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter, log logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &KafkaPublisher{writer: w, logger: log.WithComponent("kafka_publisher")}
}

// NewPublisher returns a Kafka publisher when cfg is enabled and a no-op publisher otherwise.
func NewPublisher(cfg config.KafkaConfig, log logger.Logger) service.EventPublisher {
	if !cfg.Enabled {
		return service.NoopPublisher{}
	}
	return NewKafkaPublisher(cfg, log)
}

// Publish writes the event keyed by event.Key, so events of one aggregate stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event service.Event) error {
	value, err := json.Marshal(Envelope{
		ID:         event.ID,
		Type:       event.Type,
		Source:     constants.ServiceName,
		OccurredAt: event.OccurredAt,
		Payload:    event.Payload,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to marshal event", err, logger.Fields{"event_type": string(event.Type)})
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Time:    event.OccurredAt,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(event.Type)}},
	})
	if err != nil {
		p.logger.Error(ctx, "failed to write event to kafka", err, logger.Fields{
			"event_type": string(event.Type),
			"event_id":   event.ID,
		})
		return err
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
