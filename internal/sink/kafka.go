package sink

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// Sink delivers submitted tickets to the external ticketing backend.
// Delivery is at-least-once; the SUBMITTED record stays durable locally
// regardless of the outcome here.
type Sink interface {
	Submit(ctx context.Context, ticket domain.Ticket) error
}

// KafkaSink publishes submissions to a Kafka topic consumed by the backend.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaSink creates a sink writing to the given brokers and topic.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Submit implements Sink. The ticket ID is the message key so redeliveries
// of the same ticket land in one partition and dedupe downstream.
func (s *KafkaSink) Submit(ctx context.Context, ticket domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ticket.ID),
		Value: data,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return apperrors.NewTicketSinkUnavailable(err)
	}
	s.logger.Info("ticket published to sink", zap.String("ticket_id", ticket.ID))
	return nil
}

// Close closes the Kafka writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
