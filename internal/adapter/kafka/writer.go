package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/been-map-service/internal/config"
	"github.com/couchcryptid/been-map-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes rendered cards to a Kafka topic.
// It implements card.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured render topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRenderTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one rendered card, keyed by the card's sensor entity so
// successive renders of the same card land on one partition in order.
func (w *Writer) Publish(ctx context.Context, card domain.RenderedCard) error {
	msg, err := serializeToMessage(card)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish rendered card: %w", err)
	}
	w.logger.Debug("rendered card published", "entity", card.Entity, "fingerprint", card.Fingerprint)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RenderedCard into a Kafka message.
func serializeToMessage(card domain.RenderedCard) (kafkago.Message, error) {
	data, err := json.Marshal(card)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize rendered card: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(card.Entity),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "fingerprint", Value: []byte(card.Fingerprint)},
			{Key: "rendered_at", Value: []byte(card.RenderedAt.Format(time.RFC3339))},
		},
	}, nil
}
