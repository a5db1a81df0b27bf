package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wildfire-alert-service/internal/config"
	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces alert notifications to the alerts topic. Messages are
// keyed by channel handle so one channel's alerts stay ordered in a partition.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured alert topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish sends one alert to the channel identified by handle.
func (p *Publisher) Publish(ctx context.Context, handle, subject, body string) error {
	msg, err := serializeToMessage(domain.NewNotification(handle, subject, body))
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", handle, err)
	}
	p.logger.Debug("alert published", "channel", handle, "bytes", len(msg.Value))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Notification into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.Channel),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "channel", Value: []byte(n.Channel)},
			{Key: "published_at", Value: []byte(n.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
