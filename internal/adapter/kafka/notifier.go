package kafka

import (
	"context"
	"fmt"
)

// ChannelRegistry records which contacts belong to which notification channel.
type ChannelRegistry interface {
	EnsureChannel(ctx context.Context, areaCode string) (string, error)
	Subscribe(ctx context.Context, contact, handle string) error
}

// Notifier is the notification service: channels and memberships live in the
// registry, alert delivery goes through Kafka.
type Notifier struct {
	registry  ChannelRegistry
	publisher *Publisher
}

// NewNotifier composes a channel registry with a publisher.
func NewNotifier(registry ChannelRegistry, publisher *Publisher) *Notifier {
	return &Notifier{registry: registry, publisher: publisher}
}

// EnsureChannel returns the channel handle for areaCode, creating it if needed.
func (n *Notifier) EnsureChannel(ctx context.Context, areaCode string) (string, error) {
	handle, err := n.registry.EnsureChannel(ctx, areaCode)
	if err != nil {
		return "", fmt.Errorf("ensure channel: %w", err)
	}
	return handle, nil
}

// Subscribe adds contact to the channel.
func (n *Notifier) Subscribe(ctx context.Context, contact, handle string) error {
	if err := n.registry.Subscribe(ctx, contact, handle); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Publish writes the alert to the alerts topic as one message keyed by the
// channel handle. Fan-out to members is left to consumers.
func (n *Notifier) Publish(ctx context.Context, handle, subject, body string) error {
	return n.publisher.Publish(ctx, handle, subject, body)
}
