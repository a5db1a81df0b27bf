package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
)

// ChannelService creates per-area channels and manages their members.
type ChannelService interface {
	EnsureChannel(ctx context.Context, areaCode string) (string, error)
	Subscribe(ctx context.Context, contact, handle string) error
}

// SubscriberSaver persists subscriber records.
type SubscriberSaver interface {
	SaveSubscriber(ctx context.Context, sub domain.Subscriber) error
}

// Onboarder registers new subscribers.
type Onboarder struct {
	channels ChannelService
	store    SubscriberSaver
	logger   *slog.Logger
}

// NewOnboarder creates an Onboarder.
func NewOnboarder(channels ChannelService, store SubscriberSaver, logger *slog.Logger) *Onboarder {
	return &Onboarder{channels: channels, store: store, logger: logger}
}

// Subscribe registers contact for alerts about areaCode: it finds or creates
// the area's channel, stores the subscriber and subscribes the contact to the
// channel. Validation errors are returned unwrapped so callers can report them.
func (o *Onboarder) Subscribe(ctx context.Context, contact, areaCode string) (domain.Subscriber, error) {
	contact = strings.TrimSpace(contact)
	areaCode = strings.TrimSpace(areaCode)
	if err := domain.ValidateContact(contact); err != nil {
		return domain.Subscriber{}, err
	}
	if err := domain.ValidateAreaCode(areaCode); err != nil {
		return domain.Subscriber{}, err
	}

	handle, err := o.channels.EnsureChannel(ctx, areaCode)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("channel for %s: %w", areaCode, err)
	}

	sub := domain.NewSubscriber(contact, areaCode, handle)
	if err := sub.Validate(); err != nil {
		return domain.Subscriber{}, err
	}
	if err := o.store.SaveSubscriber(ctx, sub); err != nil {
		return domain.Subscriber{}, fmt.Errorf("save subscriber: %w", err)
	}
	if err := o.channels.Subscribe(ctx, contact, handle); err != nil {
		return domain.Subscriber{}, fmt.Errorf("subscribe %s: %w", contact, err)
	}

	o.logger.Info("subscriber registered", "contact", contact, "area_code", areaCode, "channel", handle)
	return sub, nil
}
