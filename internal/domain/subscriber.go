package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// ChannelHandlePrefix is the provider prefix every notification channel
// handle carries.
const ChannelHandlePrefix = "arn:wildfire:alerts"

// channelNamePrefix names the per-area channel, e.g. "wildfire-alerts-94103".
const channelNamePrefix = "wildfire-alerts-"

// Subscriber is a registered alert recipient.
type Subscriber struct {
	Contact       string `json:"email"`
	AreaCode      string `json:"zip_code"`
	ChannelHandle string `json:"channel_handle,omitempty"`
	RegisteredOn  string `json:"registered_on"` // YYYY-MM-DD
}

// NewSubscriber builds a subscriber registered today.
func NewSubscriber(contact, areaCode, channelHandle string) Subscriber {
	return Subscriber{
		Contact:       strings.TrimSpace(contact),
		AreaCode:      strings.TrimSpace(areaCode),
		ChannelHandle: channelHandle,
		RegisteredOn:  Today(),
	}
}

// HasChannel reports whether a notification channel has been assigned.
// A subscriber without one is not yet configured and is skipped by runs.
func (s Subscriber) HasChannel() bool {
	return strings.TrimSpace(s.ChannelHandle) != ""
}

// Validate checks contact, area code and, when present, the channel handle.
func (s Subscriber) Validate() error {
	if err := ValidateContact(s.Contact); err != nil {
		return err
	}
	if err := ValidateAreaCode(s.AreaCode); err != nil {
		return err
	}
	if s.HasChannel() {
		return ValidateChannelHandle(s.ChannelHandle)
	}
	return nil
}

// ValidateContact requires an email-like address containing "@".
func ValidateContact(contact string) error {
	if !strings.Contains(contact, "@") {
		return fmt.Errorf("%w: %q", ErrInvalidContact, contact)
	}
	return nil
}

// ValidateAreaCode requires a non-empty, all-digit postal code once
// surrounding whitespace is removed.
func ValidateAreaCode(areaCode string) error {
	trimmed := strings.TrimSpace(areaCode)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAreaCode)
	}
	for _, r := range trimmed {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("%w: %q", ErrInvalidAreaCode, areaCode)
		}
	}
	return nil
}

// ValidateChannelHandle requires the provider prefix.
func ValidateChannelHandle(handle string) error {
	if !strings.HasPrefix(handle, ChannelHandlePrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, handle)
	}
	return nil
}

// ChannelHandleFor returns the handle denoting the channel for areaCode.
func ChannelHandleFor(areaCode string) string {
	return ChannelHandlePrefix + ":" + channelNamePrefix + strings.TrimSpace(areaCode)
}
