package channels

import (
	"context"

	"github.com/nativeiq/nativeiq/internal/bus"
)

// Channel defines the interface for chat transports (Telegram, Slack).
type Channel interface {
	// Name returns the channel name (e.g. "telegram").
	Name() string
	// Start starts the channel listener.
	Start(ctx context.Context) error
	// Stop stops the channel listener.
	Stop() error
	// Send sends a message to a specific chat.
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// BaseChannel provides common functionality for channels.
type BaseChannel struct {
	Bus *bus.MessageBus
}

// allowed reports whether the sender passes the allow list. An empty
// list admits everyone.
func allowed(allowFrom []string, senderID string) bool {
	if len(allowFrom) == 0 {
		return true
	}
	for _, id := range allowFrom {
		if id == senderID {
			return true
		}
	}
	return false
}
