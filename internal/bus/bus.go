// Package bus provides the async message bus between channels and the agent pipeline.
package bus

import (
	"context"
	"sync"
	"time"
)

// Well-known metadata keys.
const (
	MetaKeyMessageType  = "message_type"
	MetaKeyApprovalHint = "approval_hint"
	MessageTypeInternal = "internal"
	MessageTypeExternal = "external"
)

// InboundMessage is a user message arriving from a channel. UserID keys
// per-user state: pending approvals, cooldowns and session history all
// hang off it.
type InboundMessage struct {
	Channel   string         `json:"channel"`
	UserID    string         `json:"user_id"`
	ChatID    string         `json:"chat_id"`
	TraceID   string         `json:"trace_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// MessageType returns the message type from metadata, defaulting to external.
func (m *InboundMessage) MessageType() string {
	if m.Metadata != nil {
		if v, ok := m.Metadata[MetaKeyMessageType].(string); ok && v != "" {
			return v
		}
	}
	return MessageTypeExternal
}

// OutboundMessage is a reply or proactive notification headed back to a channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	UserID  string `json:"user_id"`
	TraceID string `json:"trace_id"`
	Content string `json:"content"`
}

// MessageBus decouples channels from the agent pipeline.
type MessageBus struct {
	inbound  chan *InboundMessage
	outbound chan *OutboundMessage
	subs     map[string][]func(*OutboundMessage)
	mu       sync.RWMutex
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan *InboundMessage, 100),
		outbound: make(chan *OutboundMessage, 100),
		subs:     make(map[string][]func(*OutboundMessage)),
	}
}

// PublishInbound hands a channel message to the pipeline.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	b.inbound <- msg
}

// ConsumeInbound blocks until a message is available or context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishOutbound queues a message for delivery to its channel.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a callback for outbound messages to a specific channel.
func (b *MessageBus) Subscribe(channel string, callback func(*OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[channel] = append(b.subs[channel], callback)
}

// DispatchOutbound runs the outbound message dispatcher.
// This should be run as a goroutine.
func (b *MessageBus) DispatchOutbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.outbound:
			b.mu.RLock()
			callbacks := b.subs[msg.Channel]
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(msg)
			}
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return len(b.outbound)
}
