package domain

import "context"

// Channel is one chat surface (Slack, terminal). Start blocks until the
// context is cancelled or the connection fails.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
}

// MessageBus routes events between channels and the engine.
type MessageBus interface {
	Publish(ev InboundEvent)
	Subscribe() <-chan InboundEvent
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
