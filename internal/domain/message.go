package domain

import "time"

// EventType classifies an inbound chat event.
type EventType string

const (
	EventMention  EventType = "app_mention"
	EventMessage  EventType = "message"
	EventReaction EventType = "reaction_added"
)

// InboundEvent is a normalized chat event received from a channel.
type InboundEvent struct {
	Channel     string // originating channel name ("slack", "cli")
	Type        EventType
	ChatID      string // channel/conversation ID
	SenderID    string
	Content     string
	ThreadID    string // thread timestamp; empty for top-level messages
	Reaction    string // emoji name, reaction events only
	DM          bool
	ThreadReply bool // true when this message is a reply inside a thread
	Timestamp   time.Time
}

// OutboundMessage is a reply routed back to a channel.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	ThreadID string
}
