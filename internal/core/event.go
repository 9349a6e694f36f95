package core

import "time"

// EventKind classifies a broadcast event.
type EventKind string

const (
	// EventCreate announces a newly posted message with its full payload.
	EventCreate EventKind = "create"
	// EventEdit announces a text change to an existing message.
	EventEdit EventKind = "edit"
	// EventDelete announces a soft delete. It carries the message ID only.
	EventDelete EventKind = "delete"
	// EventKeepAlive is a no-op frame that defeats idle-timeout
	// disconnection by intermediary proxies.
	EventKeepAlive EventKind = "keepalive"
)

// Event is one unit of broadcastable content. Events are produced by the
// publish path after successful durable persistence and are immutable once
// produced.
type Event struct {
	Kind          EventKind `json:"kind"`
	MessageID     string    `json:"message_id"`
	ChannelTag    string    `json:"channel_tag,omitempty"`
	SenderID      int64     `json:"sender_id,omitempty"`
	SenderName    string    `json:"sender_name,omitempty"`
	Text          string    `json:"text,omitempty"`
	AttachmentRef string    `json:"attachment_ref,omitempty"`
	ReplyTo       string    `json:"reply_to,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	Edited        bool      `json:"edited,omitempty"`
}

// Delivery is the tagged outcome of one Publish or Heartbeat call:
// how many subscribers received the frame and how many were evicted
// because their write failed. There is no acknowledgment beyond this.
type Delivery struct {
	Delivered int
	Evicted   int
}
