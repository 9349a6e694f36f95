package proto

import (
	"time"

	"github.com/driftchat/driftchat-server/internal/core"
)

// Frame types carried on the live stream.
const (
	FrameTypeEvent     = "event"
	FrameTypeKeepAlive = "keepalive"
)

// Frame is the envelope for one serialized unit on the live stream. Both
// the SSE and the WebSocket transport emit the same shape.
type Frame struct {
	Type  string        `json:"type"`
	Event string        `json:"event,omitempty"` // create | edit | delete
	Data  *EventMessage `json:"data,omitempty"`
}

// EventMessage is the payload of a create or edit frame. Delete frames
// carry the ID only.
type EventMessage struct {
	ID            string `json:"id"`
	Channel       string `json:"channel,omitempty"`
	SenderID      int64  `json:"sender_id,omitempty"`
	SenderName    string `json:"sender_name,omitempty"`
	Text          string `json:"text,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
	ReplyTo       string `json:"reply_to,omitempty"`
	TS            int64  `json:"ts,omitempty"`
	Edited        bool   `json:"edited,omitempty"`
}

// FrameFromEvent maps a hub event to its wire frame.
func FrameFromEvent(ev core.Event) Frame {
	if ev.Kind == core.EventKeepAlive {
		return Frame{Type: FrameTypeKeepAlive}
	}

	data := &EventMessage{ID: ev.MessageID, Channel: ev.ChannelTag}
	if ev.Kind != core.EventDelete {
		data.SenderID = ev.SenderID
		data.SenderName = ev.SenderName
		data.Text = ev.Text
		data.AttachmentRef = ev.AttachmentRef
		data.ReplyTo = ev.ReplyTo
		data.Edited = ev.Edited
		if !ev.CreatedAt.IsZero() {
			data.TS = ev.CreatedAt.Unix()
		} else {
			data.TS = time.Now().Unix()
		}
	}

	return Frame{
		Type:  FrameTypeEvent,
		Event: string(ev.Kind),
		Data:  data,
	}
}
