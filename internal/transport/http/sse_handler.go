package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/proto"
)

// SSEHandler bridges hub subscribers to Server-Sent-Events connections.
// Clients are expected to run the backfill query immediately before (or
// upon) connecting; the stream itself carries only live events and
// keep-alive comments.
type SSEHandler struct {
	hub        *core.Hub
	bufferSize int
	log        *zerolog.Logger
}

// NewSSEHandler builds a new SSE handler.
func NewSSEHandler(hub *core.Hub, bufferSize int, logger *zerolog.Logger) *SSEHandler {
	return &SSEHandler{
		hub:        hub,
		bufferSize: bufferSize,
		log:        logger,
	}
}

// Stream subscribes the connection to the hub and relays events until the
// client disconnects, a write fails, or the hub evicts the subscriber.
// GET /api/stream?channel=
func (h *SSEHandler) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported"})
		return
	}

	sub := h.hub.Subscribe(h.bufferSize, c.Query("channel"))
	defer h.hub.Unsubscribe(sub.ID)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	// Open the stream right away so clients see headers before the first event.
	fmt.Fprintf(c.Writer, ": connected %s\n\n", sub.ID)
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case ev, open := <-sub.Events:
			if !open {
				// Evicted by the hub (failed write or reaped).
				return
			}
			if err := writeSSEFrame(c.Writer, ev); err != nil {
				h.log.Debug().Err(err).Str("subscriber_id", sub.ID).Msg("sse write failed")
				return
			}
			flusher.Flush()
			h.hub.Touch(sub.ID)
		case <-ctx.Done():
			// Client disconnected; close notification triggers Unsubscribe via defer.
			return
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, ev core.Event) error {
	if ev.Kind == core.EventKeepAlive {
		_, err := fmt.Fprint(w, ": keep-alive\n\n")
		return err
	}

	frame := proto.FrameFromEvent(ev)
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
