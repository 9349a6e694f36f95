package http

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/proto"
)

// WSHandler is the alternate live-stream transport: a read-only WebSocket
// carrying the same event frames as the SSE stream. Publishing still goes
// through the REST endpoints so the persist-then-broadcast ordering holds
// for every transport.
type WSHandler struct {
	hub        *core.Hub
	bufferSize int
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, bufferSize int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		bufferSize: bufferSize,
		log:        logger,
	}
}

// Stream upgrades the connection and relays hub events until disconnect.
// GET /api/ws?channel=
func (h *WSHandler) Stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sub := h.hub.Subscribe(h.bufferSize, c.Query("channel"))
	defer h.hub.Unsubscribe(sub.ID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends application data; the read loop exists to
	// notice the close frame promptly.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	err = h.writeLoop(ctx, conn, sub)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		} else {
			status = websocket.StatusInternalError
			reason = err.Error()
			h.log.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("ws connection closed with error")
		}
	}
	conn.Close(status, reason)
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscriber) error {
	for {
		select {
		case ev, open := <-sub.Events:
			if !open {
				return nil
			}
			if err := wsjson.Write(ctx, conn, proto.FrameFromEvent(ev)); err != nil {
				return err
			}
			h.hub.Touch(sub.ID)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
