package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/service/messages"
	"github.com/driftchat/driftchat-server/internal/store"
)

// MessageHandlers provides HTTP handlers for message endpoints.
type MessageHandlers struct {
	svc *messages.Service
	log *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		svc: svc,
		log: logger,
	}
}

// PostMessageRequest represents the create message request body. Text or
// an attachment reference is required.
type PostMessageRequest struct {
	Text          string `json:"text" binding:"max=4000"`
	AttachmentRef string `json:"attachment_ref" binding:"max=255"`
	Channel       string `json:"channel" binding:"max=64"`
	ReplyTo       string `json:"reply_to" binding:"max=64"`
}

// EditMessageRequest represents the edit message request body.
type EditMessageRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID            string `json:"id"`
	Channel       string `json:"channel,omitempty"`
	SenderID      int64  `json:"sender_id"`
	SenderName    string `json:"sender_name,omitempty"`
	Text          string `json:"text,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
	ReplyTo       string `json:"reply_to,omitempty"`
	CreatedAt     string `json:"created_at"`
	Edited        bool   `json:"edited,omitempty"`
	Deleted       bool   `json:"deleted,omitempty"`
}

func messageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:            msg.ID,
		Channel:       msg.ChannelTag,
		SenderID:      msg.SenderID,
		SenderName:    msg.SenderName,
		Text:          msg.Text,
		AttachmentRef: msg.AttachmentRef,
		ReplyTo:       msg.ReplyTo,
		CreatedAt:     msg.CreatedAt.Format(time.RFC3339),
		Edited:        msg.Edited,
		Deleted:       msg.Deleted,
	}
}

// PostMessage handles message creation.
// POST /api/messages
func (h *MessageHandlers) PostMessage(c *gin.Context) {
	userID, displayName, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.svc.Post(c.Request.Context(), messages.PostInput{
		SenderID:      userID,
		SenderName:    displayName,
		Text:          req.Text,
		AttachmentRef: req.AttachmentRef,
		ChannelTag:    req.Channel,
		ReplyTo:       req.ReplyTo,
	})
	if err != nil {
		if errors.Is(err, messages.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message needs text or an attachment"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to post message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, messageResponse(msg))
}

// EditMessage handles message edits.
// PATCH /api/messages/:id
func (h *MessageHandlers) EditMessage(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid edit message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.svc.Edit(c.Request.Context(), userID, c.Param("id"), req.Text)
	if err != nil {
		h.writeMutationError(c, err, userID, "edit")
		return
	}

	c.JSON(http.StatusOK, messageResponse(msg))
}

// DeleteMessage handles soft deletes.
// DELETE /api/messages/:id
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeMutationError(c, err, userID, "delete")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandlers) writeMutationError(c *gin.Context, err error, userID int64, op string) {
	switch {
	case errors.Is(err, messages.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
	case errors.Is(err, messages.ErrNotOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "message belongs to another user"})
	case errors.Is(err, messages.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text is required"})
	default:
		h.log.Error().Err(err).Int64("user_id", userID).Str("op", op).Msg("message mutation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// ListMessages handles the backfill query.
// GET /api/messages?since=&until=&limit=&channel=&include_deleted=
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	q := store.MessageQuery{
		ChannelTag: c.Query("channel"),
	}

	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "since must be RFC3339"})
			return
		}
		q.Since = t
	}
	if raw := c.Query("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "until must be RFC3339"})
			return
		}
		q.Until = t
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		q.Limit = n
	}
	q.IncludeDeleted = c.Query("include_deleted") == "true"

	msgs, err := h.svc.Backfill(c.Request.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("backfill query failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		response = append(response, messageResponse(msg))
	}
	c.JSON(http.StatusOK, response)
}
