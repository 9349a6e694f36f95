package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/store"
)

// Common errors for message operations.
var (
	ErrEmptyMessage = errors.New("message needs text or an attachment")
	ErrNotFound     = errors.New("message not found")
	ErrNotOwner     = errors.New("message belongs to another user")
)

// Publisher is the hub surface the service needs.
type Publisher interface {
	Publish(ev core.Event) core.Delivery
}

// Service coordinates durable persistence with live broadcast. The
// contract: the durable write completes before the hub sees the event,
// and a failed write means the hub never sees it. The two steps are not
// atomic as a pair; a crash in between loses only the live event, which
// subscribers recover via backfill.
type Service struct {
	store store.MessageStore
	hub   Publisher

	maxBackfill int
}

// New creates a message service. maxBackfill caps the row count of any
// single backfill read.
func New(st store.MessageStore, hub Publisher, maxBackfill int) *Service {
	if maxBackfill <= 0 {
		maxBackfill = 100
	}
	return &Service{
		store:       st,
		hub:         hub,
		maxBackfill: maxBackfill,
	}
}

// PostInput carries the fields of a create request.
type PostInput struct {
	SenderID      int64
	SenderName    string
	Text          string
	AttachmentRef string
	ChannelTag    string
	ReplyTo       string
}

// Post validates, durably persists, and then broadcasts a new message.
func (s *Service) Post(ctx context.Context, in PostInput) (*store.Message, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" && in.AttachmentRef == "" {
		return nil, ErrEmptyMessage
	}

	msg := &store.Message{
		ID:            uuid.NewString(),
		ChannelTag:    in.ChannelTag,
		SenderID:      in.SenderID,
		SenderName:    in.SenderName,
		Text:          in.Text,
		AttachmentRef: in.AttachmentRef,
		ReplyTo:       in.ReplyTo,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.hub.Publish(eventFromMessage(core.EventCreate, msg))
	return msg, nil
}

// Edit replaces the text of a live message owned by actor and broadcasts
// the change. Editing a missing or soft-deleted message is not-found.
func (s *Service) Edit(ctx context.Context, actorID int64, id, text string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	msg, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, ErrNotOwner
	}

	if err := s.store.UpdateMessageText(ctx, id, text); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update message: %w", err)
	}

	msg.Text = text
	msg.Edited = true
	s.hub.Publish(eventFromMessage(core.EventEdit, msg))
	return msg, nil
}

// Delete soft-deletes a live message owned by actor and broadcasts a
// delete event carrying the ID only. Deleting an already deleted message
// is not-found and produces no second event.
func (s *Service) Delete(ctx context.Context, actorID int64, id string) error {
	msg, err := s.getLive(ctx, id)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return ErrNotOwner
	}

	if err := s.store.SoftDeleteMessage(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("soft delete message: %w", err)
	}

	s.hub.Publish(core.Event{Kind: core.EventDelete, MessageID: id, ChannelTag: msg.ChannelTag})
	return nil
}

// Backfill performs the bounded historical read a subscriber uses to seed
// its view before attaching to the live stream. There is no cursor
// handoff between this read and Subscribe; a small duplicate/gap window
// around the subscribe instant is an accepted property of the design.
func (s *Service) Backfill(ctx context.Context, q store.MessageQuery) ([]*store.Message, error) {
	if q.Limit <= 0 || q.Limit > s.maxBackfill {
		q.Limit = s.maxBackfill
	}
	msgs, err := s.store.ListMessages(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (s *Service) getLive(ctx context.Context, id string) (*store.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.Deleted {
		return nil, ErrNotFound
	}
	return msg, nil
}

func eventFromMessage(kind core.EventKind, msg *store.Message) core.Event {
	return core.Event{
		Kind:          kind,
		MessageID:     msg.ID,
		ChannelTag:    msg.ChannelTag,
		SenderID:      msg.SenderID,
		SenderName:    msg.SenderName,
		Text:          msg.Text,
		AttachmentRef: msg.AttachmentRef,
		ReplyTo:       msg.ReplyTo,
		CreatedAt:     msg.CreatedAt,
		Edited:        msg.Edited,
	}
}
