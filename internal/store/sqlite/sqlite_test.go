package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/driftchat/driftchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedMessage(t *testing.T, s *SQLiteStore, text, channel string, createdAt time.Time) *store.Message {
	t.Helper()

	msg := &store.Message{
		ID:         uuid.NewString(),
		ChannelTag: channel,
		SenderID:   1,
		SenderName: "alice",
		Text:       text,
		CreatedAt:  createdAt,
	}
	if err := s.InsertMessage(context.Background(), msg); err != nil {
		t.Fatalf("failed to insert message: %v", err)
	}
	return msg
}

func TestInsertAndGetMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := seedMessage(t, s, "hello", "general", time.Now().UTC().Truncate(time.Second))

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if got.Text != "hello" || got.ChannelTag != "general" || got.SenderName != "alice" {
		t.Fatalf("unexpected message %+v", got)
	}
	if got.Edited || got.Deleted || got.DeletedAt != nil {
		t.Fatalf("new message should be active, got %+v", got)
	}

	if _, err := s.GetMessage(ctx, "no-such-id"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMessageText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := seedMessage(t, s, "helo", "", time.Now().UTC())

	if err := s.UpdateMessageText(ctx, msg.ID, "hello"); err != nil {
		t.Fatalf("UpdateMessageText failed: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if got.Text != "hello" || !got.Edited {
		t.Fatalf("expected edited text, got %+v", got)
	}

	// Editing a missing or soft-deleted message is not-found.
	if err := s.UpdateMessageText(ctx, "no-such-id", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SoftDeleteMessage(ctx, msg.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}
	if err := s.UpdateMessageText(ctx, msg.ID, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted message, got %v", err)
	}
}

func TestSoftDeleteIsIdempotentNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := seedMessage(t, s, "bye", "", time.Now().UTC())

	if err := s.SoftDeleteMessage(ctx, msg.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !got.Deleted || got.DeletedAt == nil {
		t.Fatalf("expected deleted flag and timestamp, got %+v", got)
	}

	// Second delete of the same record is not-found.
	if err := s.SoftDeleteMessage(ctx, msg.ID, time.Now().UTC()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListMessagesBackfill(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m1 := seedMessage(t, s, "first", "general", base)
	m2 := seedMessage(t, s, "second", "general", base.Add(time.Minute))
	m3 := seedMessage(t, s, "third", "random", base.Add(2*time.Minute))
	deleted := seedMessage(t, s, "gone", "general", base.Add(3*time.Minute))
	if err := s.SoftDeleteMessage(ctx, deleted.ID, base.Add(4*time.Minute)); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	t.Run("excludes deleted by default, chronological order", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx, store.MessageQuery{Limit: 10})
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].ID != m1.ID || msgs[2].ID != m3.ID {
			t.Fatalf("expected chronological order, got %v %v %v", msgs[0].Text, msgs[1].Text, msgs[2].Text)
		}
	})

	t.Run("include_deleted returns soft-deleted rows", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx, store.MessageQuery{Limit: 10, IncludeDeleted: true})
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		if len(msgs) != 4 {
			t.Fatalf("expected 4 messages, got %d", len(msgs))
		}
		if !msgs[3].Deleted {
			t.Fatalf("expected last message deleted, got %+v", msgs[3])
		}
	})

	t.Run("limit keeps the newest rows", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx, store.MessageQuery{Limit: 2})
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(msgs))
		}
		if msgs[0].ID != m2.ID || msgs[1].ID != m3.ID {
			t.Fatalf("expected the two newest live messages, got %v %v", msgs[0].Text, msgs[1].Text)
		}
	})

	t.Run("time window bounds", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx, store.MessageQuery{
			Since: base.Add(30 * time.Second),
			Until: base.Add(90 * time.Second),
			Limit: 10,
		})
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		if len(msgs) != 1 || msgs[0].ID != m2.ID {
			t.Fatalf("expected only the second message, got %d rows", len(msgs))
		}
	})

	t.Run("channel filter", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx, store.MessageQuery{ChannelTag: "random", Limit: 10})
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		if len(msgs) != 1 || msgs[0].ID != m3.ID {
			t.Fatalf("expected only the random-channel message, got %d rows", len(msgs))
		}
	})
}

func TestPurgeRespectsThresholds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()

	oldDeleted := seedMessage(t, s, "old deleted", "", now.Add(-30*24*time.Hour))
	if err := s.SoftDeleteMessage(ctx, oldDeleted.ID, now.Add(-20*24*time.Hour)); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}
	freshDeleted := seedMessage(t, s, "fresh deleted", "", now.Add(-2*24*time.Hour))
	if err := s.SoftDeleteMessage(ctx, freshDeleted.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}
	oldLive := seedMessage(t, s, "old live", "", now.Add(-120*24*time.Hour))
	freshLive := seedMessage(t, s, "fresh live", "", now)
	// Old enough for the created_at cutoff but deleted only an hour ago;
	// belongs to the deleted_at purge once its threshold elapses.
	oldFreshDeleted := seedMessage(t, s, "old fresh deleted", "", now.Add(-120*24*time.Hour))
	if err := s.SoftDeleteMessage(ctx, oldFreshDeleted.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	// Purge soft-deleted rows whose deletion is older than 7 days: only
	// the old one goes.
	n, err := s.PurgeDeletedBefore(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeDeletedBefore failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := s.GetMessage(ctx, freshDeleted.ID); err != nil {
		t.Fatalf("fresh deleted message should survive, got %v", err)
	}

	// Purge everything created more than 90 days ago: only the old live
	// row goes.
	n, err = s.PurgeCreatedBefore(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeCreatedBefore failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := s.GetMessage(ctx, oldLive.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected old live message purged, got %v", err)
	}
	if _, err := s.GetMessage(ctx, freshLive.ID); err != nil {
		t.Fatalf("fresh live message should survive, got %v", err)
	}
	if _, err := s.GetMessage(ctx, oldFreshDeleted.ID); err != nil {
		t.Fatalf("recently deleted message should survive the created_at purge, got %v", err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice@example.com", "hash", "Alice", "avatars/a1.png")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 || user.DisplayName != "Alice" {
		t.Fatalf("unexpected user %+v", user)
	}

	got, err := s.GetUserByIdentity(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByIdentity failed: %v", err)
	}
	if got.ID != user.ID || got.AvatarRef != "avatars/a1.png" {
		t.Fatalf("unexpected user %+v", got)
	}

	if _, err := s.GetUserByIdentity(ctx, "bob@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Identity is unique.
	if _, err := s.CreateUser(ctx, "alice@example.com", "hash2", "Alice2", ""); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
