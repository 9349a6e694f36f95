package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist or is soft-deleted.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when an insert hits a uniqueness constraint.
var ErrAlreadyExists = errors.New("record already exists")

// User represents a registered account.
type User struct {
	ID           int64
	Identity     string // phone number or email address
	PasswordHash string
	DisplayName  string
	AvatarRef    string
	CreatedAt    time.Time
}

// Message represents a persisted chat message.
//
// A message is active when created, flagged edited after the first text
// update, and flagged deleted by a soft delete. Soft-deleted rows stay in
// the table until the retention sweep physically purges them.
type Message struct {
	ID            string // UUID
	ChannelTag    string // optional channel label, empty means global
	SenderID      int64
	SenderName    string
	Text          string
	AttachmentRef string
	ReplyTo       string // optional parent message UUID
	CreatedAt     time.Time
	Edited        bool
	Deleted       bool
	DeletedAt     *time.Time
}

// MessageQuery bounds a backfill read.
type MessageQuery struct {
	Since          time.Time // zero means unbounded
	Until          time.Time // zero means unbounded
	Limit          int
	ChannelTag     string // empty matches every channel
	IncludeDeleted bool
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed credential.
	CreateUser(ctx context.Context, identity, passwordHash, displayName, avatarRef string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByIdentity retrieves a user by phone or email.
	GetUserByIdentity(ctx context.Context, identity string) (*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// InsertMessage persists a new message.
	InsertMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID regardless of deletion state.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// UpdateMessageText replaces the text of a live message and flags it
	// edited. Returns ErrNotFound for missing or soft-deleted messages.
	UpdateMessageText(ctx context.Context, id, text string) error

	// SoftDeleteMessage flags a live message deleted and stamps the
	// deletion time. Returns ErrNotFound for missing or already deleted
	// messages.
	SoftDeleteMessage(ctx context.Context, id string, at time.Time) error

	// ListMessages performs a bounded backfill read ordered by creation
	// time ascending.
	ListMessages(ctx context.Context, q MessageQuery) ([]*Message, error)

	// PurgeDeletedBefore physically removes soft-deleted messages whose
	// deletion time is before the cutoff. Returns rows removed.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeCreatedBefore physically removes messages created before the
	// cutoff regardless of deletion state. Returns rows removed.
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
