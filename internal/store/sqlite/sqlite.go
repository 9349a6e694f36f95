package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/driftchat/driftchat-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	identity      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	avatar_ref    TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id             TEXT PRIMARY KEY,
	channel_tag    TEXT NOT NULL DEFAULT '',
	sender_id      INTEGER NOT NULL,
	sender_name    TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL,
	attachment_ref TEXT NOT NULL DEFAULT '',
	reply_to       TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	edited         BOOLEAN NOT NULL DEFAULT 0,
	deleted        BOOLEAN NOT NULL DEFAULT 0,
	deleted_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_tag, created_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed credential.
func (s *SQLiteStore) CreateUser(ctx context.Context, identity, passwordHash, displayName, avatarRef string) (*store.User, error) {
	query := `
		INSERT INTO users (identity, password_hash, display_name, avatar_ref)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, identity, passwordHash, displayName, avatarRef)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, identity, password_hash, display_name, avatar_ref, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByIdentity retrieves a user by phone or email.
func (s *SQLiteStore) GetUserByIdentity(ctx context.Context, identity string) (*store.User, error) {
	query := `
		SELECT id, identity, password_hash, display_name, avatar_ref, created_at
		FROM users
		WHERE identity = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, identity))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Identity,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AvatarRef,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== MessageStore implementation ====

// InsertMessage persists a new message.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, channel_tag, sender_id, sender_name, body, attachment_ref, reply_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ChannelTag,
		msg.SenderID,
		msg.SenderName,
		msg.Text,
		msg.AttachmentRef,
		msg.ReplyTo,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessage retrieves a message by ID regardless of deletion state.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	query := `
		SELECT id, channel_tag, sender_id, sender_name, body, attachment_ref, reply_to, created_at, edited, deleted, deleted_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	var deletedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.ChannelTag,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Text,
		&msg.AttachmentRef,
		&msg.ReplyTo,
		&msg.CreatedAt,
		&msg.Edited,
		&msg.Deleted,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	if deletedAt.Valid {
		msg.DeletedAt = &deletedAt.Time
	}
	return &msg, nil
}

// UpdateMessageText replaces the text of a live message and flags it edited.
func (s *SQLiteStore) UpdateMessageText(ctx context.Context, id, text string) error {
	query := `
		UPDATE messages
		SET body = ?, edited = 1
		WHERE id = ? AND deleted = 0
	`
	result, err := s.db.ExecContext(ctx, query, text, id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SoftDeleteMessage flags a live message deleted and stamps the deletion time.
func (s *SQLiteStore) SoftDeleteMessage(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE messages
		SET deleted = 1, deleted_at = ?
		WHERE id = ? AND deleted = 0
	`
	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListMessages performs a bounded backfill read ordered by creation time.
func (s *SQLiteStore) ListMessages(ctx context.Context, q store.MessageQuery) ([]*store.Message, error) {
	query := `
		SELECT id, channel_tag, sender_id, sender_name, body, attachment_ref, reply_to, created_at, edited, deleted, deleted_at
		FROM messages
		WHERE 1 = 1
	`
	var args []interface{}

	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		query += " AND created_at < ?"
		args = append(args, q.Until)
	}
	if q.ChannelTag != "" {
		query += " AND channel_tag = ?"
		args = append(args, q.ChannelTag)
	}
	if !q.IncludeDeleted {
		query += " AND deleted = 0"
	}

	// Newest rows win when the window exceeds the limit, returned oldest first.
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var deletedAt sql.NullTime
		if err := rows.Scan(
			&msg.ID,
			&msg.ChannelTag,
			&msg.SenderID,
			&msg.SenderName,
			&msg.Text,
			&msg.AttachmentRef,
			&msg.ReplyTo,
			&msg.CreatedAt,
			&msg.Edited,
			&msg.Deleted,
			&deletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if deletedAt.Valid {
			msg.DeletedAt = &deletedAt.Time
		}
		messages = append(messages, &msg)
	}

	// Reverse to get chronological order.
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, rows.Err()
}

// PurgeDeletedBefore physically removes soft-deleted messages past the cutoff.
func (s *SQLiteStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM messages
		WHERE deleted = 1 AND deleted_at < ?
	`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted messages: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// PurgeCreatedBefore physically removes active messages created before the
// cutoff. Soft-deleted rows are left for PurgeDeletedBefore so a recent
// deletion is never removed before its own threshold elapses.
func (s *SQLiteStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM messages
		WHERE deleted = 0 AND created_at < ?
	`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired messages: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
