package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/driftchat/driftchat-server/internal/store"
	"github.com/driftchat/driftchat-server/internal/store/sqlite"
)

// racingUserStore simulates the loser of a concurrent registration: the
// existence check sees no user, but the insert hits the unique constraint.
type racingUserStore struct {
	store.UserStore
}

func (racingUserStore) GetUserByIdentity(ctx context.Context, identity string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (racingUserStore) CreateUser(ctx context.Context, identity, passwordHash, displayName, avatarRef string) (*store.User, error) {
	return nil, store.ErrAlreadyExists
}

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_ValidatesIdentity(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		identity string
		wantErr  error
	}{
		{name: "email accepted", identity: "alice@example.com", wantErr: nil},
		{name: "phone accepted", identity: "+4915112345678", wantErr: nil},
		{name: "bare word rejected", identity: "alice", wantErr: ErrInvalidIdentity},
		{name: "trailing dot domain rejected", identity: "a@example.", wantErr: ErrInvalidIdentity},
		{name: "short phone rejected", identity: "+123", wantErr: ErrInvalidIdentity},
		{name: "empty rejected", identity: "  ", wantErr: ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.identity, "password123", "", "")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(t)

	if _, err := svc.Register(context.Background(), "alice@example.com", "12345", "", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, " alice@example.com ", "password123", "Alice", "")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	// Collides because the stored identity is trimmed.
	if _, err := svc.Register(ctx, "alice@example.com", "password123", "Alice2", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegister_ConcurrentDuplicateIdentity(t *testing.T) {
	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	svc := NewService(racingUserStore{}, jwtConfig)

	if _, err := svc.Register(context.Background(), "alice@example.com", "password123", "Alice", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "password123", "Alice", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Identity != "alice@example.com" || claims.DisplayName != "Alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "bob@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateToken_RejectsTampering(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("secret-a"), Issuer: "test", Audience: "test", TTL: time.Hour}

	token, err := GenerateToken(cfg, 1, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := &JWTConfig{Secret: []byte("secret-b"), Issuer: "test", Audience: "test", TTL: time.Hour}
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}

	wrongIssuer := &JWTConfig{Secret: []byte("secret-a"), Issuer: "someone-else", Audience: "test", TTL: time.Hour}
	if _, err := ValidateToken(wrongIssuer, token); err == nil {
		t.Fatal("expected validation failure with wrong issuer")
	}

	expired := &JWTConfig{Secret: []byte("secret-a"), Issuer: "test", Audience: "test", TTL: -time.Hour}
	expiredToken, err := GenerateToken(expired, 1, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := ValidateToken(cfg, expiredToken); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}
