package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/driftchat/driftchat-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when identity/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering an identity that is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidIdentity is returned when the identity is not a plausible
	// phone number or email address.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidPassword is returned when the password is too short.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user with a hashed credential and returns a JWT.
// Identity is a phone number or email address.
func (s *Service) Register(ctx context.Context, identity, password, displayName, avatarRef string) (string, error) {
	identity = strings.TrimSpace(identity)
	if !validIdentity(identity) {
		return "", ErrInvalidIdentity
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = identity
	}

	if existing, err := s.store.GetUserByIdentity(ctx, identity); err == nil && existing != nil {
		return "", ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, identity, hashedPassword, displayName, avatarRef)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Concurrent registration won the check above; the unique
		// constraint is the authoritative detector.
		return "", ErrUserExists
	}
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Identity, user.DisplayName)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, identity, password string) (string, error) {
	user, err := s.store.GetUserByIdentity(ctx, strings.TrimSpace(identity))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Identity, user.DisplayName)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// validIdentity accepts an email address (has @ and a dot after it) or a
// phone number (optional +, 7 to 15 digits). The boundary keeps this
// loose; real verification happens out of band.
func validIdentity(identity string) bool {
	if identity == "" || len(identity) > 255 {
		return false
	}
	if at := strings.IndexByte(identity, '@'); at > 0 {
		domain := identity[at+1:]
		return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
	}
	digits := strings.TrimPrefix(identity, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
