package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/auth"
	"github.com/driftchat/driftchat-server/internal/config"
	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/service/messages"
	"github.com/driftchat/driftchat-server/internal/store"
	"github.com/driftchat/driftchat-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	return auth.NewService(st, jwtConfig)
}

// createTestServer wires a full server over an in-memory store and
// returns the handler plus the pieces tests poke at directly.
func createTestServer(t *testing.T) (http.Handler, *core.Hub, *auth.Service, store.Store) {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")

	disabledLogger := zerolog.Nop()
	hub := core.NewHub(&disabledLogger)
	msgService := messages.New(st, hub, 50)

	cfg := config.Default()
	cfg.RateLimitPerMinute = 0 // don't trip rate limiting inside tests
	cfg.StreamBufferSize = 8

	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })

	server := NewServer(hub, authService, msgService, cfg, &disabledLogger, stop)
	return server.Handler, hub, authService, st
}
