package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/auth"
	"github.com/driftchat/driftchat-server/internal/config"
	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/service/messages"
	"github.com/driftchat/driftchat-server/internal/service/retention"
	"github.com/driftchat/driftchat-server/internal/store"
	"github.com/driftchat/driftchat-server/internal/store/sqlite"
	transporthttp "github.com/driftchat/driftchat-server/internal/transport/http"
)

// App wires together the store, the broadcast hub, the services, and the
// HTTP transport.
type App struct {
	cfg       config.Config
	server    *stdhttp.Server
	hub       *core.Hub
	store     store.Store
	retention *retention.Service
	stop      chan struct{}
	log       *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	hub := core.NewHub(logger)
	msgService := messages.New(st, hub, cfg.BackfillMaxLimit)
	retentionService := retention.New(st, logger, cfg.RetentionSweepInterval, cfg.PurgeThreshold, cfg.RetentionWindow)

	stop := make(chan struct{})
	server := transporthttp.NewServer(hub, authService, msgService, cfg, logger, stop)

	return &App{
		cfg:       cfg,
		server:    server,
		hub:       hub,
		store:     st,
		retention: retentionService,
		stop:      stop,
		log:       logger,
	}, nil
}

// Run starts the HTTP server and background jobs and blocks until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.heartbeatLoop(ctx)
	go a.reapLoop(ctx)
	go a.retention.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// heartbeatLoop pushes keep-alive frames so intermediary proxies don't
// drop idle stream connections.
func (a *App) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d := a.hub.Heartbeat()
			if d.Evicted > 0 {
				a.log.Debug().Int("evicted", d.Evicted).Msg("heartbeat evicted dead subscribers")
			}
		case <-ctx.Done():
			return
		}
	}
}

// reapLoop is the backstop for connections whose close notification was
// lost.
func (a *App) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.hub.Reap(a.cfg.IdleTimeout)
		case <-ctx.Done():
			return
		}
	}
}

// cleanup closes the database and stops transport helpers.
func (a *App) cleanup() {
	close(a.stop)
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
