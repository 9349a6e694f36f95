package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/auth"
	"github.com/driftchat/driftchat-server/internal/config"
	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/service/messages"
)

// NewServer builds the HTTP server with all routes wired.
func NewServer(hub *core.Hub, authService *auth.Service, msgService *messages.Service, cfg config.Config, logger *zerolog.Logger, stop <-chan struct{}) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	rl := newRateLimiter(cfg.RateLimitPerMinute)
	rl.startReset(stop)
	router.Use(RateLimitMiddleware(rl))

	apiHandlers := NewAPIHandlers(authService, logger)
	msgHandlers := NewMessageHandlers(msgService, logger)
	sseHandler := NewSSEHandler(hub, cfg.StreamBufferSize, logger)
	wsHandler := NewWSHandler(hub, cfg.StreamBufferSize, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authService, logger))
	authorized.POST("/messages", msgHandlers.PostMessage)
	authorized.PATCH("/messages/:id", msgHandlers.EditMessage)
	authorized.DELETE("/messages/:id", msgHandlers.DeleteMessage)
	authorized.GET("/messages", msgHandlers.ListMessages)
	authorized.GET("/stream", sseHandler.Stream)
	authorized.GET("/ws", wsHandler.Stream)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
