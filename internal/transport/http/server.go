package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/auth"
	"github.com/causerie-chat/server/internal/config"
	"github.com/causerie-chat/server/internal/core"
	"github.com/causerie-chat/server/internal/store"
)

// NewServer builds the HTTP server: REST API, health check, and the
// WebSocket bridge into the core.
func NewServer(router *core.Router, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	authHandlers := NewAuthHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	userHandlers := NewUserHandlers(st, logger)
	adminHandlers := NewAdminHandlers(st, logger)

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	engine.GET("/ws", gin.WrapH(NewWSHandler(router, authService, logger)))

	api := engine.Group("/api")
	api.POST("/auth/register", authHandlers.Register)
	api.POST("/auth/login", authHandlers.Login)

	authed := api.Group("", AuthMiddleware(authService, logger))
	{
		authed.GET("/rooms", roomHandlers.ListRooms)
		authed.POST("/rooms", roomHandlers.CreateRoom)

		authed.GET("/messages/:roomId", messageHandlers.RoomHistory)
		authed.POST("/messages", messageHandlers.PostMessage)
		authed.GET("/private-messages/:userId", messageHandlers.Conversation)

		authed.GET("/users", userHandlers.ListUsers)
		authed.GET("/users/blocked", userHandlers.ListBlocked)
		authed.POST("/users/block/:userId", userHandlers.Block)
		authed.POST("/users/unblock/:userId", userHandlers.Unblock)
		authed.PUT("/users/:id", userHandlers.UpdateProfile(false))
		authed.PATCH("/users/:id/full", userHandlers.UpdateProfile(true))

		authed.POST("/admin/report/:userId", adminHandlers.Report)

		admin := authed.Group("/admin", AdminMiddleware())
		{
			admin.PATCH("/ban/:userId", adminHandlers.Ban)
			admin.GET("/users", adminHandlers.ListUsers)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
