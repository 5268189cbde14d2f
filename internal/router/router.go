package router

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"

	"marketchat/internal/config"
	"marketchat/internal/gateway"
	"marketchat/internal/handler"
	"marketchat/internal/middleware"
	"marketchat/pkg/metrics"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	Message      *handler.MessageHandler
	Conversation *handler.ConversationHandler
	Archive      *handler.ArchiveHandler
}

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, handlers *Handlers, wsServer *gateway.WsServer) {
	cfg := config.GlobalConfig

	h.Use(middleware.CORS())

	// Health check
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus scrape endpoint
	metricsHandler := metrics.Handler()
	h.GET("/metrics", func(ctx context.Context, c *app.RequestContext) {
		req, err := adaptor.GetCompatRequest(&c.Request)
		if err != nil {
			c.AbortWithStatus(consts.StatusInternalServerError)
			return
		}
		metricsHandler.ServeHTTP(adaptor.GetCompatResponseWriter(&c.Response), req)
	})

	// Chat routes (auth required)
	chatGroup := h.Group("/chat", middleware.JWTAuth())
	{
		chatGroup.POST("/send", handlers.Message.SendMessage)
		chatGroup.POST("/conversation/send", handlers.Message.SendToConversation)
		chatGroup.GET("/history", handlers.Conversation.GetHistory)
		chatGroup.GET("/conversations", handlers.Conversation.GetConversations)
		chatGroup.POST("/mark_read", handlers.Conversation.MarkRead)
		chatGroup.GET("/archived", handlers.Archive.GetArchived)
	}

	// Admin routes (auth required)
	adminGroup := h.Group("/admin", middleware.JWTAuth())
	{
		adminGroup.POST("/archive/run", handlers.Archive.RunArchive)
	}

	// WebSocket route with origin validation
	allowedOrigins := cfg.Server.AllowedOrigins
	upgrader := &websocket.HertzUpgrader{
		CheckOrigin: func(ctx *app.RequestContext) bool {
			return checkOrigin(ctx, allowedOrigins)
		},
	}

	h.GET("/ws", func(ctx context.Context, c *app.RequestContext) {
		wsServer.HandleHertzConnection(ctx, c, upgrader)
	})
}

// checkOrigin validates the Origin header against allowed origins
func checkOrigin(ctx *app.RequestContext, allowedOrigins []string) bool {
	origin := string(ctx.Request.Header.Peek("Origin"))

	// No origin header: same-origin request or non-browser client
	if origin == "" {
		return true
	}

	if len(allowedOrigins) == 0 {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return true
		}
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}
