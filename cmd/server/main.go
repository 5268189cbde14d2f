package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/kit/log"

	"marketchat/internal/cache"
	"marketchat/internal/catalog"
	"marketchat/internal/config"
	"marketchat/internal/gateway"
	"marketchat/internal/handler"
	"marketchat/internal/ratelimit"
	"marketchat/internal/repository"
	"marketchat/internal/router"
	"marketchat/internal/service"
	"marketchat/pkg/constant"
	"marketchat/pkg/metrics"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s", cfg.Server.Mode)

	// Initialize Redis key prefix
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	// Cache layer on Redis
	pageCache := cache.NewRedisCache(repos.Redis, cache.TTLConfig{
		FirstPage: cfg.Cache.FirstPageTTL,
		Page:      cfg.Cache.PageTTL,
		Unread:    cfg.Cache.UnreadTTL,
	})

	// Catalog client and send rate limiter
	catalogProvider := catalog.NewHTTPProvider(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	limiter := ratelimit.NewUserLimiter(cfg.RateLimit.SendPerSecond, cfg.RateLimit.SendBurst)

	// Metrics reporter
	reporter := metrics.NewReporter()
	go reporter.Run(ctx, cfg.Metrics.ReportInterval)

	// Initialize services
	msgService := service.NewMessageService(repos, pageCache, catalogProvider, limiter, reporter)
	convService := service.NewConversationService(repos, pageCache, reporter)
	histService := service.NewHistoryService(repos, pageCache, convService, reporter)
	archService := service.NewArchiveService(repos, pageCache, convService, reporter,
		cfg.Archive.RetentionDays, cfg.Archive.BatchSize)

	// Initialize WebSocket gateway
	wsServer, err := gateway.NewWsServer(cfg, msgService, convService)
	if err != nil {
		log.CtxError(ctx, "failed to initialize gateway: %v", err)
		panic(err)
	}
	msgService.SetPusher(wsServer)
	convService.SetPusher(wsServer)

	wsServer.Run(ctx)
	log.CtxInfo(ctx, "websocket gateway started")

	// Archive scheduler
	scheduler := service.NewScheduler(archService, cfg.Archive.Interval)
	go scheduler.Run(ctx)

	// Initialize handlers
	handlers := &router.Handlers{
		Message:      handler.NewMessageHandler(msgService),
		Conversation: handler.NewConversationHandler(convService, histService),
		Archive:      handler.NewArchiveHandler(archService, scheduler),
	}

	// Create Hertz server
	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)

	router.SetupRouter(h, handlers, wsServer)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	go func() {
		h.Spin()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")
	cancel()

	if err := h.Shutdown(context.Background()); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	log.CtxInfo(ctx, "server stopped")
}
