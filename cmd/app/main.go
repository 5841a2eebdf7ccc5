package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"taskhub_miniapp/internal/api"
	"taskhub_miniapp/internal/bot"
	"taskhub_miniapp/internal/middleware"
	"taskhub_miniapp/internal/notifier"
	"taskhub_miniapp/internal/repository"
	"taskhub_miniapp/internal/scheduler"
	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/internal/session"
	"taskhub_miniapp/pkg/auth"
	"taskhub_miniapp/pkg/logger"

	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	redisClient, err := session.Connect(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	sessions := session.NewStore(redisClient, 10*time.Minute)

	hub := notifier.NewHub()
	dispatcher, err := notifier.New(cfg.Telegram.BotToken, hub)
	if err != nil {
		zapLogger.Fatal("Failed to initialize notifier", zap.Error(err))
	}
	go dispatcher.Start(ctx)

	userService := service.NewUserService(repo, dispatcher)
	taskService := service.NewTaskService(repo, dispatcher)
	withdrawalService := service.NewWithdrawalService(repo, dispatcher)

	tgBot, err := bot.New(cfg.Telegram.BotToken, userService, sessions)
	if err != nil {
		zapLogger.Fatal("Failed to initialize bot", zap.Error(err))
	}
	go tgBot.Start(ctx)

	maintenance := scheduler.New(taskService, cfg.Tasks.AbandonAfter())
	maintenance.Start()
	defer maintenance.Stop()

	telegramAuth := auth.NewTelegramAuth(cfg.Telegram.BotToken, cfg.Telegram.DebugMode)
	authz := middleware.NewAuthorization(userService)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, telegramAuth)
	api.NewTaskRoutes(a, taskService, telegramAuth, authz)
	api.NewWithdrawalRoutes(a, withdrawalService, telegramAuth, authz)
	api.NewEventRoutes(a, hub, telegramAuth)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
