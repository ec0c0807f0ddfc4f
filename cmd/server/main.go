// Package main runs the voting event HTTP server with the live vote feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventvote/backend/config"
	"github.com/eventvote/backend/internal/auth"
	"github.com/eventvote/backend/internal/contacts"
	"github.com/eventvote/backend/internal/emaillogs"
	"github.com/eventvote/backend/internal/events"
	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/internal/realtime"
	"github.com/eventvote/backend/internal/results"
	"github.com/eventvote/backend/internal/subscriptions"
	"github.com/eventvote/backend/internal/subusers"
	"github.com/eventvote/backend/internal/users"
	"github.com/eventvote/backend/internal/voting"
	"github.com/eventvote/backend/pkg/database"
	"github.com/eventvote/backend/pkg/queue"
	"github.com/eventvote/backend/pkg/redis"
	"github.com/eventvote/backend/pkg/response"
	"github.com/eventvote/backend/pkg/storage"
)

const maxMultipartMemory = 32 << 20

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		logger.Error("JWT_SECRET is not set; authenticated routes will answer 500")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	jobQueue := queue.NewQueue(rdb.Client, logger)

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()))
	router.Use(middleware.Logger(logger))

	var images storage.ImageStore
	if cfg.AWS.UseS3() {
		images, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImagesBucket:    cfg.AWS.ImagesBucket,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
	} else {
		local, err := storage.NewLocal(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, logger)
		if err != nil {
			logger.Fatal("upload dir", zap.Error(err))
		}
		router.Static(local.URLPrefix(), local.Dir())
		images = local
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Accounts
	authRepo := auth.NewRepository(pool)
	subUserRepo := subusers.NewRepository(pool)
	authSvc := auth.NewService(authRepo, subUserRepo, jwtService, jobQueue, auth.ServiceConfig{
		BaseURL:  cfg.Server.BaseURL,
		ResetTTL: time.Duration(cfg.PasswordReset.TTLMinutes) * time.Minute,
	}, logger)
	authHandler := auth.NewHandler(authSvc, logger)
	userHandler := users.NewHandler(authRepo)
	subUserHandler := subusers.NewHandler(subusers.NewService(subUserRepo, logger))
	subscriptionSvc := subscriptions.NewService(subscriptions.NewRepository(pool),
		subscriptions.NewGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret),
		cfg.Payment.PlanPrices, cfg.Payment.Currency, logger)
	subscriptionHandler := subscriptions.NewHandler(subscriptionSvc, logger)
	contactHandler := contacts.NewHandler(contacts.NewRepository(pool), jobQueue, logger)
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	// Events and voting
	eventRepo := events.NewRepository(pool)
	eventSvc := events.NewService(eventRepo, images, jobQueue, logger)
	eventHandler := events.NewHandler(eventSvc, logger)
	voteRepo := voting.NewRepository(pool)
	votingHandler := voting.NewHandler(voting.NewService(eventRepo, voteRepo, hub, logger), logger)
	resultsHandler := results.NewHandler(results.NewService(voteRepo), logger)
	wsServer := realtime.NewServer(hub, jwtService, eventSvc, cfg.Server.AllowedOrigins(), logger)

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public
	router.POST("/create-account", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/forgot-password", authHandler.ForgotPassword)
	router.POST("/reset-password", authHandler.ResetPassword)
	router.POST("/contact", contactHandler.Submit)
	router.POST("/api/verify-id/:eventId", votingHandler.VerifyID)
	router.POST("/api/vote/:eventId", votingHandler.Vote)
	router.GET("/api/public/events/:eventId", votingHandler.PublicEvent)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", wsServer.ServeWs)

	owned := events.RequireOwnership(eventSvc)
	manage := middleware.RequireRole(models.RoleOwner, models.SubUserRoleAdmin)

	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/events", eventHandler.List)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", owned, eventHandler.Get)
		api.PUT("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.GET("/events/:id/results", owned, resultsHandler.Results)
		api.GET("/votes/:id", owned, resultsHandler.Votes)

		api.GET("/users", userHandler.Get)
		api.PUT("/users", userHandler.Update)

		api.GET("/sub-users", manage, subUserHandler.List)
		api.POST("/sub-users", manage, subUserHandler.Create)
		api.PUT("/sub-users/:id", manage, subUserHandler.Update)
		api.DELETE("/sub-users/:id", manage, subUserHandler.Delete)

		api.GET("/subscriptions", subscriptionHandler.Get)
		api.POST("/subscriptions/order", manage, subscriptionHandler.CreateOrder)
		api.POST("/subscriptions/verify", manage, subscriptionHandler.Verify)

		api.GET("/email-logs", emailLogsHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
