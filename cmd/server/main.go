package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/api"
	"github.com/strandhq/strand/internal/config"
	"github.com/strandhq/strand/internal/db"
	"github.com/strandhq/strand/internal/middleware"
	"github.com/strandhq/strand/internal/observ"
	"github.com/strandhq/strand/internal/repository/postgres"
	"github.com/strandhq/strand/internal/repository/rediscache"
	"github.com/strandhq/strand/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline — Background() is correct here; each
	// request gets its own context once the server runs.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	rdb, err := db.NewRedis(context.Background(), cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// Repositories share the pool; it's goroutine-safe. The channel repo
	// is wrapped so the per-request scope check usually never reaches
	// Postgres.
	pool := database.Pool()
	channelRepo := rediscache.NewChannelCache(postgres.NewChannelStore(pool), rdb, logger)
	messageRepo := postgres.NewMessageStore(pool)
	reactionRepo := postgres.NewReactionStore(pool)
	workspaceRepo := postgres.NewWorkspaceStore(pool)
	userRepo := postgres.NewUserStore(pool)

	messageSvc := service.NewMessages(channelRepo, messageRepo, reactionRepo, logger)

	authHandler := api.NewAuthHandler(userRepo, workspaceRepo, cfg.JWTSecret, logger)
	channelHandler := api.NewChannelHandler(channelRepo, logger)
	messageHandler := api.NewMessageHandler(messageSvc, logger)
	userHandler := api.NewUserHandler(userRepo, logger)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	logger.Info("starting strand",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	// Health is public — load balancers can't carry a token.
	srv.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Auth endpoints are the only other public routes: they produce the
	// tokens everything else requires.
	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	readLimit := middleware.RateLimit(rdb, logger, "read", cfg.ReadLimitPerMinute, time.Minute)
	writeLimit := middleware.RateLimit(rdb, logger, "write", cfg.WriteLimitPerMinute, time.Minute)

	v1.GET("/users/me", readLimit, userHandler.GetMe)

	v1.POST("/channels", writeLimit, channelHandler.Create)
	v1.GET("/channels", readLimit, channelHandler.List)

	v1.POST("/messages", writeLimit, messageHandler.Create)
	v1.GET("/messages", readLimit, messageHandler.List)
	v1.PUT("/messages/:id", writeLimit, messageHandler.Update)
	v1.GET("/messages/:id/thread", readLimit, messageHandler.Thread)
	v1.POST("/messages/:id/reactions", writeLimit, messageHandler.ToggleReaction)

	return srv.Run(":" + cfg.Port)
}
