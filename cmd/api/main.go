package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/config"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/db"
	apihttp "github.com/komatsuhenry1/MedAssistFront-sub000/internal/http"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/realtime"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/repository"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	messageRepo := repository.NewPgMessageRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)

	var (
		presence service.PresenceStore = service.NewMemoryPresenceStore(cfg.PresenceTTL)
		limiter  service.SendLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory presence", zap.Error(err))
		} else {
			presence = service.NewRedisPresenceStore(redisClient, cfg.PresenceTTL)
			limiter = service.NewRedisSendRateLimiter(redisClient, cfg.SendWindow, cfg.SendMax)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	chatSvc := service.NewChatService(messageRepo, profileRepo, presence, limiter, logger)
	hub := realtime.NewHub()
	defer hub.Close()

	chatHandler := apihttp.NewChatHandler(logger, chatSvc, hub)
	router := apihttp.NewRouter(logger, jwtSvc, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
