package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"indichess/internal/config"
	"indichess/internal/db"
	apihttp "indichess/internal/http"
	"indichess/internal/oauth"
	"indichess/internal/repository"
	"indichess/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.Migrate(ctx, cfg); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	hasher := service.NewPasswordHasher()
	tokenSvc := service.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	limiter := service.NewLoginRateLimiter(time.Minute, 10)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisLoginRateLimiter(redisClient, time.Minute, 10)
		}
		cancel()
	}

	authSvc := service.NewAuthService(logger, userRepo, hasher, tokenSvc, limiter)
	oauthSvc := service.NewOAuthService(logger, userRepo, hasher, tokenSvc)

	authHandler := apihttp.NewAuthHandler(logger, authSvc)
	userHandler := apihttp.NewUserHandler(logger, userRepo)

	var oauthHandler *apihttp.OAuthHandler
	registry := oauth.NewRegistry(cfg)
	if _, err := registry.Lookup("google"); err == nil {
		oauthHandler = apihttp.NewOAuthHandler(logger, registry, oauthSvc, cfg.LoginRedirectURL)
	} else {
		logger.Warn("no oauth providers configured")
	}

	router := apihttp.NewRouter(logger, tokenSvc, authHandler, userHandler, oauthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
