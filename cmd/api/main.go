package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"passager/internal/config"
	"passager/internal/db"
	"passager/internal/email"
	apihttp "passager/internal/http"
	"passager/internal/repository"
	"passager/internal/service"
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

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		limiter      service.EmailRateLimiter
		sessionStore service.SessionStore
	)
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
			limiter = service.NewRedisEmailRateLimiter(redisClient, 10*time.Minute, 3)
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}

	tokenTTL := time.Duration(cfg.AuthTokenTTLHours) * time.Hour
	confirmGen := service.NewConfirmEmailTokenGenerator(cfg.SecretKey, tokenTTL)
	resetGen := service.NewPasswordResetTokenGenerator(cfg.SecretKey, tokenTTL)

	authSvc := service.NewAuthService(logger, userRepo, emailSender, limiter, confirmGen, resetGen, cfg.PublicBaseURL)
	sessionSvc := service.NewSessionServiceWithStore(
		cfg.SecretKey,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
		sessionStore,
	)

	authHandler := apihttp.NewAuthHandler(logger, authSvc, sessionSvc, cfg.SessionCookieName, cfg.SessionCookieSecure)
	sessionMW := apihttp.SessionAuthMiddleware(sessionSvc, cfg.SessionCookieName)
	router := apihttp.NewRouter(logger, authHandler, sessionMW, pool)

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
