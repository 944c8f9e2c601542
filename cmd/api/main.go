package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"dp-auto/internal/config"
	"dp-auto/internal/db"
	"dp-auto/internal/email"
	apihttp "dp-auto/internal/http"
	"dp-auto/internal/llm"
	"dp-auto/internal/repository"
	"dp-auto/internal/service"

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

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
		cancel()
	}

	var accountRepo repository.AccountRepository
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Fatal("db migrate", zap.Error(err))
			}
		}
		accountRepo = repository.NewPgAccountRepository(pool)
	case config.StoreBackendRedis:
		if redisClient == nil {
			logger.Fatal("redis store selected but redis is unavailable", zap.String("addr", cfg.RedisAddr))
		}
		accountRepo = repository.NewRedisAccountRepository(redisClient)
	case config.StoreBackendMemory:
		logger.Warn("using in-memory account store, data is lost on restart")
		accountRepo = repository.NewMemoryAccountRepository()
	default:
		logger.Fatal("unknown store backend", zap.String("backend", cfg.StoreBackend))
	}

	var codeLimiter, attemptLimiter service.CodeRateLimiter
	if redisClient != nil {
		codeLimiter = service.NewRedisCodeRateLimiter(redisClient, cfg.CodeRateLimitWindow(), cfg.CodeRateLimitMax)
		attemptLimiter = service.NewRedisCodeRateLimiter(redisClient, cfg.VerifyAttemptWindow(), cfg.VerifyAttemptMax)
	} else {
		codeLimiter = service.NewCodeRateLimiter(cfg.CodeRateLimitWindow(), cfg.CodeRateLimitMax)
		attemptLimiter = service.NewCodeRateLimiter(cfg.VerifyAttemptWindow(), cfg.VerifyAttemptMax)
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	} else {
		logger.Warn("smtp not configured, verification emails will fail")
	}

	// Sin API key el chat responde 503; la interfaz queda nil a proposito.
	var llmClient llm.LLMClient
	if cfg.GeminiAPIKey != "" {
		llmClient = llm.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	} else {
		logger.Warn("gemini api key not configured, chat disabled")
	}

	tokens := service.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL())
	accountSvc := service.NewAccountService(logger, accountRepo, emailSender, tokens, codeLimiter).
		WithAttemptLimiter(attemptLimiter)
	chatSvc := service.NewChatService(llmClient, logger)

	accountHandler := apihttp.NewAccountHandler(logger, accountSvc)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	router := apihttp.NewRouter(logger, accountHandler, chatHandler, accountSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreBackend),
		zap.Bool("gemini", chatSvc.Enabled()),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
