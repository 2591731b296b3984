package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/E10-Naganiom/backOFraud/internal/config"
	"github.com/E10-Naganiom/backOFraud/internal/crypto"
	"github.com/E10-Naganiom/backOFraud/internal/metrics"
	"github.com/E10-Naganiom/backOFraud/internal/middleware"
	"github.com/E10-Naganiom/backOFraud/internal/repository"
	"github.com/E10-Naganiom/backOFraud/internal/server"
	"github.com/E10-Naganiom/backOFraud/internal/service"
	"github.com/E10-Naganiom/backOFraud/internal/storage"
	"github.com/E10-Naganiom/backOFraud/internal/telegram_bot"
)

func main() {
	cfgPath := "configs/config.yml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		cfgPath = p
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, repository.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	cipher, err := crypto.NewFieldCipher(cfg.Encryption.MasterKey)
	if err != nil {
		logger.Fatal("Failed to initialize field encryption", zap.Error(err))
	}
	if !cipher.Enabled() {
		logger.Warn("Encryption master key is not set, attacker contact fields are stored in clear")
	}

	store, err := newFileStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize evidence storage", zap.Error(err))
	}

	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		logger.Fatal("Failed to initialize token service", zap.Error(err))
	}

	m := metrics.New()

	deps := server.Dependencies{
		Repos: server.Repositories{
			Users:      repository.NewUserRepository(db, logger),
			Incidents:  repository.NewIncidentRepository(db, cipher, logger),
			Evidence:   repository.NewEvidenceRepository(db, logger),
			Categories: repository.NewCategoryRepository(db, logger),
		},
		Store:   store,
		Tokens:  tokens,
		Metrics: m,
	}

	var redisClient *redis.Client
	if cfg.RateLimit.RedisURL != "" {
		redisClient, err = newRedisClient(ctx, cfg.RateLimit.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		deps.Limiter = middleware.NewLoginLimiter(redisClient, cfg.RateLimit.LoginAttempts, cfg.RateLimit.Window, logger)
		logger.Info("Login rate limiting enabled",
			zap.Int("attempts", cfg.RateLimit.LoginAttempts), zap.Duration("window", cfg.RateLimit.Window))
	} else {
		logger.Warn("Redis URL is not set, login rate limiting is disabled")
	}
	deps.Health = server.NewHealthChecker(db.DB, redisClient)

	// Initialize Telegram bot for supervisor notifications
	bot, err := telegram_bot.NewBot(cfg, m, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}
	if bot != nil {
		deps.Notifier = bot
		go func() {
			if err := bot.Start(ctx); err != nil {
				logger.Error("Telegram bot failed", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(cfg, deps, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Application stopped.")
}

// newLogger builds a development logger for console output and a
// production one for json.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zc zap.Config
	if strings.EqualFold(format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func newFileStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.FileStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:  cfg.Storage.S3.Endpoint,
			Region:    cfg.Storage.S3.Region,
			Bucket:    cfg.Storage.S3.Bucket,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		}, logger)
	case "local", "":
		return storage.NewLocalStore(cfg.Storage.Local.Dir, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
