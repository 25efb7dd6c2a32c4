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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/api"
	"github.com/share-gateway/internal/auth"
	"github.com/share-gateway/internal/blob"
	"github.com/share-gateway/internal/catalog"
	"github.com/share-gateway/internal/config"
	"github.com/share-gateway/internal/database"
	"github.com/share-gateway/internal/gateway"
	"github.com/share-gateway/internal/lockout"
	"github.com/share-gateway/internal/share"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(ctx, database.Dialect(cfg.Database.Type), cfg.GetDSN())
	cancel()
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.WithField("dialect", db.Dialect).Info("Database ready")

	blobs, err := blob.NewStore(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to create blob store: %v", err)
	}
	logger.WithField("type", cfg.Storage.Type).Info("Blob store initialized")

	lockoutStore, closeStore, err := newLockoutStore(cfg.Cache, logger)
	if err != nil {
		logger.Fatalf("Failed to create lockout store: %v", err)
	}
	defer closeStore()

	// Initialize services
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	catalogService := catalog.NewService(db)
	registry := share.NewRegistry(db, catalogService, logger.WithField("component", "share"), share.Options{
		TokenBytes: cfg.Share.TokenBytes,
		BcryptCost: cfg.Share.BcryptCost,
	})
	limiter := lockout.NewLimiter(lockoutStore, cfg.Share.MaxPasswordAttempts, cfg.Share.LockoutWindow, logger.WithField("component", "lockout"))
	gw := gateway.New(registry, catalogService, blobs, limiter, logger.WithField("component", "gateway"))

	gin.SetMode(cfg.GetGINMode())
	router := api.NewRouter(api.Deps{
		Registry:   registry,
		Gateway:    gw,
		Auth:       authService,
		Logger:     logger,
		BaseURL:    cfg.Server.BaseURL,
		EnableCORS: cfg.Server.EnableCORS,
	})

	srv := &http.Server{
		Addr:           cfg.Server.Address,
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// newLockoutStore connects to Redis when configured and falls back to the
// in-process store otherwise.
func newLockoutStore(cfg config.CacheConfig, logger *logrus.Logger) (lockout.Store, func(), error) {
	if cfg.Type != "redis" {
		logger.Info("Using in-memory lockout store")
		return lockout.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	logger.Info("Connected to Redis")

	return lockout.NewRedisStore(rdb), func() { rdb.Close() }, nil
}
