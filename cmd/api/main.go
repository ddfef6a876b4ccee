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

	"attendly/internal/api"
	"attendly/internal/attendance"
	"attendly/internal/auth"
	"attendly/internal/cache"
	"attendly/internal/config"
	"attendly/internal/logging"
	"attendly/internal/observability"
	"attendly/internal/queue"
	"attendly/internal/store"
)

var version = "dev"

func main() {
	cfg := config.Load()

	logger, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()
	health := map[string]api.HealthFunc{}

	var repo attendance.Repository
	switch cfg.StoreBackend {
	case "memory":
		repo = attendance.NewMemoryRepository()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if cfg.AutoMigrate {
			if err := store.Migrate(db.Client); err != nil {
				return err
			}
		}
		repo = attendance.NewPostgresRepository(db.Client)
		health["db"] = func(ctx context.Context) bool { return db.Ping(ctx) == nil }
	}

	var (
		c      attendance.Cache = cache.Nop{}
		events attendance.Publisher
	)
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		go drain(ctx, mem, logger)
		events = mem
	} else {
		rdb, err := store.OpenRedis(cfg.RedisAddr, cfg.StoreTimeout)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		c = cache.NewRedis(rdb.Client, "attendly:", cfg.CacheTTL)
		events = queue.NewRedisQueue(rdb.Client, "attendly:events", logger)
		health["redis"] = rdb.Healthy
	}

	svc := attendance.NewService(repo, attendance.Options{
		Location:     cfg.Location,
		StoreTimeout: cfg.StoreTimeout,
		Cache:        c,
		Events:       events,
		Logger:       logger.Named("attendance"),
	})
	signer := auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	h := api.NewHandler(svc, signer, logger.Named("api"))
	r := api.NewRouter(h, api.RouterOptions{
		RateLimitPerMin: cfg.RateLimitPerMin,
		Health:          health,
		Logger:          logger.Named("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// drain consumes in-process events. With no shared cache there is nothing to
// warm, so they are only logged.
func drain(ctx context.Context, q queue.Queue, logger *zap.Logger) {
	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Warn("event drain failed", zap.Error(err))
		return
	}
	for msg := range messages {
		logger.Debug("event", zap.String("type", msg.Type), zap.ByteString("body", msg.Body))
	}
}
