package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"attendly/internal/attendance"
	"attendly/internal/cache"
	"attendly/internal/config"
	"attendly/internal/logging"
	"attendly/internal/queue"
	"attendly/internal/store"
)

// Worker consumes change events and recomputes the cached derivations of
// the affected course.
func main() {
	cfg := config.Load()
	logger, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	rdb, err := store.OpenRedis(cfg.RedisAddr, cfg.StoreTimeout)
	if err != nil {
		logger.Fatal("redis config invalid", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	if !rdb.Healthy(ctx) {
		logger.Warn("redis not reachable, will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	q := queue.NewRedisQueue(rdb.Client, "attendly:events", logger)
	svc := attendance.NewService(attendance.NewPostgresRepository(db.Client), attendance.Options{
		Location:     cfg.Location,
		StoreTimeout: cfg.StoreTimeout,
		Cache:        cache.NewRedis(rdb.Client, "attendly:", cfg.CacheTTL),
		Logger:       logger.Named("attendance"),
	})

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages")
	for msg := range messages {
		if msg.Type != queue.TypeAttendanceChanged {
			continue
		}
		warm(ctx, svc, logger, string(msg.Body))
	}
	logger.Info("worker stopped")
}

// warm recomputes the summary and aggregate of a course from the store and
// overwrites the cached copies.
func warm(ctx context.Context, svc *attendance.Service, logger *zap.Logger, code string) {
	log := logger.With(zap.String("course", code))
	summary, agg, err := svc.RefreshDerivations(ctx, code)
	if err != nil {
		log.Warn("derivation refresh failed", zap.Error(err))
		return
	}
	log.Debug("cache warmed", zap.Int("days", len(summary)), zap.Float64("average", agg.AverageAttendancePercentage))
}
