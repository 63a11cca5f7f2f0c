package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghostreact/markapp/internal/cache"
	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/database"
	"github.com/ghostreact/markapp/internal/log"
	"github.com/ghostreact/markapp/internal/queue"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/storage"
	"github.com/ghostreact/markapp/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	processor := tasks.NewProcessor(
		repository.NewSessionRepository(dbPool),
		repository.NewAttendanceRepository(dbPool),
		objectStore,
		cfg.Worker.SessionRetention,
		logger,
	)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-runCtx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
