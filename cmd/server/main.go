// Package main is the entrypoint for the reel-to-recipe API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vixomaix/reel-to-recipe-api/internal/ai"
	"github.com/vixomaix/reel-to-recipe-api/internal/api"
	"github.com/vixomaix/reel-to-recipe-api/internal/api/handler"
	"github.com/vixomaix/reel-to-recipe-api/internal/cache"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/executors/aiextract"
	"github.com/vixomaix/reel-to-recipe-api/internal/executors/download"
	"github.com/vixomaix/reel-to-recipe-api/internal/executors/mediaextract"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/internal/queue"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Missing .env is fine; containers inject real env vars.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache and queue
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	workQueue, err := queue.NewRedisQueue(cfg.Redis.URL, cfg.Pipeline.VisibilityTimeout)
	if err != nil {
		return fmt.Errorf("create redis queue: %w", err)
	}
	defer workQueue.Close()

	// 5. Create AI provider
	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 6. Create store
	pgStore := store.NewPostgresStore(pool)

	// 7. Start the pipeline coordinator
	coordinator := pipeline.NewCoordinator(pgStore, workQueue,
		[]pipeline.Executor{
			download.New(cfg.Media, cfg.Pipeline.DataDir, slog.Default()),
			mediaextract.New(cfg.Media, slog.Default()),
			aiextract.New(aiProvider, cfg.AI.InferenceTimeout, slog.Default()),
		},
		pipeline.Config{
			MaxAttempts: cfg.Pipeline.MaxAttempts,
			BackoffBase: cfg.Pipeline.BackoffBase,
			BackoffCap:  cfg.Pipeline.BackoffCap,
			DequeueWait: cfg.Pipeline.DequeueWait,
			Workers: map[models.Stage]int{
				models.StageDownload:     cfg.Pipeline.DownloadWorkers,
				models.StageMediaExtract: cfg.Pipeline.MediaWorkers,
				models.StageAIExtract:    cfg.Pipeline.AIWorkers,
			},
		},
		slog.Default(), redisCache)

	coordinatorDone := make(chan struct{})
	go func() {
		defer close(coordinatorDone)
		coordinator.Run(ctx)
	}()
	slog.Info("pipeline coordinator started")

	// 8. Build router with dependencies
	service := pipeline.NewService(pgStore, workQueue, slog.Default(), redisCache)
	reader := pipeline.NewReader(pgStore, slog.Default(), redisCache)

	deps := api.Dependencies{
		RateLimiter: redisCache,

		HealthHandler:      handler.NewHealthHandler(pgStore, redisCache),
		ExtractHandler:     handler.NewExtractHandler(service),
		GetJobHandler:      handler.NewGetJobHandler(reader),
		ListJobsHandler:    handler.NewListJobsHandler(reader),
		CancelJobHandler:   handler.NewCancelJobHandler(service),
		GetRecipeHandler:   handler.NewGetRecipeHandler(reader),
		ListRecipesHandler: handler.NewListRecipesHandler(reader),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Workers stop at their next dequeue once ctx is cancelled; in-flight
	// stage work that didn't finish stays on the queue for the next boot.
	<-coordinatorDone

	slog.Info("server stopped gracefully")
	return nil
}
