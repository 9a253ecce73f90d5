// Package main is the entry point for the Numera maintenance worker.
// It runs periodic cleanup jobs against the shared database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"numera/internal/infrastructure/storage/postgres"
	"numera/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting numera maintenance worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	idempotencyTTL := getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute)
	idempotencyStore := postgres.NewIdempotencyStore(txManager, idempotencyTTL)

	worker := NewMaintenanceWorker(pool, idempotencyStore, log)
	worker.cleanupInterval = getEnvDuration("CLEANUP_INTERVAL", worker.cleanupInterval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// MaintenanceWorker runs housekeeping jobs on a schedule.
type MaintenanceWorker struct {
	pool            *postgres.Pool
	idempotency     *postgres.IdempotencyStore
	log             *logger.Logger
	cleanupInterval time.Duration
}

func NewMaintenanceWorker(pool *postgres.Pool, idempotency *postgres.IdempotencyStore, log *logger.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		pool:            pool,
		idempotency:     idempotency,
		log:             log.WithComponent("worker"),
		cleanupInterval: time.Hour,
	}
}

// Run blocks until ctx is cancelled.
func (w *MaintenanceWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	// Run once on startup so a restart does not wait a full interval.
	w.cleanupIdempotency(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanupIdempotency(ctx)
			postgres.LogPoolStats(ctx, w.pool.Unwrap())
		}
	}
}

func (w *MaintenanceWorker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up expired idempotency keys", "count", removed)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
