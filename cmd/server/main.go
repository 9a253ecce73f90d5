// Package main is the entry point for the numera API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"numera/internal/core/tenant"
	"numera/internal/domain/auth"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/cache"
	v1 "numera/internal/infrastructure/http/v1"
	"numera/internal/infrastructure/storage/postgres"
	"numera/internal/infrastructure/storage/postgres/numbering_repo"
	"numera/pkg/logger"
)

const version = "0.1.0"

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting numera server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Tenant registry (shared store, cached lookups) ---
	registry := tenant.NewPostgresRegistry(pool.Unwrap())
	cachedRegistry := cache.NewCachedRegistry(registry,
		getEnvDuration("TENANT_CACHE_TTL", cache.DefaultTenantCacheTTL))

	// --- JWT validation ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Numbering services ---
	configRepo := numbering_repo.NewConfigRepo(txManager)
	counterRepo := numbering_repo.NewCounterRepo(txManager)
	historyRepo := numbering_repo.NewHistoryRepo(txManager)

	numberingService := numbering.NewService(configRepo, counterRepo, historyRepo)

	configAudit, err := postgres.NewConfigAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize config audit store", "error", err)
	}
	adminService := numbering.NewAdminService(configRepo, configAudit)

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		idempotencyStore = postgres.NewIdempotencyStore(txManager,
			getEnvDuration("IDEMPOTENCY_TTL", v1.DefaultIdempotencyTTL))
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		TenantRegistry:   cachedRegistry,
		Logger:           log,
		JWTValidator:     jwtService,
		NumberingService: numberingService,
		AdminService:     adminService,
		ConfigAudit:      configAudit,
		IdempotencyStore: idempotencyStore,
		Version:          version,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
