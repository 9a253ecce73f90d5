// Package main provides a CLI tool for seeding a demo tenant and sample
// numbering configurations for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"numera/internal/core/security"
	"numera/internal/core/tenant"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/storage/postgres"
	"numera/internal/infrastructure/storage/postgres/numbering_repo"
	"numera/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	t, err := seedDemoTenant(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed demo tenant", "error", err)
	}

	if err := seedDemoConfigs(ctx, pool, t, log); err != nil {
		log.Fatalw("failed to seed demo configs", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedDemoTenant(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (*tenant.Tenant, error) {
	slug := os.Getenv("SEED_TENANT_SLUG")
	if slug == "" {
		slug = "demo"
	}

	registry := tenant.NewPostgresRegistry(pool.Unwrap())

	// Reuse an existing demo tenant across runs.
	var existingID string
	err := pool.QueryRow(ctx,
		`SELECT id FROM tenants WHERE slug = $1`, slug,
	).Scan(&existingID)
	if err == nil {
		log.Infow("demo tenant already exists", "slug", slug, "tenant_id", existingID)
		return registry.GetByID(ctx, existingID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check tenant exists: %w", err)
	}

	apiKey := os.Getenv("SEED_TENANT_API_KEY")
	if apiKey == "" {
		apiKey = "demo-api-key"
	}
	keyHash, err := tenant.HashAPIKey(apiKey)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	t := &tenant.Tenant{
		Slug:        slug,
		DisplayName: "Demo Warehouse Co",
		Status:      tenant.StatusActive,
		Plan:        tenant.PlanStandard,
		APIKeyHash:  keyHash,
	}
	if err := registry.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	log.Infow("demo tenant created", "slug", slug, "tenant_id", t.ID, "api_key", apiKey)
	return t, nil
}

func seedDemoConfigs(ctx context.Context, pool *postgres.Pool, t *tenant.Tenant, log *logger.Logger) error {
	txManager := postgres.NewTxManager(pool)
	configRepo := numbering_repo.NewConfigRepo(txManager)
	admin := numbering.NewAdminService(configRepo, nil)

	ctx = security.WithUserID(ctx, "seed")

	// Reruns leave existing configs alone.
	if _, total, err := admin.ListConfigs(ctx, t.ID, 1, 0); err != nil {
		return fmt.Errorf("check existing configs: %w", err)
	} else if total > 0 {
		log.Infow("configs already seeded", "tenant_id", t.ID, "count", total)
		return nil
	}

	warehouse := "Warehouse"
	channel := "Channel"

	po := numbering.NewNumberingConfig(t.ID, "PO", "Purchase Order", numbering.PeriodMonthShort)
	po.Prefix1Label = &warehouse
	po.Prefix1Required = true
	po.Prefix2Label = &channel
	po.SequenceLength = 4

	inv := numbering.NewNumberingConfig(t.ID, "INV", "Invoice", numbering.PeriodMonthLong)

	ship := numbering.NewNumberingConfig(t.ID, "SHP", "Shipment", numbering.PeriodWeekShort)
	ship.Prefix1Label = &warehouse

	// All or nothing so a failed run leaves no partial config set behind.
	err := txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, cfg := range []*numbering.NumberingConfig{po, inv, ship} {
			if err := admin.CreateConfig(ctx, cfg); err != nil {
				return err
			}
			log.Infow("config created", "document_type", cfg.DocumentType, "config_id", cfg.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed configs: %w", err)
	}
	return nil
}
