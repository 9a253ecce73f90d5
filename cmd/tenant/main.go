// Package main provides CLI for tenant management.
// Usage: tenant create --slug acme --name "ACME Corp"
//        tenant list
//        tenant suspend <tenant-id>
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"numera/internal/core/tenant"
	"numera/internal/domain/auth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		createTenant(ctx)
	case "list":
		listTenants(ctx)
	case "suspend":
		suspendTenant(ctx)
	case "activate":
		activateTenant(ctx)
	case "token":
		mintToken()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Numera Tenant Management CLI

Usage:
  tenant <command> [options]

Commands:
  create    Create a new tenant
  list      List all tenants
  suspend   Suspend a tenant
  activate  Activate a suspended tenant
  token     Mint a development JWT for a tenant
  help      Show this help

Environment Variables:
  DATABASE_URL    Connection string (required for database commands)
  JWT_SECRET      Signing secret (required for token)

Examples:
  tenant create --slug acme --name "ACME Corporation"
  tenant create --slug acme --name "ACME Corporation" --api-key <key>
  tenant list
  tenant suspend <tenant-uuid>
  tenant activate <tenant-uuid>
  tenant token --tenant-id <tenant-uuid> --user-id dev --admin`)
}

func getPool(ctx context.Context) *pgxpool.Pool {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Println("Error: DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	return pool
}

func createTenant(ctx context.Context) {
	var slug, name, plan, apiKey string

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--slug":
			if i+1 < len(os.Args) {
				slug = os.Args[i+1]
				i++
			}
		case "--name":
			if i+1 < len(os.Args) {
				name = os.Args[i+1]
				i++
			}
		case "--plan":
			if i+1 < len(os.Args) {
				plan = os.Args[i+1]
				i++
			}
		case "--api-key":
			if i+1 < len(os.Args) {
				apiKey = os.Args[i+1]
				i++
			}
		}
	}

	if plan == "" {
		plan = "standard"
	}

	input := tenant.CreateTenantInput{
		Slug:        slug,
		DisplayName: name,
		Plan:        tenant.Plan(plan),
	}
	if err := input.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: tenant create --slug <slug> --name <name> [--plan standard|premium|enterprise] [--api-key <key>]")
		os.Exit(1)
	}

	// Generate a key when none is supplied so every tenant can
	// authenticate from day one.
	if apiKey == "" {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			fmt.Printf("Error generating API key: %v\n", err)
			os.Exit(1)
		}
		apiKey = hex.EncodeToString(buf)
	}

	keyHash, err := tenant.HashAPIKey(apiKey)
	if err != nil {
		fmt.Printf("Error hashing API key: %v\n", err)
		os.Exit(1)
	}

	pool := getPool(ctx)
	defer pool.Close()

	registry := tenant.NewPostgresRegistry(pool)

	t := &tenant.Tenant{
		Slug:        input.Slug,
		DisplayName: input.DisplayName,
		Status:      tenant.StatusActive,
		Plan:        input.Plan,
		APIKeyHash:  keyHash,
	}

	if err := registry.Create(ctx, t); err != nil {
		fmt.Printf("Error registering tenant: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Tenant '%s' created successfully!\n", input.Slug)
	fmt.Printf("  Tenant ID: %s\n", t.ID)
	fmt.Printf("  Status: active\n")
	fmt.Printf("  Plan: %s\n", plan)
	fmt.Printf("  API Key: %s (store it now, only the hash is kept)\n", apiKey)
}

func listTenants(ctx context.Context) {
	pool := getPool(ctx)
	defer pool.Close()

	registry := tenant.NewPostgresRegistry(pool)
	tenants, err := registry.ListAll(ctx)
	if err != nil {
		fmt.Printf("Error listing tenants: %v\n", err)
		os.Exit(1)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found")
		return
	}

	fmt.Printf("%-36s %-20s %-30s %-12s %-10s\n", "TENANT_ID", "SLUG", "NAME", "PLAN", "STATUS")
	fmt.Println(strings.Repeat("-", 112))

	for _, t := range tenants {
		fmt.Printf("%-36s %-20s %-30s %-12s %-10s\n",
			truncate(t.ID, 36),
			truncate(t.Slug, 20),
			truncate(t.DisplayName, 30),
			t.Plan,
			t.Status,
		)
	}
}

func suspendTenant(ctx context.Context) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tenant suspend <tenant-uuid>")
		os.Exit(1)
	}

	tenantID := os.Args[2]

	pool := getPool(ctx)
	defer pool.Close()

	registry := tenant.NewPostgresRegistry(pool)
	if err := registry.UpdateStatusByID(ctx, tenantID, tenant.StatusSuspended); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Tenant '%s' suspended\n", tenantID)
}

func activateTenant(ctx context.Context) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tenant activate <tenant-uuid>")
		os.Exit(1)
	}

	tenantID := os.Args[2]

	pool := getPool(ctx)
	defer pool.Close()

	registry := tenant.NewPostgresRegistry(pool)
	if err := registry.UpdateStatusByID(ctx, tenantID, tenant.StatusActive); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Tenant '%s' activated\n", tenantID)
}

// mintToken signs a short-lived development JWT. Token issuance in
// production belongs to the identity provider; this exists so local
// callers can exercise the API without one.
func mintToken() {
	var tenantID, userID, perms string
	var isAdmin bool

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--tenant-id":
			if i+1 < len(os.Args) {
				tenantID = os.Args[i+1]
				i++
			}
		case "--user-id":
			if i+1 < len(os.Args) {
				userID = os.Args[i+1]
				i++
			}
		case "--permissions":
			if i+1 < len(os.Args) {
				perms = os.Args[i+1]
				i++
			}
		case "--admin":
			isAdmin = true
		}
	}

	if tenantID == "" {
		fmt.Println("Error: --tenant-id is required")
		fmt.Println("Usage: tenant token --tenant-id <uuid> [--user-id <id>] [--permissions a,b,c] [--admin]")
		os.Exit(1)
	}
	if userID == "" {
		userID = "dev"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("Error: JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	var permissions []string
	if perms != "" {
		permissions = strings.Split(perms, ",")
	}

	svc := auth.NewJWTService(auth.DefaultJWTConfig(secret))
	token, expiresAt, err := svc.GenerateAccessToken(userID, tenantID, "", nil, permissions, nil, isAdmin)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Token (expires %s):\n%s\n", expiresAt.Format("2006-01-02 15:04:05 MST"), token)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
