// Package tenant provides tenant metadata for the shared-store multi-tenant model.
// Every row in the numbering store is partitioned by tenant_id; there is no
// cross-tenant visibility anywhere in the data model.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Status represents tenant lifecycle state.
type Status string

const (
	// StatusActive - tenant can accept requests
	StatusActive Status = "active"

	// StatusSuspended - tenant is temporarily disabled (e.g., payment issues)
	StatusSuspended Status = "suspended"

	// StatusDeleted - tenant is marked for deletion
	StatusDeleted Status = "deleted"
)

// Plan represents tenant subscription plan.
type Plan string

const (
	PlanStandard   Plan = "standard"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Tenant represents a tenant record from the tenants registry table.
type Tenant struct {
	ID          string         `db:"id"`
	Slug        string         `db:"slug"`         // URL-safe identifier
	DisplayName string         `db:"display_name"` // Human-readable name
	Status      Status         `db:"status"`
	Plan        Plan           `db:"plan"`
	APIKeyHash  []byte         `db:"api_key_hash"` // bcrypt hash of the service API key
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	Settings    map[string]any `db:"settings"` // Additional settings (JSONB)
}

// IsActive returns true if tenant can accept requests.
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// VerifyAPIKey checks a presented service API key against the stored hash.
// Tenants without an API key configured accept any key (JWT is still required).
func (t *Tenant) VerifyAPIKey(key string) bool {
	if len(t.APIKeyHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(t.APIKeyHash, []byte(key)) == nil
}

// HashAPIKey produces a bcrypt hash for storing a new service API key.
func HashAPIKey(key string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
}

// CreateTenantInput contains data for creating a new tenant.
type CreateTenantInput struct {
	Slug        string
	DisplayName string
	Plan        Plan
	APIKey      string // Optional, hashed before storage
}

// Validate checks if input is valid.
func (i *CreateTenantInput) Validate() error {
	if i.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	i.Slug = strings.ToLower(i.Slug)
	if len(i.Slug) > 63 {
		return fmt.Errorf("slug must be 63 characters or less")
	}
	if i.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	return nil
}
