// Package cache provides caching infrastructure.
package cache

import (
	"context"
	"sync"
	"time"

	"numera/internal/core/tenant"
)

// CachedRegistry wraps a tenant.Registry with an in-process TTL cache.
// Tenant lookups happen on every request (Tenant middleware), while tenant
// rows change rarely; a short TTL keeps suspension latency bounded without
// a registry roundtrip per request.
type CachedRegistry struct {
	inner tenant.Registry
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	// now is injectable for tests.
	now func() time.Time
}

type cacheEntry struct {
	tenant    *tenant.Tenant
	expiresAt time.Time
}

// DefaultTenantCacheTTL bounds how long a suspended tenant may still pass checks.
const DefaultTenantCacheTTL = 30 * time.Second

// NewCachedRegistry creates a caching wrapper around a Registry.
func NewCachedRegistry(inner tenant.Registry, ttl time.Duration) *CachedRegistry {
	if ttl <= 0 {
		ttl = DefaultTenantCacheTTL
	}
	return &CachedRegistry{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// GetByID returns the tenant from cache or falls through to the registry.
// Negative results (not found) are not cached: a just-created tenant should
// become visible immediately.
func (c *CachedRegistry) GetByID(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expiresAt) {
		return entry.tenant, nil
	}

	t, err := c.inner.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[tenantID] = cacheEntry{tenant: t, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return t, nil
}

// Invalidate drops a single tenant from the cache.
func (c *CachedRegistry) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

// ListActive passes through to the registry (admin path, not cached).
func (c *CachedRegistry) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	return c.inner.ListActive(ctx)
}

// ListAll passes through to the registry.
func (c *CachedRegistry) ListAll(ctx context.Context) ([]*tenant.Tenant, error) {
	return c.inner.ListAll(ctx)
}

// Create passes through to the registry.
func (c *CachedRegistry) Create(ctx context.Context, t *tenant.Tenant) error {
	return c.inner.Create(ctx, t)
}

// UpdateStatusByID updates the row and drops the stale cache entry.
func (c *CachedRegistry) UpdateStatusByID(ctx context.Context, tenantID string, status tenant.Status) error {
	if err := c.inner.UpdateStatusByID(ctx, tenantID, status); err != nil {
		return err
	}
	c.Invalidate(tenantID)
	return nil
}

var _ tenant.Registry = (*CachedRegistry)(nil)
