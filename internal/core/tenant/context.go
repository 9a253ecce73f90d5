package tenant

import (
	"context"
)

// Context keys for tenant-related values.
type ctxKey int

const (
	tenantKey ctxKey = iota
)

// WithTenant stores tenant info in context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant retrieves tenant from context.
func GetTenant(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantKey).(*Tenant)
	return t
}

// GetTenantID returns tenant ID or empty string.
func GetTenantID(ctx context.Context) string {
	if t := GetTenant(ctx); t != nil {
		return t.ID
	}
	return ""
}

// MustGetTenantID returns tenant ID or panics.
// Use in places where a missing tenant is a programming error
// (handler registered without the Tenant middleware).
func MustGetTenantID(ctx context.Context) string {
	id := GetTenantID(ctx)
	if id == "" {
		panic("tenant not in context")
	}
	return id
}
