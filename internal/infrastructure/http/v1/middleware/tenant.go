package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"numera/internal/core/apperror"
	"numera/internal/core/tenant"
	"numera/pkg/logger"
)

const (
	// TenantHeader is the HTTP header for tenant identification.
	TenantHeader = "X-Tenant-ID"

	// APIKeyHeader carries the tenant API key for service-to-service calls.
	APIKeyHeader = "X-API-Key"
)

// Tenant middleware resolves the tenant from the X-Tenant-ID header against
// the registry and injects it into the request context. All data access
// below this point is scoped by the resolved tenant id.
//
// When the tenant has an API key configured, the X-API-Key header must
// match it. Tenants without a key (trusted internal deployments) skip the
// check.
func Tenant(registry tenant.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		rawTenantID := c.GetHeader(TenantHeader)
		if rawTenantID == "" {
			_ = c.Error(
				apperror.NewValidation("tenant is required").
					WithDetail("header", TenantHeader),
			)
			c.Abort()
			return
		}

		tenantUUID, err := uuid.Parse(rawTenantID)
		if err != nil {
			_ = c.Error(
				apperror.NewValidation("invalid tenant id").
					WithDetail("header", TenantHeader).
					WithDetail("value", rawTenantID),
			)
			c.Abort()
			return
		}
		tenantID := tenantUUID.String()

		t, err := registry.GetByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				_ = c.Error(apperror.NewNotFound("tenant", tenantID))
			} else {
				logger.Warn(ctx, "tenant lookup failed", "tenant_id", tenantID, "error", err)
				_ = c.Error(apperror.NewInternal(err).WithDetail("tenant_id", tenantID))
			}
			c.Abort()
			return
		}

		if !t.IsActive() {
			_ = c.Error(
				apperror.NewForbidden("tenant is not active").
					WithDetail("tenant_id", tenantID).
					WithDetail("status", string(t.Status)),
			)
			c.Abort()
			return
		}

		if len(t.APIKeyHash) > 0 && !t.VerifyAPIKey(c.GetHeader(APIKeyHeader)) {
			_ = c.Error(apperror.NewUnauthorized("invalid api key"))
			c.Abort()
			return
		}

		ctx = tenant.WithTenant(ctx, t)
		c.Request = c.Request.WithContext(ctx)
		c.Set("tenant_id", t.ID)

		c.Next()
	}
}
