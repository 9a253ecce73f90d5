// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"numera/internal/core/tenant"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/http/v1/handlers"
	"numera/internal/infrastructure/http/v1/middleware"
	"numera/internal/infrastructure/storage/postgres"
	"numera/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the shared database pool (for health checks)
	Pool *postgres.Pool

	// TenantRegistry resolves tenants from the X-Tenant-ID header
	TenantRegistry tenant.Registry

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// NumberingService handles generate/preview/void/link
	NumberingService *numbering.Service

	// AdminService handles config administration
	AdminService *numbering.AdminService

	// ConfigAudit serves the config change trail (optional)
	ConfigAudit *postgres.ConfigAuditStore

	// IdempotencyStore enables replay protection on mutating routes (optional)
	IdempotencyStore *postgres.IdempotencyStore

	// Version reported by /health/info
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1: tenant resolution first, then JWT, then user context.
	api := router.Group("/api/v1")
	api.Use(middleware.Tenant(cfg.TenantRegistry))
	api.Use(middleware.Auth(cfg.JWTValidator))
	api.Use(middleware.UserContext())

	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	baseHandler := handlers.NewBaseHandler()
	registerNumberingRoutes(api, baseHandler, cfg)
	registerConfigRoutes(api, baseHandler, cfg)

	return router
}

// registerNumberingRoutes wires generation and history endpoints.
func registerNumberingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewNumberingHandler(base, cfg.NumberingService)

	group := rg.Group("/numbering")
	{
		group.POST("/generate", middleware.RequirePermission("numbering:generate"), handler.Generate)
		group.POST("/preview", middleware.RequirePermission("numbering:read"), handler.Preview)

		history := group.Group("/history")
		{
			history.GET("", middleware.RequirePermission("numbering:read"), handler.ListHistory)
			history.GET("/by-reference/:referenceId", middleware.RequirePermission("numbering:read"), handler.ListByReference)
			history.GET("/:id", middleware.RequirePermission("numbering:read"), handler.GetHistory)
			history.POST("/:id/void", middleware.RequirePermission("numbering:void"), handler.Void)
			history.POST("/:id/link", middleware.RequirePermission("numbering:generate"), handler.Link)
		}
	}
}

// registerConfigRoutes wires config administration endpoints.
func registerConfigRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewConfigHandler(base, cfg.AdminService, cfg.ConfigAudit)

	configs := rg.Group("/numbering/configs")
	{
		configs.POST("", middleware.RequirePermission("numbering:config:write"), handler.Create)
		configs.GET("", middleware.RequirePermission("numbering:config:read"), handler.List)
		configs.GET("/:id", middleware.RequirePermission("numbering:config:read"), handler.Get)
		configs.PUT("/:id", middleware.RequirePermission("numbering:config:write"), handler.Update)
		configs.POST("/:id/deactivate", middleware.RequirePermission("numbering:config:write"), handler.Deactivate)
		configs.GET("/:id/audit", middleware.RequirePermission("numbering:config:read"), handler.AuditTrail)
	}
}

// DefaultIdempotencyTTL is how long replayable responses are retained.
const DefaultIdempotencyTTL = 10 * time.Minute
