package handlers

import (
	"github.com/gin-gonic/gin"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/http/v1/dto"
	"numera/internal/infrastructure/storage/postgres"
)

// ConfigHandler serves numbering configuration administration.
type ConfigHandler struct {
	*BaseHandler
	admin *numbering.AdminService
	audit *postgres.ConfigAuditStore
}

// NewConfigHandler creates the config handler. audit may be nil.
func NewConfigHandler(base *BaseHandler, admin *numbering.AdminService, audit *postgres.ConfigAuditStore) *ConfigHandler {
	return &ConfigHandler{BaseHandler: base, admin: admin, audit: audit}
}

// Create handles POST /numbering/configs.
func (h *ConfigHandler) Create(c *gin.Context) {
	var req dto.CreateConfigRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cfg := req.ToConfig(h.GetTenantID(c))
	if err := h.admin.CreateConfig(c.Request.Context(), cfg); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromConfig(cfg))
}

// Get handles GET /numbering/configs/:id.
func (h *ConfigHandler) Get(c *gin.Context) {
	configID, ok := h.parseID(c)
	if !ok {
		return
	}

	cfg, err := h.admin.GetConfig(c.Request.Context(), h.GetTenantID(c), configID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromConfig(cfg))
}

// List handles GET /numbering/configs.
func (h *ConfigHandler) List(c *gin.Context) {
	var page dto.PaginationRequest
	if !h.BindQuery(c, &page) {
		return
	}
	page.Defaults()

	cfgs, total, err := h.admin.ListConfigs(c.Request.Context(), h.GetTenantID(c), page.Limit, page.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromConfigList(cfgs),
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
}

// Update handles PUT /numbering/configs/:id.
func (h *ConfigHandler) Update(c *gin.Context) {
	configID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateConfigRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cfg, err := h.admin.UpdateConfig(c.Request.Context(), h.GetTenantID(c), configID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromConfig(cfg))
}

// Deactivate handles POST /numbering/configs/:id/deactivate.
func (h *ConfigHandler) Deactivate(c *gin.Context) {
	configID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.DeactivateConfigRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cfg, err := h.admin.DeactivateConfig(c.Request.Context(), h.GetTenantID(c), configID, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromConfig(cfg))
}

// AuditTrail handles GET /numbering/configs/:id/audit.
func (h *ConfigHandler) AuditTrail(c *gin.Context) {
	if h.audit == nil {
		h.Error(c, apperror.NewNotFound("audit", "disabled"))
		return
	}

	configID, ok := h.parseID(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.GetConfigHistory(c.Request.Context(), h.GetTenantID(c), configID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      entries,
		TotalCount: int64(len(entries)),
	})
}

func (h *ConfigHandler) parseID(c *gin.Context) (id.ID, bool) {
	configID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid config id").
			WithDetail("value", c.Param("id")))
		return id.Nil(), false
	}
	return configID, true
}
