package handlers

import (
	"github.com/gin-gonic/gin"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/http/v1/dto"
)

// NumberingHandler serves number generation and history endpoints.
type NumberingHandler struct {
	*BaseHandler
	service *numbering.Service
}

// NewNumberingHandler creates the numbering handler.
func NewNumberingHandler(base *BaseHandler, service *numbering.Service) *NumberingHandler {
	return &NumberingHandler{BaseHandler: base, service: service}
}

// Generate handles POST /numbering/generate.
func (h *NumberingHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Generate(c.Request.Context(), h.GetTenantID(c), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.GenerateResponse{
		DocumentNumber: res.DocumentNumber,
		HistoryID:      res.HistoryID.String(),
	})
}

// Preview handles POST /numbering/preview.
func (h *NumberingHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	number, err := h.service.Preview(c.Request.Context(), h.GetTenantID(c), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.PreviewResponse{DocumentNumber: number})
}

// Void handles POST /numbering/history/:id/void.
func (h *NumberingHandler) Void(c *gin.Context) {
	historyID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.VoidRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.Void(c.Request.Context(), h.GetTenantID(c), historyID, numbering.VoidInput{Reason: req.Reason})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromHistory(rec))
}

// Link handles POST /numbering/history/:id/link.
func (h *NumberingHandler) Link(c *gin.Context) {
	historyID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.LinkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.service.LinkToDocument(c.Request.Context(), h.GetTenantID(c), historyID, numbering.LinkInput{
		ReferenceID:   req.ReferenceID,
		ReferenceKind: req.ReferenceKind,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "linked")
}

// GetHistory handles GET /numbering/history/:id.
func (h *NumberingHandler) GetHistory(c *gin.Context) {
	historyID, ok := h.parseID(c)
	if !ok {
		return
	}

	rec, err := h.service.GetHistory(c.Request.Context(), h.GetTenantID(c), historyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromHistory(rec))
}

// ListHistory handles GET /numbering/history.
func (h *NumberingHandler) ListHistory(c *gin.Context) {
	var page dto.PaginationRequest
	if !h.BindQuery(c, &page) {
		return
	}
	page.Defaults()

	documentType := c.Query("documentType")

	recs, total, err := h.service.ListHistory(c.Request.Context(), h.GetTenantID(c), documentType, page.Limit, page.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromHistoryList(recs),
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
}

// ListByReference handles GET /numbering/history/by-reference/:referenceId.
func (h *NumberingHandler) ListByReference(c *gin.Context) {
	referenceID := c.Param("referenceId")
	if referenceID == "" {
		h.Error(c, apperror.NewValidation("reference id is required"))
		return
	}

	recs, err := h.service.ListByReference(c.Request.Context(), h.GetTenantID(c), referenceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromHistoryList(recs),
		TotalCount: int64(len(recs)),
	})
}

func (h *NumberingHandler) parseID(c *gin.Context) (id.ID, bool) {
	historyID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid history id").
			WithDetail("value", c.Param("id")))
		return id.Nil(), false
	}
	return historyID, true
}
