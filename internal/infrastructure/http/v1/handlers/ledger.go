package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/ledger"
	"unistock/internal/infrastructure/http/v1/dto"
	"unistock/pkg/export"
)

// LedgerHandler serves the audit/read side of the stock ledger plus the
// manual write paths (opening stock, adjustments).
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

func (h *LedgerHandler) buildFilter(c *gin.Context) ledger.Filter {
	filter := ledger.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("itemId"); raw != "" {
		if parsed, err := id.Parse(raw); err == nil {
			filter.ItemID = &parsed
		}
	}
	if raw := c.Query("variantId"); raw != "" {
		if parsed, err := id.Parse(raw); err == nil {
			filter.VariantID = &parsed
		}
	}
	if raw := c.Query("lot"); raw != "" {
		lot := ledger.LotKey(raw)
		filter.Lot = &lot
	}
	if raw := c.Query("refId"); raw != "" {
		if parsed, err := id.Parse(raw); err == nil {
			filter.RefID = &parsed
		}
	}
	if raw := c.Query("kind"); raw != "" {
		filter.Kinds = []ledger.Kind{ledger.Kind(raw)}
	}
	if raw := c.Query("from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.FromDate = &parsed
		}
	}
	if raw := c.Query("to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.ToDate = &parsed
		}
	}
	return filter
}

// List returns ledger entries matching the query filter.
func (h *LedgerHandler) List(c *gin.Context) {
	entries, err := h.service.Query(c.Request.Context(), h.buildFilter(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"entries": entries, "count": len(entries)})
}

// Export streams matching entries as an XLSX workbook.
func (h *LedgerHandler) Export(c *gin.Context) {
	filter := h.buildFilter(c)
	filter.Limit = 0
	filter.Offset = 0

	entries, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	c.Status(http.StatusOK)
	if err := export.WriteLedgerXLSX(c.Writer, entries); err != nil {
		h.Error(c, apperror.NewInternal(err))
	}
}

// OpeningStock seeds pre-system stock.
func (h *LedgerHandler) OpeningStock(c *gin.Context) {
	var req dto.OpeningStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid item id"))
		return
	}
	variantID, err := id.Parse(req.VariantID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid variant id"))
		return
	}

	if err := h.service.RecordOpeningStock(c.Request.Context(), itemID, variantID, types.Quantity(req.Qty), req.Notes); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "opening stock recorded")
}

// Adjust records a manual correction.
func (h *LedgerHandler) Adjust(c *gin.Context) {
	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid item id"))
		return
	}
	variantID, err := id.Parse(req.VariantID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid variant id"))
		return
	}

	key := ledger.Key{ItemID: itemID, VariantID: variantID, Lot: ledger.LotKey(req.Lot)}
	if err := h.service.RecordAdjustment(c.Request.Context(), key, types.Quantity(req.Delta), req.Notes); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "adjustment recorded")
}

// RegisterRoutes registers ledger routes.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.POST("/opening-stock", h.OpeningStock)
	rg.POST("/adjustments", h.Adjust)
}
