package handlers

import (
	"github.com/gin-gonic/gin"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/domain/balance"
	"unistock/internal/domain/ledger"
	"unistock/internal/infrastructure/metrics"
)

// BalanceHandler serves on-hand balance reads and the rebuild trigger.
type BalanceHandler struct {
	*BaseHandler
	projector balance.Projector
	rebuilder balance.Rebuilder
	metrics   *metrics.Metrics
}

// NewBalanceHandler creates a new balance handler.
func NewBalanceHandler(base *BaseHandler, projector balance.Projector, rebuilder balance.Rebuilder, m *metrics.Metrics) *BalanceHandler {
	return &BalanceHandler{BaseHandler: base, projector: projector, rebuilder: rebuilder, metrics: m}
}

// ByItem returns all non-zero balances under an item.
func (h *BalanceHandler) ByItem(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	rows, err := h.projector.BalancesByItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"balances": rows})
}

// ByVariant returns per-lot balances for one variant.
func (h *BalanceHandler) ByVariant(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}
	variantID, err := id.Parse(c.Param("variantId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	lots, err := h.projector.BalancesByVariant(c.Request.Context(), itemID, variantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	var total int64
	for _, qty := range lots {
		total += int64(qty)
	}
	h.OK(c, gin.H{"lots": lots, "total": total})
}

// ByKey returns the balance for one exact partition key.
func (h *BalanceHandler) ByKey(c *gin.Context) {
	itemID, err := id.Parse(c.Query("itemId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid item id"))
		return
	}
	variantID, err := id.Parse(c.Query("variantId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid variant id"))
		return
	}
	key := ledger.Key{ItemID: itemID, VariantID: variantID, Lot: ledger.LotKey(c.Query("lot"))}

	qty, err := h.projector.BalanceOf(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"key": key, "onHand": qty})
}

// Rebuild replays the full ledger into the materialized projection.
func (h *BalanceHandler) Rebuild(c *gin.Context) {
	if err := h.rebuilder.Rebuild(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RebuildRuns.Inc()
	}
	h.Success(c, "balances rebuilt")
}

// RegisterRoutes registers balance read routes.
func (h *BalanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ByKey)
	rg.GET("/items/:id", h.ByItem)
	rg.GET("/items/:id/variants/:variantId", h.ByVariant)
}

// RegisterAdminRoutes registers the rebuild trigger.
func (h *BalanceHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/rebuild", h.Rebuild)
}
