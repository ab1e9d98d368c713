package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/domain/purchase"
	"unistock/internal/infrastructure/http/v1/dto"
	"unistock/internal/infrastructure/metrics"
	"unistock/internal/infrastructure/storage/postgres"
	"unistock/pkg/logger"
)

const auditEntityPurchaseOrder = "purchase_order"

// PurchaseHandler handles the purchase order workflow.
type PurchaseHandler struct {
	*BaseHandler
	service *purchase.Service
	metrics *metrics.Metrics
	audit   *postgres.AuditService
}

// NewPurchaseHandler creates a new purchase handler. Metrics and audit are
// optional; nil disables them.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service, m *metrics.Metrics, audit *postgres.AuditService) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service, metrics: m, audit: audit}
}

// auditLog records the transition outside the document transaction; a failed
// audit write must not fail the already committed operation.
func (h *PurchaseHandler) auditLog(c *gin.Context, orderID id.ID, action postgres.AuditAction, changes map[string]any) {
	if h.audit == nil {
		return
	}
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, auditEntityPurchaseOrder, orderID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed", "entity_id", orderID, "action", string(action), "error", err)
	}
}

func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	supplierID, err := id.Parse(req.SupplierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid supplier id"))
		return
	}
	lines, err := dto.ToPurchaseLineInputs(req.Lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	input := purchase.CreateInput{
		SupplierID: supplierID,
		Lines:      lines,
		Notes:      req.Notes,
	}
	if req.OrderDate != nil {
		input.OrderDate = *req.OrderDate
	} else {
		input.OrderDate = time.Now()
	}

	order, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.auditLog(c, order.ID, postgres.AuditActionCreate, map[string]any{
		"number":     order.Number,
		"supplierId": order.SupplierID.String(),
		"totalCost":  int64(order.TotalCost),
		"lines":      len(order.Lines),
	})
	h.CreatedJSON(c, dto.FromPurchaseOrder(order))
}

func (h *PurchaseHandler) Get(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(order))
}

func (h *PurchaseHandler) List(c *gin.Context) {
	filter := purchase.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("supplierId"); raw != "" {
		if parsed, err := id.Parse(raw); err == nil {
			filter.SupplierID = &parsed
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := purchase.Status(raw)
		filter.Status = &status
	}

	orders, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]*dto.PurchaseOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, dto.FromPurchaseOrder(&orders[i]))
	}
	h.OK(c, gin.H{"orders": out, "count": len(out)})
}

// Post posts a draft order, crediting stock per line.
func (h *PurchaseHandler) Post(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	order, err := h.service.Post(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PurchasePosts.Inc()
	}
	h.auditLog(c, order.ID, postgres.AuditActionPost, map[string]any{"number": order.Number})
	h.OK(c, dto.FromPurchaseOrder(order))
}

// Void reverses a posted order if its stock is still intact.
func (h *PurchaseHandler) Void(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.VoidPurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Void(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PurchaseVoids.Inc()
	}
	h.auditLog(c, order.ID, postgres.AuditActionVoid, map[string]any{
		"number": order.Number,
		"reason": req.Reason,
	})
	h.OK(c, dto.FromPurchaseOrder(order))
}

// Return sends stock from a posted order back to the supplier.
func (h *PurchaseHandler) Return(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.SupplierReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, err := dto.ToPurchaseLineInputs(req.Lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.ReturnToSupplier(c.Request.Context(), orderID, lines, req.Reason); err != nil {
		h.Error(c, err)
		return
	}
	h.auditLog(c, orderID, postgres.AuditActionUpdate, map[string]any{
		"operation": "supplier_return",
		"reason":    req.Reason,
		"lines":     len(lines),
	})
	h.Success(c, "return recorded")
}

// History returns the audit trail of an order, newest first.
func (h *PurchaseHandler) History(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	entries := []postgres.AuditEntry{}
	if h.audit != nil {
		entries, err = h.audit.GetEntityHistory(c.Request.Context(), auditEntityPurchaseOrder, orderID, h.ParseIntQuery(c, "limit", 50))
		if err != nil {
			h.Error(c, err)
			return
		}
	}
	h.OK(c, gin.H{"history": entries, "count": len(entries)})
}

// RegisterRoutes registers purchase order routes.
func (h *PurchaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/post", h.Post)
	rg.POST("/:id/void", h.Void)
	rg.POST("/:id/returns", h.Return)
}
