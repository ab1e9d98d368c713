package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/domain/sale"
	"unistock/internal/infrastructure/http/v1/dto"
	"unistock/internal/infrastructure/metrics"
	"unistock/internal/infrastructure/storage/postgres"
	"unistock/pkg/logger"
)

const auditEntitySaleOrder = "sale_order"

// SaleHandler handles the sale order workflow.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
	metrics *metrics.Metrics
	audit   *postgres.AuditService
}

// NewSaleHandler creates a new sale handler. Metrics and audit are optional;
// nil disables them.
func NewSaleHandler(base *BaseHandler, service *sale.Service, m *metrics.Metrics, audit *postgres.AuditService) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service, metrics: m, audit: audit}
}

func (h *SaleHandler) auditLog(c *gin.Context, orderID id.ID, action postgres.AuditAction, changes map[string]any) {
	if h.audit == nil {
		return
	}
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, auditEntitySaleOrder, orderID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed", "entity_id", orderID, "action", string(action), "error", err)
	}
}

func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := dto.ToSaleLineInputs(req.Lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.Create(c.Request.Context(), sale.CreateInput{
		BuyerRef: req.BuyerRef,
		Lines:    lines,
		Notes:    req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.auditLog(c, order.ID, postgres.AuditActionCreate, map[string]any{
		"number":      order.Number,
		"buyerRef":    order.BuyerRef,
		"totalAmount": int64(order.TotalAmount),
		"lines":       len(order.Lines),
	})
	h.CreatedJSON(c, dto.FromSaleOrder(order))
}

func (h *SaleHandler) Get(c *gin.Context) {
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
	h.OK(c, dto.FromSaleOrder(order))
}

func (h *SaleHandler) List(c *gin.Context) {
	filter := sale.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("buyerRef"); raw != "" {
		filter.BuyerRef = &raw
	}
	if raw := c.Query("status"); raw != "" {
		status := sale.Status(raw)
		filter.Status = &status
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

	orders, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]*dto.SaleOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, dto.FromSaleOrder(&orders[i]))
	}
	h.OK(c, gin.H{"orders": out, "count": len(out)})
}

// Pay settles a pending order, debiting stock atomically.
func (h *SaleHandler) Pay(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ConfirmPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.ConfirmPayment(c.Request.Context(), orderID, sale.PaymentMethod(req.PaymentMethod))
	if err != nil {
		if h.metrics != nil && apperror.IsCode(err, apperror.CodeInsufficientStock) {
			h.metrics.SaleConflicts.Inc()
		}
		h.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SaleCommits.Inc()
	}
	h.auditLog(c, order.ID, postgres.AuditActionPay, map[string]any{
		"number":        order.Number,
		"paymentMethod": string(order.PaymentMethod),
	})
	h.OK(c, dto.FromSaleOrder(order))
}

// Cancel closes a pending order without touching stock.
func (h *SaleHandler) Cancel(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.CancelSaleOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.auditLog(c, order.ID, postgres.AuditActionCancel, map[string]any{
		"number": order.Number,
		"reason": req.Reason,
	})
	h.OK(c, dto.FromSaleOrder(order))
}

// Return credits returned uniforms from a paid order back to stock.
func (h *SaleHandler) Return(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.BuyerReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, err := dto.ToSaleLineInputs(req.Lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.ReturnFromBuyer(c.Request.Context(), orderID, lines, req.Reason); err != nil {
		h.Error(c, err)
		return
	}
	h.auditLog(c, orderID, postgres.AuditActionUpdate, map[string]any{
		"operation": "buyer_return",
		"reason":    req.Reason,
		"lines":     len(lines),
	})
	h.Success(c, "return recorded")
}

// History returns the audit trail of an order, newest first.
func (h *SaleHandler) History(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	entries := []postgres.AuditEntry{}
	if h.audit != nil {
		entries, err = h.audit.GetEntityHistory(c.Request.Context(), auditEntitySaleOrder, orderID, h.ParseIntQuery(c, "limit", 50))
		if err != nil {
			h.Error(c, err)
			return
		}
	}
	h.OK(c, gin.H{"history": entries, "count": len(entries)})
}

// RegisterRoutes registers sale order routes.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/pay", h.Pay)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/returns", h.Return)
}
