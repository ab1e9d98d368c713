package handlers

import (
	"github.com/gin-gonic/gin"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
	"unistock/internal/infrastructure/http/v1/dto"
)

// CatalogHandler handles items, variants and suppliers.
type CatalogHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, service *catalog.Service) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, service: service}
}

func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item := req.ToEntity()
	if err := h.service.CreateItem(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedJSON(c, item)
}

func (h *CatalogHandler) GetItem(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

func (h *CatalogHandler) ListItems(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.CreateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	variant := catalog.NewVariant(itemID, req.Size, types.MinorUnits(req.UnitPrice), types.MinorUnits(req.UnitCost))
	if err := h.service.CreateVariant(c.Request.Context(), variant); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedJSON(c, variant)
}

func (h *CatalogHandler) ListVariants(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	variants, err := h.service.ListVariantsByItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, variants)
}

func (h *CatalogHandler) UpdateVariantPricing(c *gin.Context) {
	variantID, err := id.Parse(c.Param("variantId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateVariantPricingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	variant, err := h.service.UpdateVariantPricing(c.Request.Context(), variantID,
		types.MinorUnits(req.UnitPrice), types.MinorUnits(req.UnitCost))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, variant)
}

func (h *CatalogHandler) CreateSupplier(c *gin.Context) {
	var req dto.CreateSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	supplier := req.ToEntity()
	if err := h.service.CreateSupplier(c.Request.Context(), supplier); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedJSON(c, supplier)
}

func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.service.ListSuppliers(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, suppliers)
}

// RegisterRoutes registers catalog routes.
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/items")
	items.GET("", h.ListItems)
	items.POST("", h.CreateItem)
	items.GET("/:id", h.GetItem)
	items.GET("/:id/variants", h.ListVariants)
	items.POST("/:id/variants", h.CreateVariant)

	rg.PUT("/variants/:variantId/pricing", h.UpdateVariantPricing)

	suppliers := rg.Group("/suppliers")
	suppliers.GET("", h.ListSuppliers)
	suppliers.POST("", h.CreateSupplier)
}
