package dto

import (
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
)

// CreateItemRequest creates a uniform article.
type CreateItemRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// ToEntity converts the request into a domain item.
func (r CreateItemRequest) ToEntity() *catalog.Item {
	return catalog.NewItem(r.Code, r.Name)
}

// CreateVariantRequest creates a size variant. Prices are minor units.
type CreateVariantRequest struct {
	Size      string `json:"size" binding:"required"`
	UnitPrice int64  `json:"unitPrice"`
	UnitCost  int64  `json:"unitCost"`
}

// UpdateVariantPricingRequest changes variant pricing going forward.
type UpdateVariantPricingRequest struct {
	UnitPrice int64 `json:"unitPrice"`
	UnitCost  int64 `json:"unitCost"`
}

// CreateSupplierRequest creates a supplier.
type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact"`
}

// ToEntity converts the request into a domain supplier.
func (r CreateSupplierRequest) ToEntity() *catalog.Supplier {
	s := catalog.NewSupplier(r.Name)
	s.Contact = r.Contact
	return s
}

// MinorUnits converts a raw JSON amount.
func MinorUnits(v int64) types.MinorUnits {
	return types.MinorUnits(v)
}
