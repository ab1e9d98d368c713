// Package catalog provides reference data for the uniform shop: items,
// their size variants, and the suppliers stock is purchased from. The
// ledger core only reads it; edits are administrative.
package catalog

import (
	"context"
	"time"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
)

// Item is a uniform article (shirt, skirt, blazer...).
type Item struct {
	ID        id.ID     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewItem creates an item with generated ID.
func NewItem(code, name string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements self-validation.
func (i *Item) Validate(ctx context.Context) error {
	if i.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// Variant is an item in a specific size, carrying the price and cost that
// order lines snapshot at creation time.
type Variant struct {
	ID     id.ID `db:"id" json:"id"`
	ItemID id.ID `db:"item_id" json:"itemId"`

	// Size label, e.g. "S", "M", "38".
	Size string `db:"size" json:"size"`

	// UnitPrice is the selling price, UnitCost the purchase cost. Minor units.
	UnitPrice types.MinorUnits `db:"unit_price" json:"unitPrice"`
	UnitCost  types.MinorUnits `db:"unit_cost" json:"unitCost"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewVariant creates a variant with generated ID.
func NewVariant(itemID id.ID, size string, unitPrice, unitCost types.MinorUnits) *Variant {
	now := time.Now().UTC()
	return &Variant{
		ID:        id.New(),
		ItemID:    itemID,
		Size:      size,
		UnitPrice: unitPrice,
		UnitCost:  unitCost,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements self-validation.
func (v *Variant) Validate(ctx context.Context) error {
	if id.IsNil(v.ItemID) {
		return apperror.NewValidation("item is required").WithDetail("field", "itemId")
	}
	if v.Size == "" {
		return apperror.NewValidation("size is required").WithDetail("field", "size")
	}
	if v.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	if v.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}
	return nil
}

// Supplier identifies a provenance lot for purchased stock.
type Supplier struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Contact   string    `db:"contact" json:"contact,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewSupplier creates a supplier with generated ID.
func NewSupplier(name string) *Supplier {
	now := time.Now().UTC()
	return &Supplier{
		ID:        id.New(),
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements self-validation.
func (s *Supplier) Validate(ctx context.Context) error {
	if s.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}
