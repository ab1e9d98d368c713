package catalog

import (
	"context"

	"unistock/internal/core/id"
)

// Repository defines persistence for catalog reference data.
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, itemID id.ID) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)

	CreateVariant(ctx context.Context, variant *Variant) error
	GetVariant(ctx context.Context, variantID id.ID) (*Variant, error)
	ListVariantsByItem(ctx context.Context, itemID id.ID) ([]Variant, error)
	UpdateVariantPricing(ctx context.Context, variant *Variant) error

	CreateSupplier(ctx context.Context, supplier *Supplier) error
	GetSupplier(ctx context.Context, supplierID id.ID) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
}
