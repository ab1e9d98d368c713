package catalog

import (
	"context"
	"fmt"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/pkg/logger"
)

// Snapshot carries the pricing of a variant at a point in time. Order lines
// copy these values at creation so later price edits never change existing
// orders.
type Snapshot struct {
	ItemID    id.ID
	VariantID id.ID
	UnitPrice types.MinorUnits
	UnitCost  types.MinorUnits
}

// Service provides catalog operations.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateItem validates and stores a new item.
func (s *Service) CreateItem(ctx context.Context, item *Item) error {
	if err := item.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	logger.Info(ctx, "item created", "item_id", item.ID, "code", item.Code)
	return nil
}

// GetItem returns an item by ID.
func (s *Service) GetItem(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetItem(ctx, itemID)
}

// ListItems returns all items.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx)
}

// CreateVariant validates the parent item and stores a new variant.
func (s *Service) CreateVariant(ctx context.Context, variant *Variant) error {
	if err := variant.Validate(ctx); err != nil {
		return err
	}
	if _, err := s.repo.GetItem(ctx, variant.ItemID); err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return fmt.Errorf("create variant: %w", err)
	}
	logger.Info(ctx, "variant created", "variant_id", variant.ID, "item_id", variant.ItemID, "size", variant.Size)
	return nil
}

// GetVariant returns a variant by ID.
func (s *Service) GetVariant(ctx context.Context, variantID id.ID) (*Variant, error) {
	return s.repo.GetVariant(ctx, variantID)
}

// ListVariantsByItem returns all variants of an item.
func (s *Service) ListVariantsByItem(ctx context.Context, itemID id.ID) ([]Variant, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("check item: %w", err)
	}
	return s.repo.ListVariantsByItem(ctx, itemID)
}

// UpdateVariantPricing changes the price and cost of a variant going forward.
// Existing order lines keep the snapshot taken at their creation.
func (s *Service) UpdateVariantPricing(ctx context.Context, variantID id.ID, unitPrice, unitCost types.MinorUnits) (*Variant, error) {
	if unitPrice.IsNegative() {
		return nil, apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	if unitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}

	variant, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	variant.UnitPrice = unitPrice
	variant.UnitCost = unitCost

	if err := s.repo.UpdateVariantPricing(ctx, variant); err != nil {
		return nil, fmt.Errorf("update variant pricing: %w", err)
	}
	logger.Info(ctx, "variant pricing updated", "variant_id", variant.ID)
	return variant, nil
}

// VariantSnapshot resolves a variant and returns its current pricing,
// verifying the variant belongs to the given item.
func (s *Service) VariantSnapshot(ctx context.Context, itemID, variantID id.ID) (Snapshot, error) {
	variant, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return Snapshot{}, err
	}
	if variant.ItemID != itemID {
		return Snapshot{}, apperror.NewValidation("variant does not belong to item").
			WithDetail("itemId", itemID.String()).
			WithDetail("variantId", variantID.String())
	}
	return Snapshot{
		ItemID:    variant.ItemID,
		VariantID: variant.ID,
		UnitPrice: variant.UnitPrice,
		UnitCost:  variant.UnitCost,
	}, nil
}

// CreateSupplier validates and stores a new supplier.
func (s *Service) CreateSupplier(ctx context.Context, supplier *Supplier) error {
	if err := supplier.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}
	logger.Info(ctx, "supplier created", "supplier_id", supplier.ID, "name", supplier.Name)
	return nil
}

// GetSupplier returns a supplier by ID.
func (s *Service) GetSupplier(ctx context.Context, supplierID id.ID) (*Supplier, error) {
	return s.repo.GetSupplier(ctx, supplierID)
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}
