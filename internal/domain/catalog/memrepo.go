package catalog

import (
	"context"
	"sort"
	"sync"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
)

// MemRepository is an in-memory Repository for tests and local development.
type MemRepository struct {
	mu        sync.RWMutex
	items     map[id.ID]Item
	variants  map[id.ID]Variant
	suppliers map[id.ID]Supplier
}

// NewMemRepository creates an empty in-memory catalog repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		items:     make(map[id.ID]Item),
		variants:  make(map[id.ID]Variant),
		suppliers: make(map[id.ID]Supplier),
	}
}

func (r *MemRepository) CreateItem(ctx context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return apperror.NewDuplicate("item", "id", item.ID.String())
	}
	r.items[item.ID] = *item
	return nil
}

func (r *MemRepository) GetItem(ctx context.Context, itemID id.ID) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID)
	}
	return &item, nil
}

func (r *MemRepository) ListItems(ctx context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemRepository) CreateVariant(ctx context.Context, variant *Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.variants[variant.ID]; exists {
		return apperror.NewDuplicate("variant", "id", variant.ID.String())
	}
	r.variants[variant.ID] = *variant
	return nil
}

func (r *MemRepository) GetVariant(ctx context.Context, variantID id.ID) (*Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	variant, ok := r.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID)
	}
	return &variant, nil
}

func (r *MemRepository) ListVariantsByItem(ctx context.Context, itemID id.ID) ([]Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Variant
	for _, v := range r.variants {
		if v.ItemID == itemID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Size < out[j].Size })
	return out, nil
}

func (r *MemRepository) UpdateVariantPricing(ctx context.Context, variant *Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.variants[variant.ID]; !ok {
		return apperror.NewNotFound("variant", variant.ID)
	}
	r.variants[variant.ID] = *variant
	return nil
}

func (r *MemRepository) CreateSupplier(ctx context.Context, supplier *Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.suppliers[supplier.ID]; exists {
		return apperror.NewDuplicate("supplier", "id", supplier.ID.String())
	}
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *MemRepository) GetSupplier(ctx context.Context, supplierID id.ID) (*Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	supplier, ok := r.suppliers[supplierID]
	if !ok {
		return nil, apperror.NewNotFound("supplier", supplierID)
	}
	return &supplier, nil
}

func (r *MemRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ Repository = (*MemRepository)(nil)
