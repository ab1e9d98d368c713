package purchase

import (
	"context"
	"sort"
	"sync"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
)

// MemRepository is an in-memory Repository for tests and local development.
type MemRepository struct {
	mu     sync.RWMutex
	orders map[id.ID]*Order
}

// NewMemRepository creates an empty in-memory purchase order repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{orders: make(map[id.ID]*Order)}
}

func clone(o *Order) *Order {
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp
}

func (r *MemRepository) Create(ctx context.Context, order *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return apperror.NewDuplicate("purchase order", "id", order.ID.String())
	}
	r.orders[order.ID] = clone(order)
	return nil
}

func (r *MemRepository) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("purchase order", orderID)
	}
	return clone(order), nil
}

func (r *MemRepository) List(ctx context.Context, filter Filter) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Order
	for _, o := range r.orders {
		if filter.SupplierID != nil && o.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetForUpdate returns the current committed order. Transaction-level
// serialization is provided by the ledger MemStore lock the services run
// transitions under, so no extra row lock is needed here.
func (r *MemRepository) GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return r.GetByID(ctx, orderID)
}

func (r *MemRepository) UpdateStatus(ctx context.Context, order *Order, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[order.ID]
	if !ok {
		return apperror.NewNotFound("purchase order", order.ID)
	}
	if current.Status != from {
		return apperror.NewConflict("purchase order was modified concurrently").
			WithDetail("orderId", order.ID.String()).
			WithDetail("expectedStatus", string(from))
	}
	r.orders[order.ID] = clone(order)
	return nil
}

var _ Repository = (*MemRepository)(nil)
