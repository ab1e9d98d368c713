package purchase

import (
	"context"

	"unistock/internal/core/id"
)

// Filter narrows purchase order listings.
type Filter struct {
	SupplierID *id.ID
	Status     *Status
	Limit      int
	Offset     int
}

// Repository defines persistence for purchase orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)

	// GetForUpdate returns the order with its row locked until the
	// enclosing transaction ends. Every lifecycle transition reads through
	// this, so a double post or a post/void race serializes and the loser
	// sees the committed status.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// UpdateStatus persists a lifecycle transition, conditioned on the
	// status the transition started from. Zero rows updated means another
	// transition won the race. Called inside the same transaction as the
	// ledger append so document state and stock movements commit together.
	UpdateStatus(ctx context.Context, order *Order, from Status) error
}
