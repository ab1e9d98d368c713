package sale

import (
	"context"
	"time"

	"unistock/internal/core/id"
)

// Filter narrows sale order listings.
type Filter struct {
	BuyerRef *string
	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines persistence for sale orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)

	// GetForUpdate returns the order with its row locked until the
	// enclosing transaction ends. Every lifecycle transition reads through
	// this, so two concurrent transitions on the same order serialize and
	// the loser sees the committed status.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// UpdateStatus persists a lifecycle transition, conditioned on the
	// status the transition started from. Zero rows updated means another
	// transition won the race. Called inside the same transaction as the
	// ledger debit so the order can never show Paid without its stock
	// movements, or vice versa.
	UpdateStatus(ctx context.Context, order *Order, from Status) error
}
