// Package balance derives current on-hand quantities from the ledger.
// Balances are caches over the ledger, never the source of truth: any
// projector must be reproducible by replaying the full ledger.
package balance

import (
	"context"
	"time"

	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/ledger"
)

// Row is one projected balance: a partition key and its on-hand quantity.
type Row struct {
	Key            ledger.Key     `json:"key"`
	OnHand         types.Quantity `json:"onHand"`
	LastMovementAt time.Time      `json:"lastMovementAt,omitzero"`
}

// Projector answers "how much is available" questions from the ledger.
type Projector interface {
	// BalanceOf returns the on-hand quantity for one partition key.
	// Unknown keys have balance zero.
	BalanceOf(ctx context.Context, key ledger.Key) (types.Quantity, error)

	// BalancesByVariant returns per-lot balances for one variant.
	BalancesByVariant(ctx context.Context, itemID, variantID id.ID) (map[ledger.LotKey]types.Quantity, error)

	// BalancesByItem returns all non-zero balances under an item.
	BalancesByItem(ctx context.Context, itemID id.ID) ([]Row, error)
}

// Guard exposes balances under a lock that holds until the surrounding
// transaction ends. Commit-time re-validation reads through the Guard so
// the check and the append are indivisible with respect to concurrent
// commits on the same key.
type Guard interface {
	BalanceForUpdate(ctx context.Context, key ledger.Key) (types.Quantity, error)
}

// Rebuilder rebuilds a materialized balance projection from scratch by
// replaying the full ledger. Idempotent; used for disaster recovery and
// seeding after schema migration.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}
