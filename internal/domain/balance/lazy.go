package balance

import (
	"context"
	"fmt"
	"sort"

	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/ledger"
)

// LazyProjector sums matching deltas on every call. O(ledger size) per
// read, which is fine at the volumes of a single school's inventory, and
// always correct by construction. Used as the reference semantics the
// materialized projection is tested against.
type LazyProjector struct {
	store ledger.Store
}

// NewLazyProjector creates a projector that aggregates directly from the ledger.
func NewLazyProjector(store ledger.Store) *LazyProjector {
	return &LazyProjector{store: store}
}

// BalanceOf sums deltas for one partition key.
func (p *LazyProjector) BalanceOf(ctx context.Context, key ledger.Key) (types.Quantity, error) {
	entries, err := p.store.Query(ctx, ledger.Filter{
		ItemID:    &key.ItemID,
		VariantID: &key.VariantID,
		Lot:       &key.Lot,
	})
	if err != nil {
		return 0, fmt.Errorf("query ledger: %w", err)
	}

	var total types.Quantity
	for _, e := range entries {
		total += e.QtyDelta
	}
	return total, nil
}

// BalancesByVariant sums deltas per lot for one variant.
func (p *LazyProjector) BalancesByVariant(ctx context.Context, itemID, variantID id.ID) (map[ledger.LotKey]types.Quantity, error) {
	entries, err := p.store.Query(ctx, ledger.Filter{
		ItemID:    &itemID,
		VariantID: &variantID,
	})
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	balances := make(map[ledger.LotKey]types.Quantity)
	for _, e := range entries {
		balances[e.Lot] += e.QtyDelta
	}
	return balances, nil
}

// BalancesByItem sums deltas per (variant, lot) under an item, dropping
// zero rows.
func (p *LazyProjector) BalancesByItem(ctx context.Context, itemID id.ID) ([]Row, error) {
	entries, err := p.store.Query(ctx, ledger.Filter{ItemID: &itemID})
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	totals := make(map[ledger.Key]Row)
	for _, e := range entries {
		row := totals[e.Key()]
		row.Key = e.Key()
		row.OnHand += e.QtyDelta
		if e.CreatedAt.After(row.LastMovementAt) {
			row.LastMovementAt = e.CreatedAt
		}
		totals[e.Key()] = row
	}

	rows := make([]Row, 0, len(totals))
	for _, row := range totals {
		if row.OnHand != 0 {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key.Less(rows[j].Key) })
	return rows, nil
}

// BalanceForUpdate implements Guard. Lazy aggregation has no rows to lock;
// atomicity comes from the store serializing commits (the in-memory store
// holds its transaction lock across check and append).
func (p *LazyProjector) BalanceForUpdate(ctx context.Context, key ledger.Key) (types.Quantity, error) {
	return p.BalanceOf(ctx, key)
}

var (
	_ Projector = (*LazyProjector)(nil)
	_ Guard     = (*LazyProjector)(nil)
)
