package balance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/ledger"
)

func TestLazyProjectorBalanceOf(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	proj := NewLazyProjector(store)

	key := ledger.Key{ItemID: id.New(), VariantID: id.New(), Lot: ledger.LotLegacy}

	// Unknown key has balance zero, not an error.
	onHand, err := proj.BalanceOf(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), int64(onHand))

	require.NoError(t, store.Append(ctx, []ledger.Entry{
		ledger.NewEntry(key, 10, ledger.KindInit, "", id.Nil(), ""),
		ledger.NewEntry(key, -4, ledger.KindSale, ledger.RefSaleOrder, id.New(), ""),
		ledger.NewEntry(key, 1, ledger.KindReturnIn, ledger.RefSaleOrder, id.New(), ""),
	}))

	onHand, err = proj.BalanceOf(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(7), int64(onHand))
}

func TestLazyProjectorBalancesByVariant(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	proj := NewLazyProjector(store)

	itemID, variantID := id.New(), id.New()
	supplierLot := ledger.LotForSupplier(id.New())
	legacy := ledger.Key{ItemID: itemID, VariantID: variantID, Lot: ledger.LotLegacy}
	supplied := ledger.Key{ItemID: itemID, VariantID: variantID, Lot: supplierLot}

	require.NoError(t, store.Append(ctx, []ledger.Entry{
		ledger.NewEntry(legacy, 3, ledger.KindInit, "", id.Nil(), ""),
		ledger.NewEntry(supplied, 8, ledger.KindPurchase, ledger.RefPurchaseOrder, id.New(), ""),
		ledger.NewEntry(supplied, -2, ledger.KindSale, ledger.RefSaleOrder, id.New(), ""),
	}))

	lots, err := proj.BalancesByVariant(ctx, itemID, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), int64(lots[ledger.LotLegacy]))
	assert.Equal(t, int64(6), int64(lots[supplierLot]))
}

func TestLazyProjectorBalancesByItemDropsZeroRows(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	proj := NewLazyProjector(store)

	itemID := id.New()
	variantA := ledger.Key{ItemID: itemID, VariantID: id.New(), Lot: ledger.LotLegacy}
	variantB := ledger.Key{ItemID: itemID, VariantID: id.New(), Lot: ledger.LotLegacy}

	require.NoError(t, store.Append(ctx, []ledger.Entry{
		ledger.NewEntry(variantA, 5, ledger.KindInit, "", id.Nil(), ""),
		ledger.NewEntry(variantB, 4, ledger.KindInit, "", id.Nil(), ""),
	}))
	require.NoError(t, store.Append(ctx, []ledger.Entry{
		ledger.NewEntry(variantB, -4, ledger.KindSale, ledger.RefSaleOrder, id.New(), ""),
	}))

	rows, err := proj.BalancesByItem(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, variantA, rows[0].Key)
	assert.Equal(t, int64(5), int64(rows[0].OnHand))
	assert.False(t, rows[0].LastMovementAt.IsZero())
}

// The lazy projector is the reference semantics: any sequence of entries
// must leave it in agreement with a per-key replay.
func TestLazyProjectorMatchesReplay(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	proj := NewLazyProjector(store)

	itemID, variantID := id.New(), id.New()
	lots := []ledger.LotKey{ledger.LotLegacy, ledger.LotForSupplier(id.New()), ledger.LotForSupplier(id.New())}

	deltas := []struct {
		lot ledger.LotKey
		qty int64
	}{
		{lots[0], 5}, {lots[1], 10}, {lots[2], 7},
		{lots[1], -3}, {lots[0], -5}, {lots[2], -1}, {lots[1], 2},
	}

	expected := make(map[ledger.LotKey]int64)
	for _, d := range deltas {
		key := ledger.Key{ItemID: itemID, VariantID: variantID, Lot: d.lot}
		require.NoError(t, store.Append(ctx, []ledger.Entry{
			ledger.NewEntry(key, types.Quantity(d.qty), ledger.KindAdjustment, "", id.Nil(), ""),
		}))
		expected[d.lot] += d.qty
	}

	balances, err := proj.BalancesByVariant(ctx, itemID, variantID)
	require.NoError(t, err)
	for lot, want := range expected {
		assert.Equal(t, want, int64(balances[lot]), "lot %s", lot)
	}
}
