package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
)

func testKey() Key {
	return Key{ItemID: id.New(), VariantID: id.New(), Lot: LotLegacy}
}

func TestMemStoreAppendAndBalance(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := testKey()

	err := store.Append(ctx, []Entry{
		NewEntry(key, 10, KindInit, "", id.Nil(), ""),
		NewEntry(key, -3, KindSale, RefSaleOrder, id.New(), ""),
	})
	require.NoError(t, err)

	onHand, err := store.BalanceForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(7), int64(onHand))
}

func TestMemStoreBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := testKey()

	require.NoError(t, store.Append(ctx, []Entry{NewEntry(key, 5, KindInit, "", id.Nil(), "")}))

	// Second entry would underflow, so the whole batch must be rejected.
	err := store.Append(ctx, []Entry{
		NewEntry(key, 3, KindAdjustment, "", id.Nil(), ""),
		NewEntry(key, -10, KindSale, RefSaleOrder, id.New(), ""),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	onHand, err := store.BalanceForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), int64(onHand))

	entries, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemStoreRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := testKey()

	zero := NewEntry(key, 0, KindInit, "", id.Nil(), "")
	assert.Error(t, store.Append(ctx, []Entry{zero}))

	unknownKind := NewEntry(key, 1, Kind("bogus"), "", id.Nil(), "")
	assert.Error(t, store.Append(ctx, []Entry{unknownKind}))
}

func TestMemStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := testKey()

	require.NoError(t, store.Append(ctx, []Entry{NewEntry(key, 5, KindInit, "", id.Nil(), "")}))

	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := store.Append(ctx, []Entry{NewEntry(key, 4, KindAdjustment, "", id.Nil(), "")}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	onHand, err := store.BalanceForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), int64(onHand))
}

func TestMemStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	keyA := testKey()
	keyB := testKey()
	refID := id.New()

	require.NoError(t, store.Append(ctx, []Entry{
		NewEntry(keyA, 10, KindInit, "", id.Nil(), ""),
		NewEntry(keyA, -2, KindSale, RefSaleOrder, refID, ""),
		NewEntry(keyB, 7, KindInit, "", id.Nil(), ""),
	}))

	byItem, err := store.Query(ctx, Filter{ItemID: &keyA.ItemID})
	require.NoError(t, err)
	assert.Len(t, byItem, 2)

	byKind, err := store.Query(ctx, Filter{Kinds: []Kind{KindSale}})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, refID, byKind[0].RefID)

	byRef, err := store.Query(ctx, Filter{RefID: &refID})
	require.NoError(t, err)
	assert.Len(t, byRef, 1)
}

func TestMemStoreQueryDateRangeIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := testKey()

	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	before := NewEntry(key, 5, KindInit, "", id.Nil(), "")
	before.CreatedAt = from.Add(-time.Second)
	atFrom := NewEntry(key, 3, KindAdjustment, "", id.Nil(), "")
	atFrom.CreatedAt = from
	atTo := NewEntry(key, 2, KindAdjustment, "", id.Nil(), "")
	atTo.CreatedAt = to
	require.NoError(t, store.Append(ctx, []Entry{before, atFrom, atTo}))

	// FromDate is inclusive, ToDate exclusive. An entry stamped exactly on
	// the upper bound belongs to the next period.
	got, err := store.Query(ctx, Filter{FromDate: &from, ToDate: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, atFrom.ID, got[0].ID)
}

func TestServiceRecordOpeningStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, store, store)
	itemID, variantID := id.New(), id.New()

	require.NoError(t, svc.RecordOpeningStock(ctx, itemID, variantID, 12, "stocktake"))

	key := Key{ItemID: itemID, VariantID: variantID, Lot: LotLegacy}
	onHand, err := store.BalanceForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(12), int64(onHand))

	assert.Error(t, svc.RecordOpeningStock(ctx, itemID, variantID, 0, ""))
	assert.Error(t, svc.RecordOpeningStock(ctx, itemID, variantID, -4, ""))
}

func TestServiceRecordAdjustment(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, store, store)
	key := testKey()

	require.NoError(t, svc.RecordOpeningStock(ctx, key.ItemID, key.VariantID, 5, ""))

	// Negative adjustment beyond the balance is rejected under lock.
	err := svc.RecordAdjustment(ctx, key, -8, "shrinkage")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	require.NoError(t, svc.RecordAdjustment(ctx, key, -3, "shrinkage"))

	onHand, err := store.BalanceForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), int64(onHand))
}
