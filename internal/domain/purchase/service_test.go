package purchase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/pkg/numerator"
)

type testEnv struct {
	store    *ledger.MemStore
	catalog  *catalog.Service
	svc      *Service
	item     *catalog.Item
	variant  *catalog.Variant
	supplier *catalog.Supplier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	catSvc := catalog.NewService(catalog.NewMemRepository())

	item := catalog.NewItem("POLO", "Polo Shirt")
	require.NoError(t, catSvc.CreateItem(ctx, item))
	variant := catalog.NewVariant(item.ID, "140", 2500, 1400)
	require.NoError(t, catSvc.CreateVariant(ctx, variant))
	supplier := catalog.NewSupplier("SchoolWear Ltd")
	require.NoError(t, catSvc.CreateSupplier(ctx, supplier))

	store := ledger.NewMemStore()
	ledSvc := ledger.NewService(store, store, store)
	svc := NewService(NewMemRepository(), catSvc, numerator.NewMock(), ledSvc, store, store)

	return &testEnv{store: store, catalog: catSvc, svc: svc, item: item, variant: variant, supplier: supplier}
}

func (e *testEnv) lotKey() ledger.Key {
	return ledger.Key{
		ItemID:    e.item.ID,
		VariantID: e.variant.ID,
		Lot:       ledger.LotForSupplier(e.supplier.ID),
	}
}

func (e *testEnv) onHand(t *testing.T, key ledger.Key) int64 {
	t.Helper()
	qty, err := e.store.BalanceForUpdate(context.Background(), key)
	require.NoError(t, err)
	return int64(qty)
}

func TestCreateSnapshotsCatalogCost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, order.Status)
	assert.NotEmpty(t, order.Number)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, int64(1400), int64(order.Lines[0].UnitCost))
	assert.Equal(t, int64(14000), int64(order.TotalCost))

	// Creating a draft must not touch stock.
	assert.Equal(t, int64(0), env.onHand(t, env.lotKey()))
}

func TestCreateWithCostOverride(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	quoted := types.MinorUnits(1200)
	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 5, UnitCost: &quoted},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), int64(order.Lines[0].UnitCost))
	assert.Equal(t, int64(6000), int64(order.TotalCost))
}

func TestCreateRejectsUnknownSupplier(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.Create(ctx, CreateInput{
		SupplierID: id.New(),
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 5},
		},
	})
	assert.Error(t, err)
}

func TestPostCreditsSupplierLot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)

	posted, err := env.svc.Post(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	assert.NotNil(t, posted.PostedAt)
	assert.Equal(t, int64(10), env.onHand(t, env.lotKey()))

	// Posting is not repeatable, and the rejected repost credits nothing.
	_, err = env.svc.Post(ctx, order.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
	assert.Equal(t, int64(10), env.onHand(t, env.lotKey()))
}

func TestPostConcurrentSameOrderCreditsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)

	// The order row lock serializes the two posts; the loser re-reads the
	// committed Posted status and must not credit a second batch.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Post(ctx, order.ID)
		}(i)
	}
	wg.Wait()

	var posted, rejected int
	for _, err := range errs {
		if err == nil {
			posted++
			continue
		}
		rejected++
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
	}
	assert.Equal(t, 1, posted)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(10), env.onHand(t, env.lotKey()))
}

func TestVoidReversesIntactLot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)
	_, err = env.svc.Post(ctx, order.ID)
	require.NoError(t, err)

	voided, err := env.svc.Void(ctx, order.ID, "supplier cancelled")
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, voided.Status)
	assert.Equal(t, int64(0), env.onHand(t, env.lotKey()))
}

func TestVoidRejectedAfterConsumption(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)
	_, err = env.svc.Post(ctx, order.ID)
	require.NoError(t, err)

	// Part of the lot is sold before the void attempt.
	require.NoError(t, env.store.Append(ctx, []ledger.Entry{
		ledger.NewEntry(env.lotKey(), -4, ledger.KindSale, ledger.RefSaleOrder, id.New(), ""),
	}))

	_, err = env.svc.Void(ctx, order.ID, "too late")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeWouldUnderflow))

	// The failed void must leave both the order and the balance untouched.
	current, err := env.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, current.Status)
	assert.Equal(t, int64(6), env.onHand(t, env.lotKey()))
}

func TestVoidRequiresPostedStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.Void(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestReturnToSupplier(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 10},
		},
	})
	require.NoError(t, err)
	_, err = env.svc.Post(ctx, order.ID)
	require.NoError(t, err)

	err = env.svc.ReturnToSupplier(ctx, order.ID, []LineInput{
		{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 4},
	}, "defective batch")
	require.NoError(t, err)
	assert.Equal(t, int64(6), env.onHand(t, env.lotKey()))

	// The order stays posted; a partial return is not a void.
	current, err := env.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, current.Status)

	// Returning more than remains fails whole.
	err = env.svc.ReturnToSupplier(ctx, order.ID, []LineInput{
		{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 7},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, int64(6), env.onHand(t, env.lotKey()))
}
