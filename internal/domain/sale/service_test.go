package sale

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/balance"
	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/pkg/numerator"
)

type testEnv struct {
	store    *ledger.MemStore
	svc      *Service
	item     *catalog.Item
	variant  *catalog.Variant
	supplier id.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	catSvc := catalog.NewService(catalog.NewMemRepository())

	item := catalog.NewItem("POLO", "Polo Shirt")
	require.NoError(t, catSvc.CreateItem(ctx, item))
	variant := catalog.NewVariant(item.ID, "140", 2500, 1400)
	require.NoError(t, catSvc.CreateVariant(ctx, variant))

	store := ledger.NewMemStore()
	proj := balance.NewLazyProjector(store)
	ledSvc := ledger.NewService(store, store, store)
	svc := NewService(NewMemRepository(), catSvc, numerator.NewMock(), ledSvc, proj, store, store)

	return &testEnv{store: store, svc: svc, item: item, variant: variant, supplier: id.New()}
}

func (e *testEnv) legacyKey() ledger.Key {
	return ledger.Key{ItemID: e.item.ID, VariantID: e.variant.ID, Lot: ledger.LotLegacy}
}

func (e *testEnv) supplierKey() ledger.Key {
	return ledger.Key{ItemID: e.item.ID, VariantID: e.variant.ID, Lot: ledger.LotForSupplier(e.supplier)}
}

func (e *testEnv) seed(t *testing.T, key ledger.Key, qty types.Quantity) {
	t.Helper()
	kind := ledger.KindInit
	if key.Lot != ledger.LotLegacy {
		kind = ledger.KindPurchase
	}
	require.NoError(t, e.store.Append(context.Background(), []ledger.Entry{
		ledger.NewEntry(key, qty, kind, "", id.Nil(), ""),
	}))
}

func (e *testEnv) onHand(t *testing.T, key ledger.Key) int64 {
	t.Helper()
	qty, err := e.store.BalanceForUpdate(context.Background(), key)
	require.NoError(t, err)
	return int64(qty)
}

func (e *testEnv) oneLine(qty types.Quantity) []LineInput {
	return []LineInput{{ItemID: e.item.ID, VariantID: e.variant.ID, Qty: qty}}
}

func TestCreateSnapshotsPricing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(3)})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.Status)
	assert.NotEmpty(t, order.Number)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, int64(2500), int64(order.Lines[0].UnitPrice))
	assert.Equal(t, int64(7500), int64(order.TotalAmount))
	assert.Equal(t, int64(4200), int64(order.TotalCost))

	// Pending orders hold no reservation.
	assert.Equal(t, int64(10), env.onHand(t, env.legacyKey()))
}

func TestCreateAdmissionRejectsOversell(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	_, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(12)})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAdmission))
}

func TestCreateAdmissionSharesPoolAcrossLines(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	// Each line of 6 fits alone, but together they oversell the variant.
	_, err := env.svc.Create(ctx, CreateInput{
		BuyerRef: "student-042",
		Lines: []LineInput{
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 6},
			{ItemID: env.item.ID, VariantID: env.variant.ID, Qty: 6},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAdmission))
}

func TestConfirmPaymentDebitsLegacyFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 4)
	env.seed(t, env.supplierKey(), 6)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(6)})
	require.NoError(t, err)

	paid, err := env.svc.ConfirmPayment(ctx, order.ID, PaymentCard)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, PaymentCard, paid.PaymentMethod)

	// Legacy stock is consumed before the supplier lot.
	assert.Equal(t, int64(0), env.onHand(t, env.legacyKey()))
	assert.Equal(t, int64(4), env.onHand(t, env.supplierKey()))
}

func TestConfirmPaymentFailsWholeOnShortStock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	first, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-001", Lines: env.oneLine(6)})
	require.NoError(t, err)
	second, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-002", Lines: env.oneLine(5)})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(ctx, first.ID, PaymentCash)
	require.NoError(t, err)

	// Stock moved under the second order between admission and commit.
	_, err = env.svc.ConfirmPayment(ctx, second.ID, PaymentCash)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)

	// Nothing was debited for the failed commit and the order stays pending.
	assert.Equal(t, int64(4), env.onHand(t, env.legacyKey()))
	current, err := env.svc.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, current.Status)
}

func TestConfirmPaymentConcurrentCommitsNeverOversell(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	// Four pending orders of 4 units each pass admission against 10, but
	// only two of them can ever commit.
	orders := make([]*Order, 4)
	for i := range orders {
		o, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student", Lines: env.oneLine(4)})
		require.NoError(t, err)
		orders[i] = o
	}

	errs := make([]error, len(orders))
	var wg sync.WaitGroup
	for i, o := range orders {
		wg.Add(1)
		go func(i int, orderID id.ID) {
			defer wg.Done()
			_, errs[i] = env.svc.ConfirmPayment(ctx, orderID, PaymentCash)
		}(i, o.ID)
	}
	wg.Wait()

	var committed, rejected int
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		rejected++
		assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
	}
	assert.Equal(t, 2, committed)
	assert.Equal(t, 2, rejected)
	assert.Equal(t, int64(2), env.onHand(t, env.legacyKey()))
}

func TestConfirmPaymentTwiceDebitsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(4)})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(ctx, order.ID, PaymentCash)
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(ctx, order.ID, PaymentCash)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))

	// The repeat attempt must not write a second debit batch.
	assert.Equal(t, int64(6), env.onHand(t, env.legacyKey()))
	entries, err := env.store.Query(ctx, ledger.Filter{RefID: &order.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConfirmPaymentConcurrentSameOrderCommitsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(4)})
	require.NoError(t, err)

	// Both commits target the same pending order. The order row lock
	// serializes them and the loser sees the committed Paid status.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.ConfirmPayment(ctx, order.ID, PaymentCash)
		}(i)
	}
	wg.Wait()

	var committed, rejected int
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		rejected++
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(6), env.onHand(t, env.legacyKey()))
}

func TestUpdateStatusRejectsStaleTransition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemRepository()

	order := &Order{ID: id.New(), Number: "SO-0001", Status: StatusPending}
	require.NoError(t, repo.Create(ctx, order))

	paid := *order
	paid.Status = StatusPaid
	require.NoError(t, repo.UpdateStatus(ctx, &paid, StatusPending))

	// A writer still holding the pending snapshot lost the race.
	cancelled := *order
	cancelled.Status = StatusCancelled
	err := repo.UpdateStatus(ctx, &cancelled, StatusPending)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestConfirmPaymentRejectsUnknownMethod(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(2)})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(ctx, order.ID, PaymentMethod("barter"))
	assert.Error(t, err)
}

func TestCancelHasNoLedgerEffect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(3)})
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, order.ID, "changed mind")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(10), env.onHand(t, env.legacyKey()))

	entries, err := env.store.Query(ctx, ledger.Filter{RefID: &order.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A cancelled order cannot be paid.
	_, err = env.svc.ConfirmPayment(ctx, order.ID, PaymentCash)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestCancelRequiresPendingStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(3)})
	require.NoError(t, err)
	_, err = env.svc.ConfirmPayment(ctx, order.ID, PaymentCash)
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestReturnFromBuyerCreditsSoldLots(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 4)
	env.seed(t, env.supplierKey(), 6)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(6)})
	require.NoError(t, err)
	_, err = env.svc.ConfirmPayment(ctx, order.ID, PaymentCash)
	require.NoError(t, err)

	// Sale took 4 legacy + 2 from the supplier lot. Return 5: the credit
	// goes back to the same lots, capped at what each one was debited.
	err = env.svc.ReturnFromBuyer(ctx, order.ID, env.oneLine(5), "wrong size")
	require.NoError(t, err)

	assert.Equal(t, int64(4), env.onHand(t, env.legacyKey()))
	assert.Equal(t, int64(5), env.onHand(t, env.supplierKey()))

	// Only one unit is still returnable.
	err = env.svc.ReturnFromBuyer(ctx, order.ID, env.oneLine(2), "")
	require.Error(t, err)

	err = env.svc.ReturnFromBuyer(ctx, order.ID, env.oneLine(1), "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), env.onHand(t, env.legacyKey()))
	assert.Equal(t, int64(6), env.onHand(t, env.supplierKey()))
}

func TestReturnFromBuyerRequiresPaidOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, env.legacyKey(), 10)

	order, err := env.svc.Create(ctx, CreateInput{BuyerRef: "student-042", Lines: env.oneLine(3)})
	require.NoError(t, err)

	err = env.svc.ReturnFromBuyer(ctx, order.ID, env.oneLine(1), "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}
