package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/internal/domain/purchase"
	"unistock/internal/domain/sale"
)

type fixture struct {
	store        *ledger.MemStore
	saleRepo     *sale.MemRepository
	purchaseRepo *purchase.MemRepository
	catalog      *catalog.Service
	svc          *Service

	item     *catalog.Item
	variantS *catalog.Variant
	variantM *catalog.Variant
	supplier *catalog.Supplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	catSvc := catalog.NewService(catalog.NewMemRepository())
	item := catalog.NewItem("POLO", "Polo Shirt")
	require.NoError(t, catSvc.CreateItem(ctx, item))
	variantS := catalog.NewVariant(item.ID, "128", 2500, 1400)
	require.NoError(t, catSvc.CreateVariant(ctx, variantS))
	variantM := catalog.NewVariant(item.ID, "140", 2700, 1500)
	require.NoError(t, catSvc.CreateVariant(ctx, variantM))
	supplier := catalog.NewSupplier("SchoolWear Ltd")
	require.NoError(t, catSvc.CreateSupplier(ctx, supplier))

	store := ledger.NewMemStore()
	saleRepo := sale.NewMemRepository()
	purchaseRepo := purchase.NewMemRepository()

	return &fixture{
		store:        store,
		saleRepo:     saleRepo,
		purchaseRepo: purchaseRepo,
		catalog:      catSvc,
		svc:          NewService(store, saleRepo, purchaseRepo, catSvc, store),
		item:         item,
		variantS:     variantS,
		variantM:     variantM,
		supplier:     supplier,
	}
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func (f *fixture) addEntry(t *testing.T, variantID id.ID, delta types.Quantity, kind ledger.Kind, when time.Time) {
	t.Helper()
	e := ledger.NewEntry(
		ledger.Key{ItemID: f.item.ID, VariantID: variantID, Lot: ledger.LotForSupplier(f.supplier.ID)},
		delta, kind, "", id.New(), "")
	e.CreatedAt = when
	require.NoError(t, f.store.Append(context.Background(), []ledger.Entry{e}))
}

func (f *fixture) addPaidSale(t *testing.T, number string, paidAt time.Time, lines []sale.Line) *sale.Order {
	t.Helper()
	order := &sale.Order{
		ID:            id.New(),
		Number:        number,
		BuyerRef:      "student-001",
		Status:        sale.StatusPaid,
		PaymentMethod: sale.PaymentCash,
		Lines:         lines,
		CreatedAt:     paidAt.Add(-time.Hour),
		UpdatedAt:     paidAt,
		PaidAt:        &paidAt,
	}
	for _, l := range lines {
		order.TotalAmount += l.Amount()
		order.TotalCost += l.CostAmount()
	}
	require.NoError(t, f.saleRepo.Create(context.Background(), order))
	return order
}

func (f *fixture) addPostedPurchase(t *testing.T, number string, supplierID id.ID, postedAt time.Time, lines []purchase.Line) *purchase.Order {
	t.Helper()
	order := &purchase.Order{
		ID:         id.New(),
		Number:     number,
		SupplierID: supplierID,
		Status:     purchase.StatusPosted,
		OrderDate:  postedAt,
		Lines:      lines,
		CreatedAt:  postedAt.Add(-time.Hour),
		UpdatedAt:  postedAt,
		PostedAt:   &postedAt,
	}
	for _, l := range lines {
		order.TotalCost += l.Amount()
	}
	require.NoError(t, f.purchaseRepo.Create(context.Background(), order))
	return order
}

func TestMonthlyTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// March: purchased 10, sold 4. April: 1 unit returned.
	f.addEntry(t, f.variantS.ID, 10, ledger.KindPurchase, at(2025, time.March, 3))
	f.addEntry(t, f.variantS.ID, -4, ledger.KindSale, at(2025, time.March, 15))
	f.addEntry(t, f.variantS.ID, 1, ledger.KindReturnIn, at(2025, time.April, 2))
	// Stamped exactly midnight Jan 1 of the next year: belongs to 2026.
	f.addEntry(t, f.variantS.ID, 7, ledger.KindPurchase, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	f.addPostedPurchase(t, "PO-2025-00001", f.supplier.ID, at(2025, time.March, 3), []purchase.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 10, UnitCost: 1400},
	})
	f.addPaidSale(t, "SO-2025-00001", at(2025, time.March, 15), []sale.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 4, UnitPrice: 2500, UnitCost: 1400},
	})
	// Paid outside the year: must not appear.
	f.addPaidSale(t, "SO-2026-00001", at(2026, time.January, 10), []sale.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 2, UnitPrice: 2500, UnitCost: 1400},
	})

	rows, err := f.svc.MonthlyTotals(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	// The 2026 boundary entry must not leak into any 2025 bucket.
	january := rows[0]
	assert.Equal(t, int64(0), int64(january.PurchasedQty))

	march := rows[2]
	assert.Equal(t, "2025-03", march.Month)
	assert.Equal(t, int64(10), int64(march.PurchasedQty))
	assert.Equal(t, int64(4), int64(march.SoldQty))
	assert.True(t, march.PurchaseCost.Equal(types.NewMoneyFromMinorUnits(14000)))
	assert.True(t, march.SalesRevenue.Equal(types.NewMoneyFromMinorUnits(10000)))
	assert.True(t, march.SalesCost.Equal(types.NewMoneyFromMinorUnits(5600)))
	assert.True(t, march.GrossMargin.Equal(types.NewMoneyFromMinorUnits(4400)))

	april := rows[3]
	assert.Equal(t, int64(1), int64(april.ReturnedQty))
	assert.Equal(t, int64(0), int64(april.SoldQty))
	assert.True(t, april.SalesRevenue.Equal(types.ZeroMoney()))

	// Quiet months are present with zero values, not missing.
	december := rows[11]
	assert.Equal(t, int64(0), int64(december.PurchasedQty))
	assert.True(t, december.PurchaseCost.Equal(types.ZeroMoney()))
}

func TestMonthlyTotalsRejectsBadYear(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.MonthlyTotals(context.Background(), 1899)
	assert.Error(t, err)
}

func TestBestSellers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	period := Period{From: at(2025, time.March, 1), To: at(2025, time.April, 1)}

	f.addPaidSale(t, "SO-2025-00001", at(2025, time.March, 10), []sale.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 3, UnitPrice: 2500, UnitCost: 1400},
		{LineNo: 2, ItemID: f.item.ID, VariantID: f.variantM.ID, Qty: 5, UnitPrice: 2700, UnitCost: 1500},
	})
	f.addPaidSale(t, "SO-2025-00002", at(2025, time.March, 20), []sale.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 1, UnitPrice: 2500, UnitCost: 1400},
	})
	// Paid after the period: excluded.
	f.addPaidSale(t, "SO-2025-00003", at(2025, time.May, 1), []sale.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 20, UnitPrice: 2500, UnitCost: 1400},
	})

	rows, err := f.svc.BestSellers(ctx, period, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, f.variantM.ID, rows[0].VariantID)
	assert.Equal(t, int64(5), int64(rows[0].QtySold))
	assert.Equal(t, "Polo Shirt", rows[0].ItemName)
	assert.Equal(t, "140", rows[0].Size)

	assert.Equal(t, f.variantS.ID, rows[1].VariantID)
	assert.Equal(t, int64(4), int64(rows[1].QtySold))
	assert.True(t, rows[1].Revenue.Equal(types.NewMoneyFromMinorUnits(10000)))

	limited, err := f.svc.BestSellers(ctx, period, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTopSuppliers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	period := Period{From: at(2025, time.January, 1), To: at(2026, time.January, 1)}

	other := catalog.NewSupplier("Uniform Direct")
	require.NoError(t, f.catalog.CreateSupplier(ctx, other))

	f.addPostedPurchase(t, "PO-2025-00001", f.supplier.ID, at(2025, time.February, 1), []purchase.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 10, UnitCost: 1400},
	})
	f.addPostedPurchase(t, "PO-2025-00002", f.supplier.ID, at(2025, time.September, 1), []purchase.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantM.ID, Qty: 4, UnitCost: 1500},
	})
	f.addPostedPurchase(t, "PO-2025-00003", other.ID, at(2025, time.June, 1), []purchase.Line{
		{LineNo: 1, ItemID: f.item.ID, VariantID: f.variantS.ID, Qty: 5, UnitCost: 1400},
	})

	rows, err := f.svc.TopSuppliers(ctx, period, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, f.supplier.ID, rows[0].SupplierID)
	assert.Equal(t, "SchoolWear Ltd", rows[0].SupplierName)
	assert.Equal(t, 2, rows[0].OrderCount)
	assert.Equal(t, int64(14), int64(rows[0].QtyPurchased))
	assert.True(t, rows[0].TotalCost.Equal(types.NewMoneyFromMinorUnits(20000)))

	assert.Equal(t, other.ID, rows[1].SupplierID)
	assert.True(t, rows[1].TotalCost.Equal(types.NewMoneyFromMinorUnits(7000)))
}
