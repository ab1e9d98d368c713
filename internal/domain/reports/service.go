package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/tx"
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/internal/domain/purchase"
	"unistock/internal/domain/sale"
)

// Catalog resolves display names for report rows.
type Catalog interface {
	GetItem(ctx context.Context, itemID id.ID) (*catalog.Item, error)
	GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error)
	GetSupplier(ctx context.Context, supplierID id.ID) (*catalog.Supplier, error)
}

// Service computes reports from the ledger and the order repositories.
// Each report runs its reads under the manager's read-only mode so the
// ledger and order queries see a single consistent snapshot.
type Service struct {
	ledger       ledger.Store
	saleRepo     sale.Repository
	purchaseRepo purchase.Repository
	catalog      Catalog
	runner       tx.ReadOnlyManager
}

// NewService creates a new reports service.
func NewService(led ledger.Store, saleRepo sale.Repository, purchaseRepo purchase.Repository, cat Catalog, runner tx.ReadOnlyManager) *Service {
	return &Service{
		ledger:       led,
		saleRepo:     saleRepo,
		purchaseRepo: purchaseRepo,
		catalog:      cat,
		runner:       runner,
	}
}

// MonthlyTotals summarizes a calendar year month by month. Quantities come
// from the ledger; money comes from the order books, so prices are the ones
// snapshotted when each order was created.
func (s *Service) MonthlyTotals(ctx context.Context, year int) ([]MonthlyRow, error) {
	if year < 2000 || year > 2100 {
		return nil, apperror.NewValidation("year out of range").WithDetail("year", year)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	rows := make([]MonthlyRow, 12)
	for i := range rows {
		rows[i] = MonthlyRow{
			Month:        fmt.Sprintf("%04d-%02d", year, i+1),
			PurchaseCost: types.ZeroMoney(),
			SalesRevenue: types.ZeroMoney(),
			SalesCost:    types.ZeroMoney(),
			GrossMargin:  types.ZeroMoney(),
		}
	}

	err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
		entries, err := s.ledger.Query(ctx, ledger.Filter{FromDate: &from, ToDate: &to})
		if err != nil {
			return fmt.Errorf("query ledger: %w", err)
		}
		for _, e := range entries {
			m := int(e.CreatedAt.Month()) - 1
			switch e.Kind {
			case ledger.KindPurchase:
				rows[m].PurchasedQty += e.QtyDelta
			case ledger.KindSale:
				rows[m].SoldQty += e.QtyDelta.Abs()
			case ledger.KindReturnIn:
				rows[m].ReturnedQty += e.QtyDelta
			}
		}

		purchases, err := s.purchaseRepo.List(ctx, purchase.Filter{})
		if err != nil {
			return fmt.Errorf("list purchase orders: %w", err)
		}
		for _, o := range purchases {
			if o.Status == purchase.StatusDraft || o.PostedAt == nil {
				continue
			}
			if o.PostedAt.Before(from) || !o.PostedAt.Before(to) {
				continue
			}
			m := int(o.PostedAt.Month()) - 1
			rows[m].PurchaseCost = rows[m].PurchaseCost.Add(types.NewMoneyFromMinorUnits(o.TotalCost))
		}

		// Listed without date bounds: the repository filter matches on creation
		// time while report buckets follow payment time.
		sales, err := s.saleRepo.List(ctx, sale.Filter{})
		if err != nil {
			return fmt.Errorf("list sale orders: %w", err)
		}
		for _, o := range sales {
			if o.Status != sale.StatusPaid || o.PaidAt == nil {
				continue
			}
			if o.PaidAt.Before(from) || !o.PaidAt.Before(to) {
				continue
			}
			m := int(o.PaidAt.Month()) - 1
			rows[m].SalesRevenue = rows[m].SalesRevenue.Add(types.NewMoneyFromMinorUnits(o.TotalAmount))
			rows[m].SalesCost = rows[m].SalesCost.Add(types.NewMoneyFromMinorUnits(o.TotalCost))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].GrossMargin = rows[i].SalesRevenue.Sub(rows[i].SalesCost)
	}
	return rows, nil
}

// BestSellers ranks variants by quantity sold in the period, from paid
// orders. Ties break on revenue, then variant ID for stable output.
func (s *Service) BestSellers(ctx context.Context, period Period, limit int) ([]BestSellerRow, error) {
	if limit <= 0 {
		limit = 10
	}

	totals := make(map[id.ID]*BestSellerRow)
	err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
		sales, err := s.saleRepo.List(ctx, sale.Filter{})
		if err != nil {
			return fmt.Errorf("list sale orders: %w", err)
		}
		for _, o := range sales {
			if o.Status != sale.StatusPaid || o.PaidAt == nil {
				continue
			}
			if o.PaidAt.Before(period.From) || !o.PaidAt.Before(period.To) {
				continue
			}
			for _, l := range o.Lines {
				row, ok := totals[l.VariantID]
				if !ok {
					row = &BestSellerRow{
						ItemID:    l.ItemID,
						VariantID: l.VariantID,
						Revenue:   types.ZeroMoney(),
					}
					totals[l.VariantID] = row
				}
				row.QtySold += l.Qty
				row.Revenue = row.Revenue.Add(types.NewMoneyFromMinorUnits(l.Amount()))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]BestSellerRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].QtySold != rows[j].QtySold {
			return rows[i].QtySold > rows[j].QtySold
		}
		if !rows[i].Revenue.Equal(rows[j].Revenue) {
			return rows[i].Revenue.GreaterThan(rows[j].Revenue)
		}
		return rows[i].VariantID.String() < rows[j].VariantID.String()
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	for i := range rows {
		if item, err := s.catalog.GetItem(ctx, rows[i].ItemID); err == nil {
			rows[i].ItemName = item.Name
		}
		if variant, err := s.catalog.GetVariant(ctx, rows[i].VariantID); err == nil {
			rows[i].Size = variant.Size
		}
	}
	return rows, nil
}

// TopSuppliers ranks suppliers by purchase cost over posted orders in the
// period. Voided orders are excluded.
func (s *Service) TopSuppliers(ctx context.Context, period Period, limit int) ([]TopSupplierRow, error) {
	if limit <= 0 {
		limit = 10
	}

	totals := make(map[id.ID]*TopSupplierRow)
	err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
		status := purchase.StatusPosted
		orders, err := s.purchaseRepo.List(ctx, purchase.Filter{Status: &status})
		if err != nil {
			return fmt.Errorf("list purchase orders: %w", err)
		}
		for _, o := range orders {
			if o.PostedAt == nil || o.PostedAt.Before(period.From) || !o.PostedAt.Before(period.To) {
				continue
			}
			row, ok := totals[o.SupplierID]
			if !ok {
				row = &TopSupplierRow{
					SupplierID: o.SupplierID,
					TotalCost:  types.ZeroMoney(),
				}
				totals[o.SupplierID] = row
			}
			row.OrderCount++
			row.TotalCost = row.TotalCost.Add(types.NewMoneyFromMinorUnits(o.TotalCost))
			for _, l := range o.Lines {
				row.QtyPurchased += l.Qty
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]TopSupplierRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TotalCost.Equal(rows[j].TotalCost) {
			return rows[i].TotalCost.GreaterThan(rows[j].TotalCost)
		}
		return rows[i].SupplierID.String() < rows[j].SupplierID.String()
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	for i := range rows {
		if supplier, err := s.catalog.GetSupplier(ctx, rows[i].SupplierID); err == nil {
			rows[i].SupplierName = supplier.Name
		}
	}
	return rows, nil
}
