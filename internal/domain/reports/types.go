// Package reports computes management projections over the ledger and the
// order books. Reports are derived on demand and never stored, so they are
// always consistent with the data they summarize.
package reports

import (
	"time"

	"unistock/internal/core/id"
	"unistock/internal/core/types"
)

// Period is a half-open time range [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// MonthlyRow summarizes one calendar month of activity.
type MonthlyRow struct {
	// Month in "2006-01" form.
	Month string `json:"month"`

	// Quantities from the ledger.
	PurchasedQty types.Quantity `json:"purchasedQty"`
	SoldQty      types.Quantity `json:"soldQty"`
	ReturnedQty  types.Quantity `json:"returnedQty"`

	// Money from the order books, snapshotted prices.
	PurchaseCost types.Money `json:"purchaseCost"`
	SalesRevenue types.Money `json:"salesRevenue"`
	SalesCost    types.Money `json:"salesCost"`
	GrossMargin  types.Money `json:"grossMargin"`
}

// BestSellerRow ranks a variant by quantity sold in a period.
type BestSellerRow struct {
	ItemID    id.ID          `json:"itemId"`
	ItemName  string         `json:"itemName"`
	VariantID id.ID          `json:"variantId"`
	Size      string         `json:"size"`
	QtySold   types.Quantity `json:"qtySold"`
	Revenue   types.Money    `json:"revenue"`
}

// TopSupplierRow ranks a supplier by purchase volume in a period.
type TopSupplierRow struct {
	SupplierID   id.ID          `json:"supplierId"`
	SupplierName string         `json:"supplierName"`
	QtyPurchased types.Quantity `json:"qtyPurchased"`
	TotalCost    types.Money    `json:"totalCost"`
	OrderCount   int            `json:"orderCount"`
}
