// Package purchase implements the purchase order workflow: stock enters
// the ledger when a draft order is posted, and leaves it again if a posted
// order is voided before its lot has been consumed.
package purchase

import (
	"context"
	"time"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	// StatusDraft: editable, no ledger effect yet.
	StatusDraft Status = "draft"
	// StatusPosted: stock credited to the supplier's lot.
	StatusPosted Status = "posted"
	// StatusVoided: posting reversed with compensating entries.
	StatusVoided Status = "voided"
)

// Line is one ordered position. Qty and UnitCost are frozen at creation.
type Line struct {
	LineNo    int              `db:"line_no" json:"lineNo"`
	ItemID    id.ID            `db:"item_id" json:"itemId"`
	VariantID id.ID            `db:"variant_id" json:"variantId"`
	Qty       types.Quantity   `db:"qty" json:"qty"`
	UnitCost  types.MinorUnits `db:"unit_cost" json:"unitCost"`
}

// Amount returns the line cost in minor units.
func (l Line) Amount() types.MinorUnits {
	return types.MinorUnits(int64(l.Qty) * int64(l.UnitCost))
}

// Order is a purchase order document.
type Order struct {
	ID         id.ID  `db:"id" json:"id"`
	Number     string `db:"number" json:"number"`
	SupplierID id.ID  `db:"supplier_id" json:"supplierId"`
	Status     Status `db:"status" json:"status"`

	OrderDate time.Time `db:"order_date" json:"orderDate"`
	Lines     []Line    `db:"-" json:"lines"`

	// TotalCost is the sum of line amounts, minor units.
	TotalCost types.MinorUnits `db:"total_cost" json:"totalCost"`

	Notes     string     `db:"notes" json:"notes,omitempty"`
	CreatedBy string     `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	PostedAt  *time.Time `db:"posted_at" json:"postedAt,omitempty"`
	VoidedAt  *time.Time `db:"voided_at" json:"voidedAt,omitempty"`
}

// Validate checks document invariants.
func (o *Order) Validate(ctx context.Context) error {
	if id.IsNil(o.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("order must have at least one line").WithDetail("field", "lines")
	}
	for _, l := range o.Lines {
		if id.IsNil(l.ItemID) || id.IsNil(l.VariantID) {
			return apperror.NewValidation("line item and variant are required").WithDetail("lineNo", l.LineNo)
		}
		if !l.Qty.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").WithDetail("lineNo", l.LineNo)
		}
		if l.UnitCost.IsNegative() {
			return apperror.NewValidation("line unit cost cannot be negative").WithDetail("lineNo", l.LineNo)
		}
	}
	return nil
}

// recalc recomputes TotalCost from lines.
func (o *Order) recalc() {
	var total types.MinorUnits
	for _, l := range o.Lines {
		total += l.Amount()
	}
	o.TotalCost = total
}

// markPosted transitions Draft -> Posted.
func (o *Order) markPosted(at time.Time) error {
	if o.Status != StatusDraft {
		return apperror.NewInvalidState("purchase order", string(o.Status), "post")
	}
	o.Status = StatusPosted
	o.PostedAt = &at
	o.UpdatedAt = at
	return nil
}

// markVoided transitions Posted -> Voided.
func (o *Order) markVoided(at time.Time) error {
	if o.Status != StatusPosted {
		return apperror.NewInvalidState("purchase order", string(o.Status), "void")
	}
	o.Status = StatusVoided
	o.VoidedAt = &at
	o.UpdatedAt = at
	return nil
}
