// Package sale implements the sale order workflow. Creating an order only
// checks availability as an advisory hint; stock leaves the ledger at
// payment confirmation, where availability is re-validated atomically so a
// sale can never drive a balance negative or debit partially.
package sale

import (
	"context"
	"time"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
)

// Status is the sale order lifecycle state.
type Status string

const (
	// StatusPending: reserved nothing, stock untouched.
	StatusPending Status = "pending"
	// StatusPaid: stock debited, order settled.
	StatusPaid Status = "paid"
	// StatusCancelled: closed without ledger effect.
	StatusCancelled Status = "cancelled"
)

// PaymentMethod records how a paid order was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Line is one sold position. UnitPrice and UnitCost are catalog snapshots
// frozen at order creation.
type Line struct {
	LineNo    int              `db:"line_no" json:"lineNo"`
	ItemID    id.ID            `db:"item_id" json:"itemId"`
	VariantID id.ID            `db:"variant_id" json:"variantId"`
	Qty       types.Quantity   `db:"qty" json:"qty"`
	UnitPrice types.MinorUnits `db:"unit_price" json:"unitPrice"`
	UnitCost  types.MinorUnits `db:"unit_cost" json:"unitCost"`
}

// Amount returns the line revenue in minor units.
func (l Line) Amount() types.MinorUnits {
	return types.MinorUnits(int64(l.Qty) * int64(l.UnitPrice))
}

// CostAmount returns the line cost in minor units.
func (l Line) CostAmount() types.MinorUnits {
	return types.MinorUnits(int64(l.Qty) * int64(l.UnitCost))
}

// Order is a sale order document. BuyerRef is a free-form reference to the
// student or parent the uniforms are sold to.
type Order struct {
	ID       id.ID  `db:"id" json:"id"`
	Number   string `db:"number" json:"number"`
	BuyerRef string `db:"buyer_ref" json:"buyerRef"`
	Status   Status `db:"status" json:"status"`

	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod,omitempty"`

	Lines []Line `db:"-" json:"lines"`

	// TotalAmount is revenue, TotalCost the snapshotted cost of goods sold.
	TotalAmount types.MinorUnits `db:"total_amount" json:"totalAmount"`
	TotalCost   types.MinorUnits `db:"total_cost" json:"totalCost"`

	Notes       string     `db:"notes" json:"notes,omitempty"`
	CreatedBy   string     `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	PaidAt      *time.Time `db:"paid_at" json:"paidAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
}

// Validate checks document invariants.
func (o *Order) Validate(ctx context.Context) error {
	if o.BuyerRef == "" {
		return apperror.NewValidation("buyer reference is required").WithDetail("field", "buyerRef")
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
	}
	return nil
}

// recalc recomputes order totals from lines.
func (o *Order) recalc() {
	var amount, cost types.MinorUnits
	for _, l := range o.Lines {
		amount += l.Amount()
		cost += l.CostAmount()
	}
	o.TotalAmount = amount
	o.TotalCost = cost
}

// markPaid transitions Pending -> Paid.
func (o *Order) markPaid(method PaymentMethod, at time.Time) error {
	if o.Status != StatusPending {
		return apperror.NewInvalidState("sale order", string(o.Status), "confirm payment")
	}
	o.Status = StatusPaid
	o.PaymentMethod = method
	o.PaidAt = &at
	o.UpdatedAt = at
	return nil
}

// markCancelled transitions Pending -> Cancelled.
func (o *Order) markCancelled(at time.Time) error {
	if o.Status != StatusPending {
		return apperror.NewInvalidState("sale order", string(o.Status), "cancel")
	}
	o.Status = StatusCancelled
	o.CancelledAt = &at
	o.UpdatedAt = at
	return nil
}
