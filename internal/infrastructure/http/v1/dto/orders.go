package dto

import (
	"time"

	"unistock/internal/core/types"
	"unistock/internal/domain/purchase"
	"unistock/internal/domain/sale"
)

// PurchaseLineRequest is one position of a purchase order. UnitCost nil
// means the catalog cost is snapshotted.
type PurchaseLineRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Qty       int64  `json:"qty" binding:"required"`
	UnitCost  *int64 `json:"unitCost"`
}

// CreatePurchaseOrderRequest creates a draft purchase order.
type CreatePurchaseOrderRequest struct {
	SupplierID string                `json:"supplierId" binding:"required"`
	OrderDate  *time.Time            `json:"orderDate"`
	Lines      []PurchaseLineRequest `json:"lines" binding:"required"`
	Notes      string                `json:"notes"`
}

// VoidPurchaseOrderRequest voids a posted order.
type VoidPurchaseOrderRequest struct {
	Reason string `json:"reason"`
}

// SupplierReturnRequest sends stock back to the supplier of a posted order.
type SupplierReturnRequest struct {
	Lines  []PurchaseLineRequest `json:"lines" binding:"required"`
	Reason string                `json:"reason"`
}

// SaleLineRequest is one position of a sale order.
type SaleLineRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Qty       int64  `json:"qty" binding:"required"`
}

// CreateSaleOrderRequest creates a pending sale order.
type CreateSaleOrderRequest struct {
	BuyerRef string            `json:"buyerRef" binding:"required"`
	Lines    []SaleLineRequest `json:"lines" binding:"required"`
	Notes    string            `json:"notes"`
}

// ConfirmPaymentRequest settles a pending order.
type ConfirmPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// CancelSaleOrderRequest closes a pending order.
type CancelSaleOrderRequest struct {
	Reason string `json:"reason"`
}

// BuyerReturnRequest credits returned uniforms from a paid order.
type BuyerReturnRequest struct {
	Lines  []SaleLineRequest `json:"lines" binding:"required"`
	Reason string            `json:"reason"`
}

// PurchaseOrderResponse mirrors purchase.Order with money in minor units.
type PurchaseOrderResponse struct {
	ID         string                `json:"id"`
	Number     string                `json:"number"`
	SupplierID string                `json:"supplierId"`
	Status     string                `json:"status"`
	OrderDate  time.Time             `json:"orderDate"`
	Lines      []PurchaseLineDetail  `json:"lines"`
	TotalCost  int64                 `json:"totalCost"`
	Notes      string                `json:"notes,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	PostedAt   *time.Time            `json:"postedAt,omitempty"`
	VoidedAt   *time.Time            `json:"voidedAt,omitempty"`
}

// PurchaseLineDetail is one stored order line.
type PurchaseLineDetail struct {
	LineNo    int    `json:"lineNo"`
	ItemID    string `json:"itemId"`
	VariantID string `json:"variantId"`
	Qty       int64  `json:"qty"`
	UnitCost  int64  `json:"unitCost"`
	Amount    int64  `json:"amount"`
}

// FromPurchaseOrder maps a domain order to its response shape.
func FromPurchaseOrder(o *purchase.Order) *PurchaseOrderResponse {
	resp := &PurchaseOrderResponse{
		ID:         o.ID.String(),
		Number:     o.Number,
		SupplierID: o.SupplierID.String(),
		Status:     string(o.Status),
		OrderDate:  o.OrderDate,
		TotalCost:  int64(o.TotalCost),
		Notes:      o.Notes,
		CreatedAt:  o.CreatedAt,
		PostedAt:   o.PostedAt,
		VoidedAt:   o.VoidedAt,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, PurchaseLineDetail{
			LineNo:    l.LineNo,
			ItemID:    l.ItemID.String(),
			VariantID: l.VariantID.String(),
			Qty:       int64(l.Qty),
			UnitCost:  int64(l.UnitCost),
			Amount:    int64(l.Amount()),
		})
	}
	return resp
}

// SaleOrderResponse mirrors sale.Order with money in minor units.
type SaleOrderResponse struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	BuyerRef      string           `json:"buyerRef"`
	Status        string           `json:"status"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	Lines         []SaleLineDetail `json:"lines"`
	TotalAmount   int64            `json:"totalAmount"`
	TotalCost     int64            `json:"totalCost"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	PaidAt        *time.Time       `json:"paidAt,omitempty"`
	CancelledAt   *time.Time       `json:"cancelledAt,omitempty"`
}

// SaleLineDetail is one stored order line.
type SaleLineDetail struct {
	LineNo    int    `json:"lineNo"`
	ItemID    string `json:"itemId"`
	VariantID string `json:"variantId"`
	Qty       int64  `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	UnitCost  int64  `json:"unitCost"`
	Amount    int64  `json:"amount"`
}

// FromSaleOrder maps a domain order to its response shape.
func FromSaleOrder(o *sale.Order) *SaleOrderResponse {
	resp := &SaleOrderResponse{
		ID:            o.ID.String(),
		Number:        o.Number,
		BuyerRef:      o.BuyerRef,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		TotalAmount:   int64(o.TotalAmount),
		TotalCost:     int64(o.TotalCost),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
		CancelledAt:   o.CancelledAt,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, SaleLineDetail{
			LineNo:    l.LineNo,
			ItemID:    l.ItemID.String(),
			VariantID: l.VariantID.String(),
			Qty:       int64(l.Qty),
			UnitPrice: int64(l.UnitPrice),
			UnitCost:  int64(l.UnitCost),
			Amount:    int64(l.Amount()),
		})
	}
	return resp
}

// ToPurchaseLineInputs maps request lines to service inputs.
func ToPurchaseLineInputs(lines []PurchaseLineRequest) ([]purchase.LineInput, error) {
	out := make([]purchase.LineInput, 0, len(lines))
	for _, l := range lines {
		itemID, variantID, err := parseLineIDs(l.ItemID, l.VariantID)
		if err != nil {
			return nil, err
		}
		in := purchase.LineInput{
			ItemID:    itemID,
			VariantID: variantID,
			Qty:       types.Quantity(l.Qty),
		}
		if l.UnitCost != nil {
			cost := types.MinorUnits(*l.UnitCost)
			in.UnitCost = &cost
		}
		out = append(out, in)
	}
	return out, nil
}

// ToSaleLineInputs maps request lines to service inputs.
func ToSaleLineInputs(lines []SaleLineRequest) ([]sale.LineInput, error) {
	out := make([]sale.LineInput, 0, len(lines))
	for _, l := range lines {
		itemID, variantID, err := parseLineIDs(l.ItemID, l.VariantID)
		if err != nil {
			return nil, err
		}
		out = append(out, sale.LineInput{
			ItemID:    itemID,
			VariantID: variantID,
			Qty:       types.Quantity(l.Qty),
		})
	}
	return out, nil
}
