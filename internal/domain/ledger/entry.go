// Package ledger provides the append-only stock ledger, the single source
// of truth for uniform inventory. Entries are immutable signed quantity
// deltas; corrections are compensating entries, never updates or deletes.
package ledger

import (
	"time"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
)

// Kind classifies the business cause of a ledger entry.
type Kind string

const (
	// KindInit seeds opening stock (legacy inventory without a supplier lot).
	KindInit Kind = "init"
	// KindPurchase credits stock from a posted purchase order.
	KindPurchase Kind = "purchase"
	// KindAdjustment records a manual correction of either sign.
	KindAdjustment Kind = "adjustment"
	// KindSale debits stock for a paid sale order.
	KindSale Kind = "sale"
	// KindReturnIn credits stock returned by a buyer.
	KindReturnIn Kind = "return_in"
	// KindReturnOut debits stock sent back to a supplier.
	KindReturnOut Kind = "return_out"
	// KindVoid reverses a posted purchase order.
	KindVoid Kind = "void"
)

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInit, KindPurchase, KindAdjustment, KindSale, KindReturnIn, KindReturnOut, KindVoid:
		return true
	}
	return false
}

// LotKey partitions stock by provenance: the supplier it came from, or the
// legacy sentinel for pre-system stock with no supplier attribution.
type LotKey string

// LotLegacy is the no-supplier sentinel lot. Suppliers are UUID strings,
// so the sentinel cannot collide with a real lot.
const LotLegacy LotKey = "__legacy__"

// LotForSupplier builds the lot key for a supplier.
func LotForSupplier(supplierID id.ID) LotKey {
	return LotKey(supplierID.String())
}

// Reference document types for RefType.
const (
	RefPurchaseOrder = "PurchaseOrder"
	RefSaleOrder     = "SaleOrder"
)

// Key identifies a balance partition: what the stock is and which lot it
// is attributed to.
type Key struct {
	ItemID    id.ID  `db:"item_id" json:"itemId"`
	VariantID id.ID  `db:"variant_id" json:"variantId"`
	Lot       LotKey `db:"lot_key" json:"lot"`
}

// Less orders keys deterministically. Commits lock balance rows in this
// order so concurrent multi-line commits cannot deadlock.
func (k Key) Less(other Key) bool {
	if k.ItemID != other.ItemID {
		return k.ItemID.String() < other.ItemID.String()
	}
	if k.VariantID != other.VariantID {
		return k.VariantID.String() < other.VariantID.String()
	}
	return k.Lot < other.Lot
}

// Entry is one immutable row of the stock ledger.
type Entry struct {
	// ID is time-ordered (UUIDv7), giving entries their monotonic identity.
	ID id.ID `db:"id" json:"id"`

	ItemID    id.ID  `db:"item_id" json:"itemId"`
	VariantID id.ID  `db:"variant_id" json:"variantId"`
	Lot       LotKey `db:"lot_key" json:"lot"`

	// QtyDelta is signed: positive credits stock, negative debits it.
	QtyDelta types.Quantity `db:"qty_delta" json:"qtyDelta"`

	Kind Kind `db:"kind" json:"kind"`

	// RefType/RefID link the entry to the order or document that caused it.
	// Both are empty for manual adjustments.
	RefType string `db:"ref_type" json:"refType,omitempty"`
	RefID   id.ID  `db:"ref_id" json:"refId,omitempty"`

	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry creates a ledger entry with generated ID and timestamp.
func NewEntry(key Key, delta types.Quantity, kind Kind, refType string, refID id.ID, notes string) Entry {
	return Entry{
		ID:        id.New(),
		ItemID:    key.ItemID,
		VariantID: key.VariantID,
		Lot:       key.Lot,
		QtyDelta:  delta,
		Kind:      kind,
		RefType:   refType,
		RefID:     refID,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
}

// Key returns the balance partition this entry applies to.
func (e *Entry) Key() Key {
	return Key{ItemID: e.ItemID, VariantID: e.VariantID, Lot: e.Lot}
}

// Validate checks entry invariants.
func (e *Entry) Validate() error {
	if id.IsNil(e.ItemID) {
		return apperror.NewValidation("item is required").WithDetail("field", "itemId")
	}
	if id.IsNil(e.VariantID) {
		return apperror.NewValidation("variant is required").WithDetail("field", "variantId")
	}
	if e.Lot == "" {
		return apperror.NewValidation("lot key is required").WithDetail("field", "lot")
	}
	if e.QtyDelta == 0 {
		return apperror.NewValidation("quantity delta must be non-zero").WithDetail("field", "qtyDelta")
	}
	if !e.Kind.Valid() {
		return apperror.NewValidation("unknown entry kind").WithDetail("kind", string(e.Kind))
	}
	return nil
}

// Filter narrows ledger queries for audit, export and projection rebuild.
// The date range is half-open: FromDate is inclusive, ToDate exclusive.
type Filter struct {
	ItemID    *id.ID
	VariantID *id.ID
	Lot       *LotKey
	Kinds     []Kind
	RefID     *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
