package purchase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"unistock/internal/core/apperror"
	appctx "unistock/internal/core/context"
	"unistock/internal/core/id"
	"unistock/internal/core/tx"
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/pkg/logger"
)

// DocumentType is the numerator sequence code for purchase orders.
const DocumentType = "PO"

// Catalog resolves variant pricing at order creation.
type Catalog interface {
	VariantSnapshot(ctx context.Context, itemID, variantID id.ID) (catalog.Snapshot, error)
	GetSupplier(ctx context.Context, supplierID id.ID) (*catalog.Supplier, error)
}

// Numerator issues sequential document numbers.
type Numerator interface {
	Next(ctx context.Context, documentType string) (string, error)
}

// Ledger is the write surface of the stock ledger.
type Ledger interface {
	Append(ctx context.Context, entries []ledger.Entry) error
}

// LineInput describes one position of a new order. UnitCost overrides the
// catalog cost when the supplier quoted a different price; nil takes the
// catalog snapshot.
type LineInput struct {
	ItemID    id.ID
	VariantID id.ID
	Qty       types.Quantity
	UnitCost  *types.MinorUnits
}

// CreateInput is the payload for creating a draft order.
type CreateInput struct {
	SupplierID id.ID
	OrderDate  time.Time
	Lines      []LineInput
	Notes      string
}

// Service implements the purchase order workflow.
type Service struct {
	repo      Repository
	catalog   Catalog
	numerator Numerator
	ledger    Ledger
	guard     ledger.Guard
	txManager tx.Manager
}

// NewService creates a new purchase service.
func NewService(repo Repository, cat Catalog, num Numerator, led Ledger, guard ledger.Guard, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		numerator: num,
		ledger:    led,
		guard:     guard,
		txManager: txManager,
	}
}

// Create builds a draft order. Unit costs are snapshotted from the catalog,
// so later price edits do not change the order.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if _, err := s.catalog.GetSupplier(ctx, input.SupplierID); err != nil {
		return nil, fmt.Errorf("check supplier: %w", err)
	}

	now := time.Now().UTC()
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}

	order := &Order{
		ID:         id.New(),
		SupplierID: input.SupplierID,
		Status:     StatusDraft,
		OrderDate:  orderDate,
		Notes:      input.Notes,
		CreatedBy:  appctx.GetUserID(ctx),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i, in := range input.Lines {
		snap, err := s.catalog.VariantSnapshot(ctx, in.ItemID, in.VariantID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		cost := snap.UnitCost
		if in.UnitCost != nil {
			cost = *in.UnitCost
		}
		order.Lines = append(order.Lines, Line{
			LineNo:    i + 1,
			ItemID:    in.ItemID,
			VariantID: in.VariantID,
			Qty:       in.Qty,
			UnitCost:  cost,
		})
	}
	order.recalc()

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.Next(ctx, DocumentType)
	if err != nil {
		return nil, fmt.Errorf("assign number: %w", err)
	}
	order.Number = number

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Info(ctx, "purchase order created",
		"order_id", order.ID,
		"number", order.Number,
		"supplier_id", order.SupplierID,
		"lines", len(order.Lines),
	)
	return order, nil
}

// GetByID returns an order with its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}

// Post credits every line's quantity to the supplier's lot. The status
// change and all ledger entries commit in one transaction; a failed append
// leaves the order in Draft. The order row is locked first so a concurrent
// double post serializes and the loser fails on the committed status.
func (s *Service) Post(ctx context.Context, orderID id.ID) (*Order, error) {
	var posted *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := order.markPosted(now); err != nil {
			return err
		}

		lot := ledger.LotForSupplier(order.SupplierID)
		entries := make([]ledger.Entry, 0, len(order.Lines))
		for _, l := range order.Lines {
			key := ledger.Key{ItemID: l.ItemID, VariantID: l.VariantID, Lot: lot}
			entries = append(entries, ledger.NewEntry(key, l.Qty, ledger.KindPurchase, ledger.RefPurchaseOrder, order.ID, ""))
		}
		if err := s.ledger.Append(ctx, entries); err != nil {
			return fmt.Errorf("append purchase entries: %w", err)
		}

		if err := s.repo.UpdateStatus(ctx, order, StatusDraft); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		posted = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order posted", "order_id", posted.ID, "number", posted.Number)
	return posted, nil
}

// Void reverses a posted order with compensating entries. If any of the
// lot's stock was already consumed the whole void is rejected, so a void
// can never drive a balance negative.
func (s *Service) Void(ctx context.Context, orderID id.ID, reason string) (*Order, error) {
	var voided *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := order.markVoided(now); err != nil {
			return err
		}

		lot := ledger.LotForSupplier(order.SupplierID)
		needed := make(map[ledger.Key]types.Quantity)
		lineNo := make(map[ledger.Key]int)
		for _, l := range order.Lines {
			key := ledger.Key{ItemID: l.ItemID, VariantID: l.VariantID, Lot: lot}
			needed[key] += l.Qty
			if _, ok := lineNo[key]; !ok {
				lineNo[key] = l.LineNo
			}
		}

		keys := make([]ledger.Key, 0, len(needed))
		for key := range needed {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

		var short []apperror.ShortLine
		for _, key := range keys {
			onHand, err := s.guard.BalanceForUpdate(ctx, key)
			if err != nil {
				return fmt.Errorf("lock balance: %w", err)
			}
			if onHand < needed[key] {
				short = append(short, apperror.ShortLine{
					LineNo:    lineNo[key],
					ItemID:    key.ItemID.String(),
					VariantID: key.VariantID.String(),
					Lot:       string(key.Lot),
					Requested: int64(needed[key]),
					Available: int64(onHand),
				})
			}
		}
		if len(short) > 0 {
			return apperror.NewWouldUnderflow(short)
		}

		entries := make([]ledger.Entry, 0, len(order.Lines))
		for _, l := range order.Lines {
			key := ledger.Key{ItemID: l.ItemID, VariantID: l.VariantID, Lot: lot}
			entries = append(entries, ledger.NewEntry(key, l.Qty.Neg(), ledger.KindVoid, ledger.RefPurchaseOrder, order.ID, reason))
		}
		if err := s.ledger.Append(ctx, entries); err != nil {
			return fmt.Errorf("append void entries: %w", err)
		}

		if err := s.repo.UpdateStatus(ctx, order, StatusPosted); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		voided = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order voided", "order_id", voided.ID, "number", voided.Number)
	return voided, nil
}

// ReturnToSupplier debits stock being sent back to the supplier of a posted
// order. Unlike Void it reverses only the given quantities and leaves the
// order Posted.
func (s *Service) ReturnToSupplier(ctx context.Context, orderID id.ID, lines []LineInput, reason string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPosted {
			return apperror.NewInvalidState("purchase order", string(order.Status), "return")
		}

		lot := ledger.LotForSupplier(order.SupplierID)
		needed := make(map[ledger.Key]types.Quantity)
		for i, in := range lines {
			if !in.Qty.IsPositive() {
				return apperror.NewValidation("return quantity must be positive").WithDetail("lineNo", i+1)
			}
			needed[ledger.Key{ItemID: in.ItemID, VariantID: in.VariantID, Lot: lot}] += in.Qty
		}

		keys := make([]ledger.Key, 0, len(needed))
		for key := range needed {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

		var short []apperror.ShortLine
		for _, key := range keys {
			onHand, err := s.guard.BalanceForUpdate(ctx, key)
			if err != nil {
				return fmt.Errorf("lock balance: %w", err)
			}
			if onHand < needed[key] {
				short = append(short, apperror.ShortLine{
					ItemID:    key.ItemID.String(),
					VariantID: key.VariantID.String(),
					Lot:       string(key.Lot),
					Requested: int64(needed[key]),
					Available: int64(onHand),
				})
			}
		}
		if len(short) > 0 {
			return apperror.NewInsufficientStock(short)
		}

		entries := make([]ledger.Entry, 0, len(lines))
		for _, in := range lines {
			key := ledger.Key{ItemID: in.ItemID, VariantID: in.VariantID, Lot: lot}
			entries = append(entries, ledger.NewEntry(key, in.Qty.Neg(), ledger.KindReturnOut, ledger.RefPurchaseOrder, order.ID, reason))
		}
		if err := s.ledger.Append(ctx, entries); err != nil {
			return fmt.Errorf("append return entries: %w", err)
		}

		logger.Info(ctx, "stock returned to supplier", "order_id", order.ID, "lines", len(lines))
		return nil
	})
}
