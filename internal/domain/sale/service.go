package sale

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

// DocumentType is the numerator sequence code for sale orders.
const DocumentType = "SO"

// Catalog resolves variant pricing at order creation.
type Catalog interface {
	VariantSnapshot(ctx context.Context, itemID, variantID id.ID) (catalog.Snapshot, error)
}

// Numerator issues sequential document numbers.
type Numerator interface {
	Next(ctx context.Context, documentType string) (string, error)
}

// Projector is the read surface used for the advisory admission check and
// for discovering which lots hold a variant's stock.
type Projector interface {
	BalancesByVariant(ctx context.Context, itemID, variantID id.ID) (map[ledger.LotKey]types.Quantity, error)
}

// Ledger is the read/write surface of the stock ledger the sale workflow needs.
type Ledger interface {
	Append(ctx context.Context, entries []ledger.Entry) error
	Query(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error)
}

// LineInput describes one position of a new order.
type LineInput struct {
	ItemID    id.ID
	VariantID id.ID
	Qty       types.Quantity
}

// CreateInput is the payload for creating a pending order.
type CreateInput struct {
	BuyerRef string
	Lines    []LineInput
	Notes    string
}

// Service implements the sale order workflow.
type Service struct {
	repo      Repository
	catalog   Catalog
	numerator Numerator
	ledger    Ledger
	projector Projector
	guard     ledger.Guard
	txManager tx.Manager
}

// NewService creates a new sale service.
func NewService(repo Repository, cat Catalog, num Numerator, led Ledger, proj Projector, guard ledger.Guard, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		numerator: num,
		ledger:    led,
		projector: proj,
		guard:     guard,
		txManager: txManager,
	}
}

// Create builds a pending order after an advisory admission check: every
// line must fit the currently visible variant balance. The check guides the
// clerk at the counter and holds no reservation; availability is enforced
// again, bindingly, at payment confirmation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	now := time.Now().UTC()
	order := &Order{
		ID:        id.New(),
		BuyerRef:  input.BuyerRef,
		Status:    StatusPending,
		Notes:     input.Notes,
		CreatedBy: appctx.GetUserID(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, in := range input.Lines {
		snap, err := s.catalog.VariantSnapshot(ctx, in.ItemID, in.VariantID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		order.Lines = append(order.Lines, Line{
			LineNo:    i + 1,
			ItemID:    in.ItemID,
			VariantID: in.VariantID,
			Qty:       in.Qty,
			UnitPrice: snap.UnitPrice,
			UnitCost:  snap.UnitCost,
		})
	}
	order.recalc()

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	if short, err := s.admissionCheck(ctx, order.Lines); err != nil {
		return nil, err
	} else if len(short) > 0 {
		return nil, apperror.NewAdmission(short)
	}

	number, err := s.numerator.Next(ctx, DocumentType)
	if err != nil {
		return nil, fmt.Errorf("assign number: %w", err)
	}
	order.Number = number

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Info(ctx, "sale order created",
		"order_id", order.ID,
		"number", order.Number,
		"buyer_ref", order.BuyerRef,
		"lines", len(order.Lines),
	)
	return order, nil
}

// admissionCheck compares each line against the variant's visible balance.
// Lines for the same variant draw down a shared pool so two lines of 6
// against a stock of 10 are rejected together.
func (s *Service) admissionCheck(ctx context.Context, lines []Line) ([]apperror.ShortLine, error) {
	pool := make(map[id.ID]types.Quantity)
	seen := make(map[id.ID]bool)

	var short []apperror.ShortLine
	for _, l := range lines {
		if !seen[l.VariantID] {
			balances, err := s.projector.BalancesByVariant(ctx, l.ItemID, l.VariantID)
			if err != nil {
				return nil, fmt.Errorf("read balances: %w", err)
			}
			var total types.Quantity
			for _, qty := range balances {
				total += qty
			}
			pool[l.VariantID] = total
			seen[l.VariantID] = true
		}
		if pool[l.VariantID] < l.Qty {
			short = append(short, apperror.ShortLine{
				LineNo:    l.LineNo,
				ItemID:    l.ItemID.String(),
				VariantID: l.VariantID.String(),
				Requested: int64(l.Qty),
				Available: int64(pool[l.VariantID]),
			})
		}
		pool[l.VariantID] -= l.Qty
	}
	return short, nil
}

// GetByID returns an order with its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}

// ConfirmPayment settles the order and debits stock. The whole operation is
// one transaction: the order row is locked first, so a concurrent confirm
// or cancel of the same order serializes here and the loser fails on the
// committed status. Then every candidate balance row is locked in
// deterministic key order, availability is re-validated against the locked
// values, and either all lines debit or none do. Short lines fail the
// commit with the full list so the clerk can adjust the cart.
func (s *Service) ConfirmPayment(ctx context.Context, orderID id.ID, method PaymentMethod) (*Order, error) {
	if !method.Valid() {
		return nil, apperror.NewValidation("unknown payment method").WithDetail("paymentMethod", string(method))
	}

	var paid *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := order.markPaid(method, now); err != nil {
			return err
		}

		entries, short, err := s.allocate(ctx, order)
		if err != nil {
			return err
		}
		if len(short) > 0 {
			return apperror.NewInsufficientStock(short)
		}

		if err := s.ledger.Append(ctx, entries); err != nil {
			return fmt.Errorf("append sale entries: %w", err)
		}
		if err := s.repo.UpdateStatus(ctx, order, StatusPending); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		paid = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale order paid",
		"order_id", paid.ID,
		"number", paid.Number,
		"payment_method", string(method),
		"total_amount", int64(paid.TotalAmount),
	)
	return paid, nil
}

// allocate locks the balance rows backing the order's variants and maps
// each line onto concrete lots. Locking happens strictly in Key order
// across all lots first; allocation preference (legacy stock before
// supplier lots, then lot ascending) is applied afterwards over the locked
// values, so concurrent commits cannot deadlock.
func (s *Service) allocate(ctx context.Context, order *Order) ([]ledger.Entry, []apperror.ShortLine, error) {
	type variantKey struct{ item, variant id.ID }

	lotsByVariant := make(map[variantKey][]ledger.LotKey)
	var lockKeys []ledger.Key
	seen := make(map[variantKey]bool)

	for _, l := range order.Lines {
		vk := variantKey{l.ItemID, l.VariantID}
		if seen[vk] {
			continue
		}
		seen[vk] = true

		balances, err := s.projector.BalancesByVariant(ctx, l.ItemID, l.VariantID)
		if err != nil {
			return nil, nil, fmt.Errorf("read balances: %w", err)
		}
		for lot := range balances {
			lotsByVariant[vk] = append(lotsByVariant[vk], lot)
			lockKeys = append(lockKeys, ledger.Key{ItemID: l.ItemID, VariantID: l.VariantID, Lot: lot})
		}
	}

	sort.Slice(lockKeys, func(i, j int) bool { return lockKeys[i].Less(lockKeys[j]) })

	locked := make(map[ledger.Key]types.Quantity, len(lockKeys))
	for _, key := range lockKeys {
		onHand, err := s.guard.BalanceForUpdate(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("lock balance: %w", err)
		}
		locked[key] = onHand
	}

	for vk := range lotsByVariant {
		sortLotsForConsumption(lotsByVariant[vk])
	}

	var entries []ledger.Entry
	var short []apperror.ShortLine
	for _, l := range order.Lines {
		vk := variantKey{l.ItemID, l.VariantID}

		var available types.Quantity
		for _, lot := range lotsByVariant[vk] {
			available += locked[ledger.Key{ItemID: l.ItemID, VariantID: l.VariantID, Lot: lot}]
		}
		if available < l.Qty {
			short = append(short, apperror.ShortLine{
				LineNo:    l.LineNo,
				ItemID:    l.ItemID.String(),
				VariantID: l.VariantID.String(),
				Requested: int64(l.Qty),
				Available: int64(available),
			})
			continue
		}

		remaining := l.Qty
		for _, lot := range lotsByVariant[vk] {
			if remaining == 0 {
				break
			}
			key := ledger.Key{ItemID: l.ItemID, VariantID: l.VariantID, Lot: lot}
			take := locked[key]
			if take <= 0 {
				continue
			}
			if take > remaining {
				take = remaining
			}
			locked[key] -= take
			remaining -= take
			entries = append(entries, ledger.NewEntry(key, take.Neg(), ledger.KindSale, ledger.RefSaleOrder, order.ID, ""))
		}
	}
	return entries, short, nil
}

// sortLotsForConsumption orders lots so legacy stock is sold first, then
// supplier lots in stable ascending order.
func sortLotsForConsumption(lots []ledger.LotKey) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i] == ledger.LotLegacy {
			return lots[j] != ledger.LotLegacy
		}
		if lots[j] == ledger.LotLegacy {
			return false
		}
		return lots[i] < lots[j]
	})
}

// Cancel closes a pending order. No ledger effect: nothing was debited yet.
// The transition still runs under the order row lock so a cancel racing a
// payment confirmation cannot close an order whose stock was just debited.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, reason string) (*Order, error) {
	var cancelled *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if err := order.markCancelled(time.Now().UTC()); err != nil {
			return err
		}
		if reason != "" {
			order.Notes = reason
		}
		if err := s.repo.UpdateStatus(ctx, order, StatusPending); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale order cancelled", "order_id", cancelled.ID, "number", cancelled.Number)
	return cancelled, nil
}

// ReturnFromBuyer credits returned uniforms back to the lots they were sold
// from. The return is capped per lot at the quantity this order actually
// debited, net of previous returns.
func (s *Service) ReturnFromBuyer(ctx context.Context, orderID id.ID, lines []LineInput, reason string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Row lock so two concurrent returns compute the returnable cap
		// against the same committed history.
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPaid {
			return apperror.NewInvalidState("sale order", string(order.Status), "return")
		}

		history, err := s.ledger.Query(ctx, ledger.Filter{RefID: &order.ID})
		if err != nil {
			return fmt.Errorf("query sale entries: %w", err)
		}

		// Net returnable quantity per lot: what the sale debited minus what
		// was already credited back.
		returnable := make(map[ledger.Key]types.Quantity)
		for _, e := range history {
			switch e.Kind {
			case ledger.KindSale:
				returnable[e.Key()] += e.QtyDelta.Abs()
			case ledger.KindReturnIn:
				returnable[e.Key()] -= e.QtyDelta
			}
		}

		var entries []ledger.Entry
		for i, in := range lines {
			if !in.Qty.IsPositive() {
				return apperror.NewValidation("return quantity must be positive").WithDetail("lineNo", i+1)
			}

			remaining := in.Qty
			for _, e := range history {
				if remaining == 0 {
					break
				}
				if e.Kind != ledger.KindSale || e.ItemID != in.ItemID || e.VariantID != in.VariantID {
					continue
				}
				key := e.Key()
				take := returnable[key]
				if take <= 0 {
					continue
				}
				if take > remaining {
					take = remaining
				}
				returnable[key] -= take
				remaining -= take
				entries = append(entries, ledger.NewEntry(key, take, ledger.KindReturnIn, ledger.RefSaleOrder, order.ID, reason))
			}
			if remaining > 0 {
				return apperror.NewValidation("return exceeds sold quantity").
					WithDetail("lineNo", i+1).
					WithDetail("variantId", in.VariantID.String())
			}
		}

		if err := s.ledger.Append(ctx, entries); err != nil {
			return fmt.Errorf("append return entries: %w", err)
		}

		logger.Info(ctx, "buyer return recorded", "order_id", order.ID, "lines", len(lines))
		return nil
	})
}
