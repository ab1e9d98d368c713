package ledger

import (
	"context"
	"fmt"

	"unistock/internal/core/apperror"
	appctx "unistock/internal/core/context"
	"unistock/internal/core/id"
	"unistock/internal/core/tx"
	"unistock/internal/core/types"
	"unistock/pkg/logger"
)

// Guard is the narrow locking surface the service needs for manual debits.
// Matches balance.Guard; redeclared here to keep the dependency one-way.
type Guard interface {
	BalanceForUpdate(ctx context.Context, key Key) (types.Quantity, error)
}

// Service provides validated operations over the ledger store. Order
// workflows append through their own services; Service covers the manual
// paths (opening stock, adjustments) and the audit/export read side.
type Service struct {
	store     Store
	guard     Guard
	txManager tx.Manager
}

// NewService creates a new ledger service.
func NewService(store Store, guard Guard, txManager tx.Manager) *Service {
	return &Service{
		store:     store,
		guard:     guard,
		txManager: txManager,
	}
}

// Append validates and writes a batch of entries atomically.
func (s *Service) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	actor := appctx.GetUserID(ctx)
	for i := range entries {
		if entries[i].CreatedBy == "" {
			entries[i].CreatedBy = actor
		}
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	if err := s.store.Append(ctx, entries); err != nil {
		return fmt.Errorf("append entries: %w", err)
	}

	logger.Info(ctx, "ledger entries appended",
		"count", len(entries),
		"kind", entries[0].Kind,
	)
	return nil
}

// Query returns entries matching the filter.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	return s.store.Query(ctx, filter)
}

// RecordOpeningStock seeds legacy stock under the no-supplier lot.
func (s *Service) RecordOpeningStock(ctx context.Context, itemID, variantID id.ID, qty types.Quantity, notes string) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("opening quantity must be positive").WithDetail("field", "qty")
	}

	key := Key{ItemID: itemID, VariantID: variantID, Lot: LotLegacy}
	entry := NewEntry(key, qty, KindInit, "", id.Nil(), notes)
	return s.Append(ctx, []Entry{entry})
}

// RecordAdjustment appends a manual correction. Negative adjustments
// re-validate the balance under lock so they cannot underflow a partition
// concurrently being sold from.
func (s *Service) RecordAdjustment(ctx context.Context, key Key, delta types.Quantity, notes string) error {
	if delta == 0 {
		return apperror.NewValidation("adjustment delta must be non-zero").WithDetail("field", "delta")
	}

	entry := NewEntry(key, delta, KindAdjustment, "", id.Nil(), notes)

	if delta.IsPositive() {
		return s.Append(ctx, []Entry{entry})
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		onHand, err := s.guard.BalanceForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		if onHand+delta < 0 {
			return apperror.NewInsufficientStock([]apperror.ShortLine{{
				ItemID:    key.ItemID.String(),
				VariantID: key.VariantID.String(),
				Lot:       string(key.Lot),
				Requested: int64(delta.Abs()),
				Available: int64(onHand),
			}})
		}
		return s.Append(ctx, []Entry{entry})
	})
}
