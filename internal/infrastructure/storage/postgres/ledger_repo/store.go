// Package ledger_repo provides the PostgreSQL implementation of the stock
// ledger and its materialized balance projection.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"unistock/internal/core/apperror"
	"unistock/internal/core/types"
	"unistock/internal/domain/ledger"
	"unistock/internal/infrastructure/storage/postgres"
)

const (
	entriesTable  = "ledger_entries"
	balancesTable = "reg_balances"
)

// Store implements ledger.Store on PostgreSQL. Every append maintains the
// reg_balances projection in the same transaction, and the table's CHECK
// (on_hand >= 0) backstops the non-negativity invariant even if a caller
// skips the advisory locking.
type Store struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

// NewStore creates a new PostgreSQL ledger store.
func NewStore(txManager *postgres.TxManager) *Store {
	return &Store{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var entryColumns = []string{
	"id", "item_id", "variant_id", "lot_key", "qty_delta", "kind",
	"ref_type", "ref_id", "notes", "created_by", "created_at",
}

// Append implements ledger.Store. Entries and the balance projection commit
// together; outside a caller transaction one is opened here.
func (s *Store) Append(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if s.txManager.GetTx(ctx) != nil {
		return s.appendInTx(ctx, entries)
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.appendInTx(ctx, entries)
	})
}

func (s *Store) appendInTx(ctx context.Context, entries []ledger.Entry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.ID, e.ItemID, e.VariantID, string(e.Lot), int64(e.QtyDelta), string(e.Kind),
			e.RefType, e.RefID, e.Notes, e.CreatedBy, e.CreatedAt,
		})
	}
	if _, err := s.inserter.CopyFromSlice(ctx, entriesTable, entryColumns, rows); err != nil {
		return fmt.Errorf("copy entries: %w", err)
	}

	// Net delta per partition, folded into the projection in one batch.
	deltas := make(map[ledger.Key]types.Quantity)
	order := make([]ledger.Key, 0)
	for _, e := range entries {
		key := e.Key()
		if _, seen := deltas[key]; !seen {
			order = append(order, key)
		}
		deltas[key] += e.QtyDelta
	}

	upserts := make([]postgres.BatchQuery, 0, len(order))
	for _, key := range order {
		upserts = append(upserts, postgres.BatchQuery{
			SQL: `
				INSERT INTO reg_balances (item_id, variant_id, lot_key, on_hand, last_movement_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
				ON CONFLICT (item_id, variant_id, lot_key) DO UPDATE
				SET on_hand = reg_balances.on_hand + EXCLUDED.on_hand,
				    last_movement_at = now(),
				    updated_at = now()
			`,
			Args: []any{key.ItemID, key.VariantID, string(key.Lot), int64(deltas[key])},
		})
	}
	if err := s.inserter.ExecuteBatch(ctx, upserts); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "balance constraint violated").WithCause(err)
		}
		return fmt.Errorf("update balances: %w", err)
	}
	return nil
}

// Query implements ledger.Store.
func (s *Store) Query(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error) {
	q := s.builder.Select(entryColumns...).From(entriesTable)

	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.VariantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *filter.VariantID})
	}
	if filter.Lot != nil {
		q = q.Where(squirrel.Eq{"lot_key": string(*filter.Lot)})
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		q = q.Where(squirrel.Eq{"kind": kinds})
	}
	if filter.RefID != nil {
		q = q.Where(squirrel.Eq{"ref_id": *filter.RefID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at", "id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.Entry
	querier := s.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

var _ ledger.Store = (*Store)(nil)
