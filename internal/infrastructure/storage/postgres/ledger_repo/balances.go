package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"unistock/internal/core/id"
	"unistock/internal/core/types"
	"unistock/internal/domain/balance"
	"unistock/internal/domain/ledger"
	"unistock/internal/infrastructure/storage/postgres"
	"unistock/pkg/logger"
)

// Balances implements the materialized balance projection over the
// reg_balances table maintained by Store.Append.
type Balances struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewBalances creates a new balance projection repository.
func NewBalances(txManager *postgres.TxManager) *Balances {
	return &Balances{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type balanceRow struct {
	ItemID         id.ID     `db:"item_id"`
	VariantID      id.ID     `db:"variant_id"`
	LotKey         string    `db:"lot_key"`
	OnHand         int64     `db:"on_hand"`
	LastMovementAt time.Time `db:"last_movement_at"`
}

// BalanceOf implements balance.Projector. Missing rows read as zero.
func (b *Balances) BalanceOf(ctx context.Context, key ledger.Key) (types.Quantity, error) {
	q := b.builder.Select("on_hand").From(balancesTable).
		Where(squirrel.Eq{
			"item_id":    key.ItemID,
			"variant_id": key.VariantID,
			"lot_key":    string(key.Lot),
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var onHand int64
	querier := b.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &onHand, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return types.Quantity(onHand), nil
}

// BalancesByVariant implements balance.Projector.
func (b *Balances) BalancesByVariant(ctx context.Context, itemID, variantID id.ID) (map[ledger.LotKey]types.Quantity, error) {
	q := b.builder.Select("item_id", "variant_id", "lot_key", "on_hand", "last_movement_at").
		From(balancesTable).
		Where(squirrel.Eq{"item_id": itemID, "variant_id": variantID}).
		Where(squirrel.NotEq{"on_hand": int64(0)})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []balanceRow
	querier := b.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	balances := make(map[ledger.LotKey]types.Quantity, len(rows))
	for _, row := range rows {
		balances[ledger.LotKey(row.LotKey)] = types.Quantity(row.OnHand)
	}
	return balances, nil
}

// BalancesByItem implements balance.Projector. Zero rows are dropped.
func (b *Balances) BalancesByItem(ctx context.Context, itemID id.ID) ([]balance.Row, error) {
	q := b.builder.Select("item_id", "variant_id", "lot_key", "on_hand", "last_movement_at").
		From(balancesTable).
		Where(squirrel.Eq{"item_id": itemID}).
		Where(squirrel.NotEq{"on_hand": int64(0)}).
		OrderBy("item_id", "variant_id", "lot_key")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []balanceRow
	querier := b.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	out := make([]balance.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, balance.Row{
			Key: ledger.Key{
				ItemID:    row.ItemID,
				VariantID: row.VariantID,
				Lot:       ledger.LotKey(row.LotKey),
			},
			OnHand:         types.Quantity(row.OnHand),
			LastMovementAt: row.LastMovementAt,
		})
	}
	return out, nil
}

// BalanceForUpdate implements balance.Guard with a pessimistic row lock.
// A missing row means the partition never moved; zero is returned without a
// lock, which is safe because the first movement inserts the row atomically.
func (b *Balances) BalanceForUpdate(ctx context.Context, key ledger.Key) (types.Quantity, error) {
	sql := `
		SELECT on_hand
		FROM reg_balances
		WHERE item_id = $1 AND variant_id = $2 AND lot_key = $3
		FOR UPDATE
	`

	var onHand int64
	querier := b.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &onHand, sql, key.ItemID, key.VariantID, string(key.Lot)); err != nil {
		if pgxscan.NotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance for update: %w", err)
	}
	return types.Quantity(onHand), nil
}

// Rebuild implements balance.Rebuilder: the projection is dropped and
// re-aggregated from the ledger in one transaction. Safe to run repeatedly;
// the result depends only on the ledger contents.
func (b *Balances) Rebuild(ctx context.Context) error {
	return b.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := b.txManager.GetQuerier(ctx)

		if _, err := querier.Exec(ctx, `DELETE FROM reg_balances`); err != nil {
			return fmt.Errorf("clear balances: %w", err)
		}

		tag, err := querier.Exec(ctx, `
			INSERT INTO reg_balances (item_id, variant_id, lot_key, on_hand, last_movement_at, updated_at)
			SELECT item_id, variant_id, lot_key, SUM(qty_delta), MAX(created_at), now()
			FROM ledger_entries
			GROUP BY item_id, variant_id, lot_key
		`)
		if err != nil {
			return fmt.Errorf("rebuild balances: %w", err)
		}

		logger.Info(ctx, "balance projection rebuilt", "rows", tag.RowsAffected())
		return nil
	})
}

var (
	_ balance.Projector = (*Balances)(nil)
	_ balance.Guard     = (*Balances)(nil)
	_ balance.Rebuilder = (*Balances)(nil)
)
