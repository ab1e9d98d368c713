// Package order_repo provides PostgreSQL implementations of the order
// repositories.
package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/domain/purchase"
	"unistock/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable = "doc_purchase_orders"
	purchaseLinesTable  = "doc_purchase_lines"
)

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewPurchaseRepo creates a new purchase order repository.
func NewPurchaseRepo(txManager *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var purchaseOrderColumns = []string{
	"id", "number", "supplier_id", "status", "order_date", "total_cost",
	"notes", "created_by", "created_at", "updated_at", "posted_at", "voided_at",
}

// Create stores the order header and its lines. Wrapped in a transaction
// unless the caller already opened one.
func (r *PurchaseRepo) Create(ctx context.Context, order *purchase.Order) error {
	run := r.txManager.RunInTransaction
	if r.txManager.GetTx(ctx) != nil {
		run = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return run(ctx, func(ctx context.Context) error {
		q := r.builder.Insert(purchaseOrdersTable).
			Columns(purchaseOrderColumns...).
			Values(
				order.ID, order.Number, order.SupplierID, string(order.Status),
				order.OrderDate, int64(order.TotalCost),
				order.Notes, order.CreatedBy, order.CreatedAt, order.UpdatedAt,
				order.PostedAt, order.VoidedAt,
			)

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		querier := r.txManager.GetQuerier(ctx)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		lq := r.builder.Insert(purchaseLinesTable).
			Columns("order_id", "line_no", "item_id", "variant_id", "qty", "unit_cost")
		for _, l := range order.Lines {
			lq = lq.Values(order.ID, l.LineNo, l.ItemID, l.VariantID, int64(l.Qty), int64(l.UnitCost))
		}
		sql, args, err = lq.ToSql()
		if err != nil {
			return fmt.Errorf("build lines insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		return nil
	})
}

// GetByID returns the order with its lines.
func (r *PurchaseRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	q := r.builder.Select(purchaseOrderColumns...).
		From(purchaseOrdersTable).
		Where(squirrel.Eq{"id": orderID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order purchase.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := r.loadLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

// GetForUpdate returns the order with its header row locked for the rest of
// the transaction. Lines are immutable after creation and need no lock.
func (r *PurchaseRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	q := r.builder.Select(purchaseOrderColumns...).
		From(purchaseOrdersTable).
		Where(squirrel.Eq{"id": orderID}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order purchase.Order
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase order", orderID)
		}
		return nil, fmt.Errorf("get order for update: %w", err)
	}

	lines, err := r.loadLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (r *PurchaseRepo) loadLines(ctx context.Context, orderID id.ID) ([]purchase.Line, error) {
	q := r.builder.Select("line_no", "item_id", "variant_id", "qty", "unit_cost").
		From(purchaseLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []purchase.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// List returns order headers matching the filter, without lines.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.Filter) ([]purchase.Order, error) {
	q := r.builder.Select(purchaseOrderColumns...).From(purchaseOrdersTable)

	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	q = q.OrderBy("number")
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

	var orders []purchase.Order
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

// UpdateStatus persists a lifecycle transition. The status predicate makes
// the write conditional: if a concurrent transition already moved the order
// past `from`, zero rows match and the caller's transaction must abort.
func (r *PurchaseRepo) UpdateStatus(ctx context.Context, order *purchase.Order, from purchase.Status) error {
	q := r.builder.Update(purchaseOrdersTable).
		Set("status", string(order.Status)).
		Set("updated_at", order.UpdatedAt).
		Set("posted_at", order.PostedAt).
		Set("voided_at", order.VoidedAt).
		Where(squirrel.Eq{"id": order.ID}).
		Where(squirrel.Eq{"status": string(from)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("purchase order was modified concurrently").
			WithDetail("orderId", order.ID.String()).
			WithDetail("expectedStatus", string(from))
	}
	return nil
}

var _ purchase.Repository = (*PurchaseRepo)(nil)
