package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/domain/sale"
	"unistock/internal/infrastructure/storage/postgres"
)

const (
	saleOrdersTable = "doc_sale_orders"
	saleLinesTable  = "doc_sale_lines"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale order repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var saleOrderColumns = []string{
	"id", "number", "buyer_ref", "status", "payment_method",
	"total_amount", "total_cost", "notes", "created_by",
	"created_at", "updated_at", "paid_at", "cancelled_at",
}

// Create stores the order header and its lines. Wrapped in a transaction
// unless the caller already opened one.
func (r *SaleRepo) Create(ctx context.Context, order *sale.Order) error {
	run := r.txManager.RunInTransaction
	if r.txManager.GetTx(ctx) != nil {
		run = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return run(ctx, func(ctx context.Context) error {
		q := r.builder.Insert(saleOrdersTable).
			Columns(saleOrderColumns...).
			Values(
				order.ID, order.Number, order.BuyerRef, string(order.Status),
				string(order.PaymentMethod), int64(order.TotalAmount), int64(order.TotalCost),
				order.Notes, order.CreatedBy,
				order.CreatedAt, order.UpdatedAt, order.PaidAt, order.CancelledAt,
			)

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		querier := r.txManager.GetQuerier(ctx)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		lq := r.builder.Insert(saleLinesTable).
			Columns("order_id", "line_no", "item_id", "variant_id", "qty", "unit_price", "unit_cost")
		for _, l := range order.Lines {
			lq = lq.Values(order.ID, l.LineNo, l.ItemID, l.VariantID, int64(l.Qty), int64(l.UnitPrice), int64(l.UnitCost))
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
func (r *SaleRepo) GetByID(ctx context.Context, orderID id.ID) (*sale.Order, error) {
	q := r.builder.Select(saleOrderColumns...).
		From(saleOrdersTable).
		Where(squirrel.Eq{"id": orderID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order sale.Order
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale order", orderID)
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
func (r *SaleRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*sale.Order, error) {
	q := r.builder.Select(saleOrderColumns...).
		From(saleOrdersTable).
		Where(squirrel.Eq{"id": orderID}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order sale.Order
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale order", orderID)
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

func (r *SaleRepo) loadLines(ctx context.Context, orderID id.ID) ([]sale.Line, error) {
	q := r.builder.Select("line_no", "item_id", "variant_id", "qty", "unit_price", "unit_cost").
		From(saleLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// List returns orders matching the filter, with lines.
func (r *SaleRepo) List(ctx context.Context, filter sale.Filter) ([]sale.Order, error) {
	q := r.builder.Select(saleOrderColumns...).From(saleOrdersTable)

	if filter.BuyerRef != nil {
		q = q.Where(squirrel.Eq{"buyer_ref": *filter.BuyerRef})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
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

	var orders []sale.Order
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
func (r *SaleRepo) UpdateStatus(ctx context.Context, order *sale.Order, from sale.Status) error {
	q := r.builder.Update(saleOrdersTable).
		Set("status", string(order.Status)).
		Set("payment_method", string(order.PaymentMethod)).
		Set("notes", order.Notes).
		Set("updated_at", order.UpdatedAt).
		Set("paid_at", order.PaidAt).
		Set("cancelled_at", order.CancelledAt).
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
		return apperror.NewConflict("sale order was modified concurrently").
			WithDetail("orderId", order.ID.String()).
			WithDetail("expectedStatus", string(from))
	}
	return nil
}

var _ sale.Repository = (*SaleRepo)(nil)
