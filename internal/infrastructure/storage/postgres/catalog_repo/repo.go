// Package catalog_repo provides the PostgreSQL implementation of the
// catalog repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/domain/catalog"
	"unistock/internal/infrastructure/storage/postgres"
)

const (
	itemsTable     = "cat_items"
	variantsTable  = "cat_variants"
	suppliersTable = "cat_suppliers"
)

// Repo implements catalog.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewRepo creates a new catalog repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) CreateItem(ctx context.Context, item *catalog.Item) error {
	q := r.builder.Insert(itemsTable).
		Columns("id", "code", "name", "active", "created_at", "updated_at").
		Values(item.ID, item.Code, item.Name, item.Active, item.CreatedAt, item.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *Repo) GetItem(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	q := r.builder.Select("id", "code", "name", "active", "created_at", "updated_at").
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item catalog.Item
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (r *Repo) ListItems(ctx context.Context) ([]catalog.Item, error) {
	q := r.builder.Select("id", "code", "name", "active", "created_at", "updated_at").
		From(itemsTable).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []catalog.Item
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	return items, nil
}

func (r *Repo) CreateVariant(ctx context.Context, variant *catalog.Variant) error {
	q := r.builder.Insert(variantsTable).
		Columns("id", "item_id", "size", "unit_price", "unit_cost", "created_at", "updated_at").
		Values(variant.ID, variant.ItemID, variant.Size, int64(variant.UnitPrice), int64(variant.UnitCost), variant.CreatedAt, variant.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

func (r *Repo) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	q := r.builder.Select("id", "item_id", "size", "unit_price", "unit_cost", "created_at", "updated_at").
		From(variantsTable).
		Where(squirrel.Eq{"id": variantID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var variant catalog.Variant
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &variant, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &variant, nil
}

func (r *Repo) ListVariantsByItem(ctx context.Context, itemID id.ID) ([]catalog.Variant, error) {
	q := r.builder.Select("id", "item_id", "size", "unit_price", "unit_cost", "created_at", "updated_at").
		From(variantsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("size")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var variants []catalog.Variant
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &variants, sql, args...); err != nil {
		return nil, fmt.Errorf("select variants: %w", err)
	}
	return variants, nil
}

func (r *Repo) UpdateVariantPricing(ctx context.Context, variant *catalog.Variant) error {
	q := r.builder.Update(variantsTable).
		Set("unit_price", int64(variant.UnitPrice)).
		Set("unit_cost", int64(variant.UnitCost)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": variant.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("variant", variant.ID)
	}
	return nil
}

func (r *Repo) CreateSupplier(ctx context.Context, supplier *catalog.Supplier) error {
	q := r.builder.Insert(suppliersTable).
		Columns("id", "name", "contact", "active", "created_at", "updated_at").
		Values(supplier.ID, supplier.Name, supplier.Contact, supplier.Active, supplier.CreatedAt, supplier.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *Repo) GetSupplier(ctx context.Context, supplierID id.ID) (*catalog.Supplier, error) {
	q := r.builder.Select("id", "name", "contact", "active", "created_at", "updated_at").
		From(suppliersTable).
		Where(squirrel.Eq{"id": supplierID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var supplier catalog.Supplier
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &supplier, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("supplier", supplierID)
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &supplier, nil
}

func (r *Repo) ListSuppliers(ctx context.Context) ([]catalog.Supplier, error) {
	q := r.builder.Select("id", "name", "contact", "active", "created_at", "updated_at").
		From(suppliersTable).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var suppliers []catalog.Supplier
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &suppliers, sql, args...); err != nil {
		return nil, fmt.Errorf("select suppliers: %w", err)
	}
	return suppliers, nil
}

var _ catalog.Repository = (*Repo)(nil)
