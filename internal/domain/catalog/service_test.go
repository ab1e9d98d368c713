package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
)

func TestVariantSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemRepository())

	item := NewItem("POLO", "Polo Shirt")
	require.NoError(t, svc.CreateItem(ctx, item))
	variant := NewVariant(item.ID, "140", 2500, 1400)
	require.NoError(t, svc.CreateVariant(ctx, variant))

	snap, err := svc.VariantSnapshot(ctx, item.ID, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), int64(snap.UnitPrice))
	assert.Equal(t, int64(1400), int64(snap.UnitCost))

	// Variant of another item must not resolve against this one.
	otherItem := NewItem("TROUSERS", "Grey Trousers")
	require.NoError(t, svc.CreateItem(ctx, otherItem))
	_, err = svc.VariantSnapshot(ctx, otherItem.ID, variant.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.VariantSnapshot(ctx, item.ID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestUpdateVariantPricing(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemRepository())

	item := NewItem("POLO", "Polo Shirt")
	require.NoError(t, svc.CreateItem(ctx, item))
	variant := NewVariant(item.ID, "140", 2500, 1400)
	require.NoError(t, svc.CreateVariant(ctx, variant))

	updated, err := svc.UpdateVariantPricing(ctx, variant.ID, 2700, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(2700), int64(updated.UnitPrice))

	// Snapshots taken afterwards see the new pricing.
	snap, err := svc.VariantSnapshot(ctx, item.ID, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2700), int64(snap.UnitPrice))

	_, err = svc.UpdateVariantPricing(ctx, variant.ID, -1, 1500)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.UpdateVariantPricing(ctx, id.New(), 2700, 1500)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestCreateVariantRequiresExistingItem(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemRepository())

	variant := NewVariant(id.New(), "140", 2500, 1400)
	err := svc.CreateVariant(ctx, variant)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}
