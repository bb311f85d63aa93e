package usecase_test

import (
	"context"
	"testing"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	infraRepo "github.com/rs-labo46/ec-order-api/internal/infra/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryUsecase_SetStock(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.OpenDB(t)
	uc := usecase.NewInventoryUsecase(infraRepo.NewTxManagerGorm(gdb), &testutil.FixedClock{T: baseTime}, nil)

	admin := testutil.SeedUser(t, gdb, model.RoleAdmin)
	v := testutil.SeedVariant(t, gdb, testutil.VariantSeed{Name: "Shirt", Price: 100000, Stock: 10, Active: true})

	out, err := uc.SetStock(ctx, admin.ID, v.ID, 4, " stocktake ")
	require.NoError(t, err)
	assert.Equal(t, usecase.SetStockOutput{ProductVariantID: v.ID, Before: 10, Stock: 4}, out)
	assert.Equal(t, int64(4), testutil.Stock(t, gdb, v.ID))

	var adj model.InventoryAdjustment
	require.NoError(t, gdb.Where("product_variant_id = ?", v.ID).First(&adj).Error)
	assert.Equal(t, int64(-6), adj.Delta)
	assert.Equal(t, "stocktake", adj.Reason)
	assert.Equal(t, admin.ID, adj.ActorUserID)

	var log model.AuditLog
	require.NoError(t, gdb.Where("action = ?", model.AuditActionUpdateStock).First(&log).Error)
	assert.Equal(t, v.ID, log.ResourceID)
	assert.Equal(t, `{"stock":10}`, log.BeforeJSON)
	assert.Equal(t, `{"stock":4}`, log.AfterJSON)
}

func TestInventoryUsecase_SetStock_Errors(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.OpenDB(t)
	uc := usecase.NewInventoryUsecase(infraRepo.NewTxManagerGorm(gdb), nil, nil)

	admin := testutil.SeedUser(t, gdb, model.RoleAdmin)
	v := testutil.SeedVariant(t, gdb, testutil.VariantSeed{Name: "Shirt", Price: 100000, Stock: 10, Active: true})

	_, err := uc.SetStock(ctx, admin.ID, v.ID, -1, "oops")
	assertKind(t, err, usecase.ErrValidation)

	_, err = uc.SetStock(ctx, admin.ID, v.ID, 5, "")
	assertKind(t, err, usecase.ErrValidation)

	_, err = uc.SetStock(ctx, admin.ID, 9999, 5, "stocktake")
	assertKind(t, err, usecase.ErrNotFound)

	assert.Equal(t, int64(10), testutil.Stock(t, gdb, v.ID))
	assert.Equal(t, int64(0), countRows(t, gdb, &model.InventoryAdjustment{}))
}
