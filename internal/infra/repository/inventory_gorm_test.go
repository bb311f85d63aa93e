package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_Reserve(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewInventoryGormRepository(gdb)
	v := testutil.SeedVariant(t, gdb, testutil.VariantSeed{Name: "Tee", Price: 100000, Stock: 3, Active: true})
	ctx := context.Background()

	ok, err := r.Reserve(ctx, v.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), testutil.Stock(t, gdb, v.ID))

	// 足りないときは何も変えない
	ok, err = r.Reserve(ctx, v.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), testutil.Stock(t, gdb, v.ID))

	ok, err = r.Reserve(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), testutil.Stock(t, gdb, v.ID))

	_, err = r.Reserve(ctx, v.ID, 0)
	assert.Error(t, err)
}

// 同時に取り合っても在庫はマイナスにならない
func TestInventory_Reserve_Concurrent(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewInventoryGormRepository(gdb)
	v := testutil.SeedVariant(t, gdb, testutil.VariantSeed{Name: "Tee", Price: 100000, Stock: 5, Active: true})

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Reserve(context.Background(), v.ID, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, won)
	assert.Equal(t, int64(0), testutil.Stock(t, gdb, v.ID))
}

func TestInventory_RestoreAndSetStock(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewInventoryGormRepository(gdb)
	v := testutil.SeedVariant(t, gdb, testutil.VariantSeed{Name: "Tee", Price: 100000, Stock: 1, Active: true})
	ctx := context.Background()

	require.NoError(t, r.Restore(ctx, v.ID, 4))
	assert.Equal(t, int64(5), testutil.Stock(t, gdb, v.ID))

	assert.ErrorIs(t, r.Restore(ctx, 9999, 1), repo.ErrNotFound)
	assert.Error(t, r.Restore(ctx, v.ID, -1))

	require.NoError(t, r.SetStock(ctx, v.ID, 12))
	assert.Equal(t, int64(12), testutil.Stock(t, gdb, v.ID))
	assert.Error(t, r.SetStock(ctx, v.ID, -1))
	assert.ErrorIs(t, r.SetStock(ctx, 9999, 1), repo.ErrNotFound)

	require.NoError(t, r.CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductVariantID: v.ID,
		Delta:            7,
		Reason:           "棚卸し",
	}))
	var n int64
	require.NoError(t, gdb.Model(&model.InventoryAdjustment{}).Where("product_variant_id = ?", v.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	gdb := testutil.OpenDB(t)
	v := testutil.SeedVariant(t, gdb, testutil.VariantSeed{Name: "Tee", Price: 100000, Stock: 3, Active: true})
	tm := NewTxManagerGorm(gdb)

	err := tm.WithinTx(context.Background(), func(r repo.TxRepos) error {
		ok, err := r.Inventory().Reserve(context.Background(), v.ID, 3)
		require.NoError(t, err)
		require.True(t, ok)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int64(3), testutil.Stock(t, gdb, v.ID))
}
