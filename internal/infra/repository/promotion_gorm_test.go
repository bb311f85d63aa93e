package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPromo(t *testing.T, r *PromotionGormRepository, code string, limit *int64, used int64) model.Promotion {
	t.Helper()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return testutil.SeedPromotion(t, r.db, testutil.PromotionSeed{
		Code:       code,
		Type:       model.DiscountTypeFixedAmount,
		Value:      10000,
		UsageLimit: limit,
		UsedCount:  used,
		Start:      now.Add(-24 * time.Hour),
		End:        now.Add(24 * time.Hour),
	})
}

func TestPromotion_FindByCode(t *testing.T) {
	r := NewPromotionGormRepository(testutil.OpenDB(t))
	p := seedPromo(t, r, "SAVE10", nil, 0)

	got, err := r.FindByCode(context.Background(), "  save10 ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = r.FindByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = r.FindByID(context.Background(), 9999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestPromotion_CommitRespectsLimit(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewPromotionGormRepository(gdb)
	limit := int64(2)
	p := seedPromo(t, r, "LIMIT2", &limit, 1)
	ctx := context.Background()

	ok, err := r.Commit(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), testutil.UsedCount(t, gdb, p.ID))

	// 上限到達
	ok, err = r.Commit(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), testutil.UsedCount(t, gdb, p.ID))
}

func TestPromotion_CommitUnlimited(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewPromotionGormRepository(gdb)
	p := seedPromo(t, r, "FREE", nil, 0)

	for i := 0; i < 3; i++ {
		ok, err := r.Commit(context.Background(), p.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, int64(3), testutil.UsedCount(t, gdb, p.ID))
}

func TestPromotion_RollbackFloorsAtZero(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewPromotionGormRepository(gdb)
	p := seedPromo(t, r, "BACK", nil, 1)
	ctx := context.Background()

	require.NoError(t, r.Rollback(ctx, p.ID))
	assert.Equal(t, int64(0), testutil.UsedCount(t, gdb, p.ID))

	require.NoError(t, r.Rollback(ctx, p.ID))
	assert.Equal(t, int64(0), testutil.UsedCount(t, gdb, p.ID))
}
