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

func TestOrder_IdempotencyKey(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewOrderGormRepository(gdb)
	u1 := testutil.SeedUser(t, gdb, model.RoleUser)
	u2 := testutil.SeedUser(t, gdb, model.RoleUser)
	ctx := context.Background()

	o := testutil.SeedOrder(t, gdb, model.Order{
		UserID:         u1.ID,
		ItemsTotal:     100000,
		TotalMoney:     100000,
		IdempotencyKey: testutil.StrPtr("key-1"),
	})

	got, found, err := r.FindByIdempotencyKey(ctx, u1.ID, "key-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, o.ID, got.ID)

	// キーはユーザーごと
	_, found, err = r.FindByIdempotencyKey(ctx, u2.ID, "key-1")
	require.NoError(t, err)
	assert.False(t, found)

	// 同じユーザー・同じキーは一意制約で弾かれる
	_, err = r.Create(ctx, model.Order{
		UserID:         u1.ID,
		Fullname:       "B",
		PhoneNumber:    "0900000001",
		Address:        "2 Le Loi",
		WardCode:       "20101",
		OrderStatus:    model.OrderStatusPending,
		PaymentMethod:  model.PaymentMethodCOD,
		PaymentStatus:  model.PaymentStatusUnpaid,
		ItemsTotal:     1,
		TotalMoney:     1,
		IdempotencyKey: testutil.StrPtr("key-1"),
	})
	assert.Error(t, err)

	// 別ユーザーなら同じキーでも作れる
	_, err = r.Create(ctx, model.Order{
		UserID:         u2.ID,
		Fullname:       "B",
		PhoneNumber:    "0900000001",
		Address:        "2 Le Loi",
		WardCode:       "20101",
		OrderStatus:    model.OrderStatusPending,
		PaymentMethod:  model.PaymentMethodCOD,
		PaymentStatus:  model.PaymentStatusUnpaid,
		ItemsTotal:     1,
		TotalMoney:     1,
		IdempotencyKey: testutil.StrPtr("key-1"),
	})
	assert.NoError(t, err)
}

func TestOrder_ListExpiredUnpaidIDs(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewOrderGormRepository(gdb)
	u := testutil.SeedUser(t, gdb, model.RoleUser)
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	past := testutil.TimePtr(now.Add(-time.Hour))
	future := testutil.TimePtr(now.Add(time.Hour))

	expired := testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, PaymentMethod: model.PaymentMethodVNPay, PaymentExpiresAt: past, ItemsTotal: 1, TotalMoney: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, PaymentMethod: model.PaymentMethodVNPay, PaymentExpiresAt: future, ItemsTotal: 1, TotalMoney: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, PaymentMethod: model.PaymentMethodVNPay, PaymentStatus: model.PaymentStatusPaid, PaymentExpiresAt: past, ItemsTotal: 1, TotalMoney: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, PaymentMethod: model.PaymentMethodVNPay, OrderStatus: model.OrderStatusCancelled, PaymentExpiresAt: past, ItemsTotal: 1, TotalMoney: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, ItemsTotal: 1, TotalMoney: 1})

	ids, err := r.ListExpiredUnpaidIDs(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{expired.ID}, ids)
}

func TestOrder_ListSyncableIDs(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewOrderGormRepository(gdb)
	u := testutil.SeedUser(t, gdb, model.RoleUser)

	a := testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, OrderStatus: model.OrderStatusConfirmed, ShippingOrderCode: testutil.StrPtr("GHN-1"), ItemsTotal: 1, TotalMoney: 1})
	b := testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, OrderStatus: model.OrderStatusDelivering, ShippingOrderCode: testutil.StrPtr("GHN-2"), ItemsTotal: 1, TotalMoney: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, OrderStatus: model.OrderStatusDelivered, ShippingOrderCode: testutil.StrPtr("GHN-3"), ItemsTotal: 1, TotalMoney: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, OrderStatus: model.OrderStatusConfirmed, ItemsTotal: 1, TotalMoney: 1})

	ids, err := r.ListSyncableIDs(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids)
}

func TestOrder_ListAdminAndDelete(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewOrderGormRepository(gdb)
	u := testutil.SeedUser(t, gdb, model.RoleUser)
	ctx := context.Background()

	o1 := testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, Fullname: "Tran Thi B", PhoneNumber: "0911111111", Address: "x", WardCode: "1", ItemsTotal: 1, TotalMoney: 1},
		model.OrderItem{ProductVariantID: 1, UnitPrice: 1, Quantity: 1})
	testutil.SeedOrder(t, gdb, model.Order{UserID: u.ID, OrderStatus: model.OrderStatusCancelled, ItemsTotal: 1, TotalMoney: 1})

	items, total, err := r.ListAdmin(ctx, repo.AdminOrderListFilter{Search: "tran"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, o1.ID, items[0].ID)
	assert.Len(t, items[0].Items, 1)

	stats, err := r.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[model.OrderStatusPending])
	assert.Equal(t, int64(1), stats[model.OrderStatusCancelled])

	require.NoError(t, r.Delete(ctx, o1.ID))
	_, err = r.FindByID(ctx, o1.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	var n int64
	require.NoError(t, gdb.Model(&model.OrderItem{}).Where("order_id = ?", o1.ID).Count(&n).Error)
	assert.Zero(t, n)

	assert.ErrorIs(t, r.Delete(ctx, o1.ID), repo.ErrNotFound)
}
