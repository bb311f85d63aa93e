package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/gateway"
	infraRepo "github.com/rs-labo46/ec-order-api/internal/infra/repository"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// ExpireUnpaid
// =====================

func TestExpireUnpaid_CancelsOnlyExpiredUnpaidOrders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	promo := testutil.SeedPromotion(t, env.db, testutil.PromotionSeed{
		Code: "SAVE10", Type: model.DiscountTypePercentage, Value: 10,
		Start: baseTime.Add(-time.Hour), End: baseTime.Add(72 * time.Hour),
	})

	// 期限切れになる注文（プロモーション付き）
	u := testutil.SeedUser(t, env.db, model.RoleUser)
	v := testutil.SeedVariant(t, env.db, testutil.VariantSeed{Name: "Shirt", Price: 100000, Stock: 5, Active: true})
	testutil.SeedCart(t, env.db, u.ID, testutil.CartLine{Variant: v, Quantity: 2})
	in := checkoutInput(model.PaymentMethodVNPay)
	in.PromotionCode = "SAVE10"
	expiring, err := env.orders().Checkout(ctx, u.ID, in)
	require.NoError(t, err)

	// 支払い済み
	_, paidVariant, paid := env.checkout(t, model.PaymentMethodVNPay, 50000, 5, 1)
	_, err = env.payments().HandleCallback(ctx, testutil.Callback(paid.Order.ID, paid.Order.TotalMoney*100, "00"))
	require.NoError(t, err)

	// 代引きは対象外
	_, _, cod := env.checkout(t, model.PaymentMethodCOD, 50000, 5, 1)

	// まだ期限内
	env.clock.Advance(2 * time.Hour)
	_, _, fresh := env.checkout(t, model.PaymentMethodVNPay, 50000, 5, 1)

	env.clock.Advance(47 * time.Hour)
	res, err := env.sweeper().ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepResult{Total: 1, Succeeded: 1}, res)

	o := testutil.ReloadOrder(t, env.db, expiring.Order.ID)
	assert.Equal(t, model.OrderStatusCancelled, o.OrderStatus)
	assert.Equal(t, model.PaymentStatusFailed, o.PaymentStatus)
	require.NotNil(t, o.CancelledAt)
	assert.True(t, o.CancelledAt.Equal(env.clock.Now()))
	assert.Equal(t, int64(5), testutil.Stock(t, env.db, v.ID))
	assert.Equal(t, int64(0), testutil.UsedCount(t, env.db, promo.ID))
	assert.Equal(t, usecase.EventOrderExpired, lastEventType(t, env.pub))

	assert.Equal(t, model.PaymentStatusPaid, testutil.ReloadOrder(t, env.db, paid.Order.ID).PaymentStatus)
	assert.Equal(t, int64(4), testutil.Stock(t, env.db, paidVariant.ID))
	assert.Equal(t, model.OrderStatusConfirmed, testutil.ReloadOrder(t, env.db, cod.Order.ID).OrderStatus)
	assert.Equal(t, model.OrderStatusPending, testutil.ReloadOrder(t, env.db, fresh.Order.ID).OrderStatus)

	// 2回目は何もしない
	res, err = env.sweeper().ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, int64(5), testutil.Stock(t, env.db, v.ID))
}

// 最初のトランザクションだけ失敗させる
type failFirstTxManager struct {
	inner repo.TransactionManager
	calls atomic.Int32
}

func (m *failFirstTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if m.calls.Add(1) == 1 {
		return errors.New("connection reset")
	}
	return m.inner.WithinTx(ctx, fn)
}

func TestExpireUnpaid_FailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, va, a := env.checkout(t, model.PaymentMethodVNPay, 50000, 5, 1)
	_, vb, b := env.checkout(t, model.PaymentMethodVNPay, 70000, 5, 2)
	require.Less(t, a.Order.ID, b.Order.ID)

	env.clock.Advance(49 * time.Hour)
	txm := &failFirstTxManager{inner: env.txm}
	sw := usecase.NewOrderSweeper(txm, infraRepo.NewRepos(env.db).Orders(), env.f, 0)

	res, err := sw.ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepResult{Total: 2, Succeeded: 1, Failed: 1}, res)

	// Aは失敗したのでそのまま
	oa := testutil.ReloadOrder(t, env.db, a.Order.ID)
	assert.Equal(t, model.OrderStatusPending, oa.OrderStatus)
	assert.Equal(t, model.PaymentStatusUnpaid, oa.PaymentStatus)
	assert.Equal(t, int64(4), testutil.Stock(t, env.db, va.ID))

	ob := testutil.ReloadOrder(t, env.db, b.Order.ID)
	assert.Equal(t, model.OrderStatusCancelled, ob.OrderStatus)
	assert.Equal(t, int64(5), testutil.Stock(t, env.db, vb.ID))

	// 次回の実行でAも回収される
	res, err = sw.ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepResult{Total: 1, Succeeded: 1}, res)
	assert.Equal(t, model.OrderStatusCancelled, testutil.ReloadOrder(t, env.db, a.Order.ID).OrderStatus)
	assert.Equal(t, int64(5), testutil.Stock(t, env.db, va.ID))
}

func TestExpireUnpaid_NothingToDo(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.sweeper().ExpireUnpaid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepResult{}, res)
}

// =====================
// SyncShipping
// =====================

func TestSyncShipping(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, _, delivered := env.checkout(t, model.PaymentMethodCOD, 100000, 5, 1)
	_, _, same := env.checkout(t, model.PaymentMethodCOD, 100000, 5, 1)
	_, _, missing := env.checkout(t, model.PaymentMethodCOD, 100000, 5, 1)
	// 配送コードなし（同期対象外）
	testutil.SeedOrder(t, env.db, model.Order{UserID: delivered.Order.UserID, ItemsTotal: 1000, TotalMoney: 1000})

	env.ship.SetDetail(gateway.ShipmentDetail{
		OrderCode:   delivered.Order.ShippingOrderCode,
		Status:      "delivered",
		StatusText:  "Đã giao hàng",
		OrderStatus: model.OrderStatusDelivered,
		CODAmount:   100000,
		Log: []gateway.ShipmentLogEntry{
			{Status: "picked", UpdatedDate: baseTime.Add(time.Hour)},
			{Status: "delivered", UpdatedDate: baseTime.Add(20 * time.Hour)},
		},
	})
	env.ship.SetDetail(gateway.ShipmentDetail{
		OrderCode:   same.Order.ShippingOrderCode,
		Status:      "picking",
		StatusText:  "Đang lấy hàng",
		OrderStatus: model.OrderStatusConfirmed,
	})

	env.clock.Advance(24 * time.Hour)
	res, err := env.sweeper().SyncShipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepResult{Total: 3, Succeeded: 1, Unchanged: 1, Failed: 1}, res)

	o := testutil.ReloadOrder(t, env.db, delivered.Order.ID)
	assert.Equal(t, model.OrderStatusDelivered, o.OrderStatus)
	assert.Equal(t, "delivered", o.ShippingStatus)
	// 代引きは配達で入金済み
	assert.Equal(t, model.PaymentStatusPaid, o.PaymentStatus)
	require.NotNil(t, o.PaidAt)
	require.NotNil(t, o.DeliveredAt)
	assert.True(t, o.DeliveredAt.Equal(env.clock.Now()))
	assert.Contains(t, string(o.ShippingLog), `"status":"delivered"`)

	s := testutil.ReloadOrder(t, env.db, same.Order.ID)
	assert.Equal(t, model.OrderStatusConfirmed, s.OrderStatus)
	assert.Equal(t, "picking", s.ShippingStatus)
	require.NotNil(t, s.LastSyncAt)

	m := testutil.ReloadOrder(t, env.db, missing.Order.ID)
	assert.Equal(t, model.OrderStatusConfirmed, m.OrderStatus)
	assert.Nil(t, m.LastSyncAt)

	// 配達済みは次回から対象外
	res, err = env.sweeper().SyncShipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSyncOne_IgnoresBackwardTransition(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	u := testutil.SeedUser(t, env.db, model.RoleUser)
	o := testutil.SeedOrder(t, env.db, model.Order{
		UserID:            u.ID,
		OrderStatus:       model.OrderStatusDelivering,
		ItemsTotal:        100000,
		TotalMoney:        100000,
		ShippingOrderCode: testutil.StrPtr("GHN-1"),
	})
	env.ship.SetDetail(gateway.ShipmentDetail{OrderCode: "GHN-1", Status: "picked", OrderStatus: model.OrderStatusProcessing})

	out, err := env.sweeper().SyncOne(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, model.OrderStatusDelivering, out.Order.OrderStatus)
	assert.Equal(t, "picked", out.Order.ShippingStatus)
	assert.NotNil(t, out.Order.LastSyncAt)
}

func TestSyncOne_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	u := testutil.SeedUser(t, env.db, model.RoleUser)
	noShipment := testutil.SeedOrder(t, env.db, model.Order{UserID: u.ID, ItemsTotal: 1000, TotalMoney: 1000})
	withShipment := testutil.SeedOrder(t, env.db, model.Order{
		UserID: u.ID, OrderStatus: model.OrderStatusConfirmed, ItemsTotal: 1000, TotalMoney: 1000,
		ShippingOrderCode: testutil.StrPtr("GHN-404"),
	})

	_, err := env.sweeper().SyncOne(ctx, 0)
	assertKind(t, err, usecase.ErrValidation)

	_, err = env.sweeper().SyncOne(ctx, 9999)
	assertKind(t, err, usecase.ErrNotFound)

	_, err = env.sweeper().SyncOne(ctx, noShipment.ID)
	assertKind(t, err, usecase.ErrInvalidState)

	_, err = env.sweeper().SyncOne(ctx, withShipment.ID)
	assertKind(t, err, usecase.ErrGateway)
}

// =====================
// 同じ掃除は同時に1つだけ
// =====================

type blockingShipping struct {
	*testutil.FakeShipping
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingShipping) GetShipment(ctx context.Context, orderCode string) (gateway.ShipmentDetail, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.FakeShipping.GetShipment(ctx, orderCode)
}

func TestSyncShipping_RejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, _, created := env.checkout(t, model.PaymentMethodCOD, 100000, 5, 1)
	env.ship.SetDetail(gateway.ShipmentDetail{OrderCode: created.Order.ShippingOrderCode, Status: "picking", OrderStatus: model.OrderStatusConfirmed})

	ship := &blockingShipping{FakeShipping: env.ship, started: make(chan struct{}), release: make(chan struct{})}
	f := usecase.NewFulfillment(ship, env.pub, nil, env.clock)
	sw := usecase.NewOrderSweeper(env.txm, newOrdersReader(env), f, 0)

	done := make(chan usecase.SweepResult, 1)
	go func() {
		res, _ := sw.SyncShipping(ctx)
		done <- res
	}()
	<-ship.started

	_, err := sw.SyncShipping(ctx)
	assertKind(t, err, usecase.ErrSweepRunning)

	// 種類が違えば動く
	_, err = sw.ExpireUnpaid(ctx)
	assert.NoError(t, err)

	close(ship.release)
	res := <-done
	assert.Equal(t, 1, res.Total)

	// 終われば次が動く
	_, err = sw.SyncShipping(ctx)
	assert.NoError(t, err)
}
