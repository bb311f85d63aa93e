package usecase_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	infraRepo "github.com/rs-labo46/ec-order-api/internal/infra/repository"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"
	"github.com/rs-labo46/ec-order-api/internal/usecase"
	"github.com/rs-labo46/ec-order-api/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =====================
// sqlite を使う結合寄りのテスト環境
// =====================

var baseTime = time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

type testEnv struct {
	db    *gorm.DB
	txm   repo.TransactionManager
	ship  *testutil.FakeShipping
	pay   *testutil.FakePayment
	pub   *testutil.RecordingPublisher
	clock *testutil.FixedClock
	f     *usecase.Fulfillment
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutil.OpenDB(t)
	env := &testEnv{
		db:    gdb,
		txm:   infraRepo.NewTxManagerGorm(gdb),
		ship:  testutil.NewFakeShipping(20000),
		pay:   &testutil.FakePayment{},
		pub:   &testutil.RecordingPublisher{},
		clock: &testutil.FixedClock{T: baseTime},
	}
	env.f = usecase.NewFulfillment(env.ship, env.pub, zap.NewNop(), env.clock)
	return env
}

func (e *testEnv) orders() *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(e.txm, e.f, e.pay, validator.NewCheckoutValidator(), usecase.OrderOptions{
		DefaultShippingFee: 15000,
		PaymentTTL:         48 * time.Hour,
	})
}

func (e *testEnv) payments() *usecase.PaymentUsecase {
	return usecase.NewPaymentUsecase(e.txm, e.f, e.pay)
}

func (e *testEnv) sweeper() *usecase.OrderSweeper {
	return usecase.NewOrderSweeper(e.txm, infraRepo.NewRepos(e.db).Orders(), e.f, 0)
}

func checkoutInput(method model.PaymentMethod) usecase.CheckoutInput {
	return usecase.CheckoutInput{
		Fullname:      "Nguyen Van A",
		Email:         "a@test.com",
		PhoneNumber:   "0900000000",
		ProvinceID:    202,
		DistrictID:    1442,
		WardCode:      "20101",
		Address:       "1 Le Loi",
		PaymentMethod: string(method),
		ClientIP:      "127.0.0.1",
	}
}

// checkout は1商品をカートに入れて注文まで進める
func (e *testEnv) checkout(t *testing.T, method model.PaymentMethod, price, stock, qty int64) (model.User, model.ProductVariant, usecase.CheckoutOutput) {
	t.Helper()
	u := testutil.SeedUser(t, e.db, model.RoleUser)
	v := testutil.SeedVariant(t, e.db, testutil.VariantSeed{Name: "T-shirt", Price: price, Stock: stock, Active: true})
	testutil.SeedCart(t, e.db, u.ID, testutil.CartLine{Variant: v, Quantity: qty})

	out, err := e.orders().Checkout(context.Background(), u.ID, checkoutInput(method))
	require.NoError(t, err)
	return u, v, out
}

func countRows(t *testing.T, gdb *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(m).Count(&n).Error)
	return n
}

func lastEventType(t *testing.T, pub *testutil.RecordingPublisher) string {
	t.Helper()
	require.NotZero(t, pub.Len())
	ev, ok := pub.Events[pub.Len()-1].(interface{ EventType() string })
	require.True(t, ok)
	return ev.EventType()
}

// エラーの種類で比べる（メッセージには依存しない）
func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	if assert.Error(t, err) {
		assert.ErrorIs(t, err, kind, "err=%v", err)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func newOrdersReader(e *testEnv) repo.OrderRepository {
	return infraRepo.NewRepos(e.db).Orders()
}
