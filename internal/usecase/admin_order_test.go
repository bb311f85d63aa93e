package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// AdminTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type AdminTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdminTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type AdminTxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	inventory  repo.InventoryRepository
	promotions repo.PromotionRepository
	auditLogs  repo.AuditLogRepository
}

func (r *AdminTxReposMock) Orders() repo.OrderRepository          { return r.orders }
func (r *AdminTxReposMock) OrderItems() repo.OrderItemRepository  { return r.orderItems }
func (r *AdminTxReposMock) Inventory() repo.InventoryRepository   { return r.inventory }
func (r *AdminTxReposMock) Promotions() repo.PromotionRepository  { return r.promotions }
func (r *AdminTxReposMock) AuditLogs() repo.AuditLogRepository    { return r.auditLogs }
func (r *AdminTxReposMock) Carts() repo.CartRepository            { return nil }
func (r *AdminTxReposMock) CartItems() repo.CartItemRepository    { return nil }
func (r *AdminTxReposMock) Products() repo.ProductRepository      { return nil }
func (r *AdminTxReposMock) Returns() repo.ReturnRequestRepository { return nil }

// =====================
// Repository mocks
// =====================

type AdminOrderRepoMock struct{ mock.Mock }

func (m *AdminOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) ListByUserID(ctx context.Context, userID int64, status string, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) Save(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) Delete(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *AdminOrderRepoMock) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(map[model.OrderStatus]int64)
	return stats, args.Error(1)
}

func (m *AdminOrderRepoMock) ListExpiredUnpaidIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) ListSyncableIDs(ctx context.Context, limit int) ([]int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

type AdminOrderItemRepoMock struct{ mock.Mock }

func (m *AdminOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AdminInventoryRepoMock struct{ mock.Mock }

func (m *AdminInventoryRepoMock) SetStock(ctx context.Context, variantID int64, newStock int64) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminInventoryRepoMock) Reserve(ctx context.Context, variantID int64, qty int64) (bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminInventoryRepoMock) Restore(ctx context.Context, variantID int64, qty int64) error {
	args := m.Called(ctx, variantID, qty)
	return args.Error(0)
}

func (m *AdminInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in AdminOrderUsecase tests")
}

type AdminPromotionRepoMock struct{ mock.Mock }

func (m *AdminPromotionRepoMock) FindByCode(ctx context.Context, code string) (model.Promotion, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminPromotionRepoMock) FindByID(ctx context.Context, promotionID int64) (model.Promotion, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminPromotionRepoMock) Commit(ctx context.Context, promotionID int64) (bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminPromotionRepoMock) Rollback(ctx context.Context, promotionID int64) error {
	args := m.Called(ctx, promotionID)
	return args.Error(0)
}

type AdminAuditRepoMock struct{ mock.Mock }

func (m *AdminAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AdminAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in AdminOrderUsecase tests")
}

type adminMocks struct {
	tx         *AdminTxManagerMock
	orders     *AdminOrderRepoMock
	items      *AdminOrderItemRepoMock
	inventory  *AdminInventoryRepoMock
	promotions *AdminPromotionRepoMock
	audit      *AdminAuditRepoMock
	ship       *testutil.FakeShipping
	pub        *testutil.RecordingPublisher
	uc         *usecase.AdminOrderUsecase
}

func newAdminMocks() adminMocks {
	m := adminMocks{
		tx:         new(AdminTxManagerMock),
		orders:     new(AdminOrderRepoMock),
		items:      new(AdminOrderItemRepoMock),
		inventory:  new(AdminInventoryRepoMock),
		promotions: new(AdminPromotionRepoMock),
		audit:      new(AdminAuditRepoMock),
		ship:       testutil.NewFakeShipping(0),
		pub:        &testutil.RecordingPublisher{},
	}
	m.tx.Repos = &AdminTxReposMock{
		orders:     m.orders,
		orderItems: m.items,
		inventory:  m.inventory,
		promotions: m.promotions,
		auditLogs:  m.audit,
	}
	f := usecase.NewFulfillment(m.ship, m.pub, nil, &testutil.FixedClock{T: baseTime})
	m.uc = usecase.NewAdminOrderUsecase(m.tx, f)
	return m
}

func (m adminMocks) assertExpectations(t *testing.T) {
	m.tx.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.items.AssertExpectations(t)
	m.inventory.AssertExpectations(t)
	m.promotions.AssertExpectations(t)
	m.audit.AssertExpectations(t)
}

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidPaging(t *testing.T) {
	m := newAdminMocks()

	_, err := m.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assertKind(t, err, usecase.ErrValidation)

	_, err = m.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assertKind(t, err, usecase.ErrValidation)

	_, err = m.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "shipped"})
	assertKind(t, err, usecase.ErrValidation)

	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_List_Success(t *testing.T) {
	m := newAdminMocks()
	f := repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "pending"}

	orders := []model.Order{
		{ID: 10, OrderStatus: model.OrderStatusPending},
		{ID: 11, OrderStatus: model.OrderStatusPending},
	}
	stats := map[model.OrderStatus]int64{model.OrderStatusPending: 2, model.OrderStatusDelivered: 5}

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("ListAdmin", mock.Anything, f).Return(orders, int64(2), nil)
	m.orders.On("CountByStatus", mock.Anything).Return(stats, nil)

	out, err := m.uc.List(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, int64(5), out.Stats[model.OrderStatusDelivered])

	m.assertExpectations(t)
}

// =====================
// UpdateStatus tests
// =====================

func TestAdminOrderUsecase_UpdateStatus_ReturnStatusesRejected(t *testing.T) {
	m := newAdminMocks()

	for _, st := range []string{"returning", "returned"} {
		_, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: st})
		assertKind(t, err, usecase.ErrInvalidState)
	}
	_, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: "paid"})
	assertKind(t, err, usecase.ErrValidation)

	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusProcessing}, nil)

	out, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, out.OrderStatus)

	m.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, 0, m.pub.Len())
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_BackwardTransition(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusDelivering}, nil)

	_, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: "confirmed"})
	assertKind(t, err, usecase.ErrInvalidState)

	m.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_NotFound(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(model.Order{}, repo.ErrNotFound)

	_, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: "processing"})
	assertKind(t, err, usecase.ErrNotFound)
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_Forward_WritesAudit(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusConfirmed}, nil)
	m.orders.On("Save", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.ID == 10 && o.OrderStatus == model.OrderStatusProcessing
	})).Return(nil)
	m.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 1 &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == 10 &&
			l.BeforeJSON == `{"order_status":"confirmed"}` &&
			l.AfterJSON == `{"order_status":"processing"}`
	})).Return(nil)
	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusProcessing}, nil)

	out, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: " processing "})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, out.OrderStatus)
	assert.Equal(t, usecase.EventOrderStatusChanged, lastEventType(t, m.pub))

	m.assertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_DeliveredSettlesCOD(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(model.Order{
		ID:            10,
		OrderStatus:   model.OrderStatusDelivering,
		PaymentMethod: model.PaymentMethodCOD,
		PaymentStatus: model.PaymentStatusUnpaid,
	}, nil)
	m.orders.On("Save", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.OrderStatus == model.OrderStatusDelivered &&
			o.PaymentStatus == model.PaymentStatusPaid &&
			o.PaidAt != nil && o.DeliveredAt != nil
	})).Return(nil)
	m.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusDelivered, PaymentStatus: model.PaymentStatusPaid}, nil)

	_, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: "delivered"})
	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_CancelCompensates(t *testing.T) {
	m := newAdminMocks()
	promoID := int64(3)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(model.Order{
		ID:                10,
		OrderStatus:       model.OrderStatusProcessing,
		PromotionID:       &promoID,
		ShippingOrderCode: testutil.StrPtr("GHN-10"),
	}, nil)
	m.items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{
		{ProductVariantID: 100, Quantity: 2},
		{ProductVariantID: 101, Quantity: 1},
	}, nil)
	m.inventory.On("Restore", mock.Anything, int64(100), int64(2)).Return(nil)
	// 削除済みバリアントはスキップ
	m.inventory.On("Restore", mock.Anything, int64(101), int64(1)).Return(repo.ErrNotFound)
	m.promotions.On("Rollback", mock.Anything, promoID).Return(nil)
	m.orders.On("Save", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.OrderStatus == model.OrderStatusCancelled && o.CancelledAt != nil
	})).Return(nil)
	m.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusCancelled}, nil)

	out, err := m.uc.UpdateStatus(context.Background(), 1, 10, usecase.AdminUpdateOrderStatusInput{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, out.OrderStatus)
	assert.Equal(t, []string{"GHN-10"}, m.ship.Canceled)
	assert.Equal(t, usecase.EventOrderCancelled, lastEventType(t, m.pub))

	m.assertExpectations(t)
}

// =====================
// Cancel / Delete tests
// =====================

func TestAdminOrderUsecase_Cancel_OnlyBeforeShipping(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, UserID: 99, OrderStatus: model.OrderStatusDelivering}, nil)

	_, err := m.uc.Cancel(context.Background(), 1, 10)
	assertKind(t, err, usecase.ErrInvalidState)
	m.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_Delete_NonTerminal(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusConfirmed}, nil)

	err := m.uc.Delete(context.Background(), 1, 10)
	assertKind(t, err, usecase.ErrInvalidState)
	m.orders.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_Delete_Terminal(t *testing.T) {
	m := newAdminMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, OrderStatus: model.OrderStatusCancelled, TotalMoney: 120000}, nil)
	m.orders.On("Delete", mock.Anything, int64(10)).Return(nil)
	m.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDeleteOrder && l.AfterJSON == "" &&
			l.BeforeJSON == `{"order_status":"cancelled","total_money":120000}`
	})).Return(nil)

	err := m.uc.Delete(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, usecase.EventOrderDeleted, lastEventType(t, m.pub))
	m.assertExpectations(t)
}

func TestAdminOrderUsecase_Unauthorized(t *testing.T) {
	m := newAdminMocks()

	_, err := m.uc.UpdateStatus(context.Background(), 0, 10, usecase.AdminUpdateOrderStatusInput{Status: "processing"})
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 401, he.Status)

	err = m.uc.Delete(context.Background(), 0, 10)
	assert.Error(t, err)
}
