package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderCancelled     = "order.cancelled"
	EventOrderExpired       = "order.expired"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// 発行はコミット後。失敗しても業務処理は失敗させない。
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type OrderEvent struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	OrderID       int64               `json:"order_id"`
	UserID        int64               `json:"user_id"`
	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	TotalMoney    int64               `json:"total_money"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

func (e OrderEvent) EventType() string { return e.Type }

type ReturnEvent struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	ReturnID     int64              `json:"return_id"`
	OrderID      int64              `json:"order_id"`
	UserID       int64              `json:"user_id"`
	Status       model.ReturnStatus `json:"status"`
	RefundAmount int64              `json:"refund_amount"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

func (e ReturnEvent) EventType() string { return e.Type }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// eventSink は発行失敗をログに落とすだけのラッパ
type eventSink struct {
	pub   EventPublisher
	log   *zap.Logger
	clock Clock
}

func (s eventSink) order(ctx context.Context, typ string, o model.Order) {
	s.send(ctx, orderKey(o.ID), OrderEvent{
		ID:            uuid.NewString(),
		Type:          typ,
		OrderID:       o.ID,
		UserID:        o.UserID,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		TotalMoney:    o.TotalMoney,
		OccurredAt:    s.clock.Now(),
	})
}

func (s eventSink) returnRequest(ctx context.Context, rr model.ReturnRequest) {
	s.send(ctx, orderKey(rr.OrderID), ReturnEvent{
		ID:           uuid.NewString(),
		Type:         "return." + string(rr.Status),
		ReturnID:     rr.ID,
		OrderID:      rr.OrderID,
		UserID:       rr.UserID,
		Status:       rr.Status,
		RefundAmount: rr.RefundAmount,
		OccurredAt:   s.clock.Now(),
	})
}

func (s eventSink) send(ctx context.Context, key string, ev interface{ EventType() string }) {
	if err := s.pub.Publish(ctx, key, ev); err != nil {
		s.log.Warn("publish event failed",
			zap.String("type", ev.EventType()),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// 同じ注文のイベントは同じパーティションに入れる
func orderKey(id int64) string { return strconv.FormatInt(id, 10) }
