package model

import (
	"time"

	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturning  OrderStatus = "returning"
	OrderStatusReturned   OrderStatus = "returned"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodVNPay PaymentMethod = "vnpay"
)

// 注文。金額はすべて最小通貨単位（VND）の整数。
type Order struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	PromotionID *int64     `gorm:"index" json:"promotion_id"`
	Promotion   *Promotion `gorm:"foreignKey:PromotionID" json:"promotion,omitempty"`

	//受取人
	Fullname    string `gorm:"type:varchar(255);not null" json:"fullname"`
	Email       string `gorm:"type:varchar(255)" json:"email"`
	PhoneNumber string `gorm:"type:varchar(30);not null" json:"phone_number"`
	ProvinceID  int    `gorm:"not null" json:"province_id"`
	DistrictID  int    `gorm:"not null" json:"district_id"`
	WardCode    string `gorm:"type:varchar(20);not null" json:"ward_code"`
	Address     string `gorm:"type:varchar(500);not null" json:"address"`
	Note        string `gorm:"type:text" json:"note"`

	OrderStatus   OrderStatus   `gorm:"type:varchar(20);not null;index" json:"order_status"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`

	//total_money = items_total + shipping_fee - shipping_discount - promotion_discount
	ItemsTotal        int64 `gorm:"not null" json:"items_total"`
	ShippingFee       int64 `gorm:"not null;default:0" json:"shipping_fee"`
	ShippingDiscount  int64 `gorm:"not null;default:0" json:"shipping_discount"`
	PromotionDiscount int64 `gorm:"not null;default:0" json:"promotion_discount"`
	TotalMoney        int64 `gorm:"not null;check:total_money > 0" json:"total_money"`
	RefundedAmount    int64 `gorm:"not null;default:0" json:"refunded_amount"`

	PaymentTransactionID string     `gorm:"type:varchar(100)" json:"payment_transaction_id"`
	PaidAt               *time.Time `json:"paid_at"`
	PaymentExpiresAt     *time.Time `gorm:"index" json:"payment_expires_at"`
	DeliveredAt          *time.Time `json:"delivered_at"`
	CancelledAt          *time.Time `json:"cancelled_at"`

	//配送業者（GHN）側の情報
	ShippingOrderCode  *string        `gorm:"type:varchar(50);index" json:"shipping_order_code"`
	ShippingSortCode   string         `gorm:"type:varchar(50)" json:"shipping_sort_code"`
	ShippingStatus     string         `gorm:"type:varchar(50)" json:"shipping_status"`
	ShippingStatusText string         `gorm:"type:varchar(255)" json:"shipping_status_text"`
	ShippingTotalFee   int64          `gorm:"not null;default:0" json:"shipping_total_fee"`
	ShippingCODAmount  int64          `gorm:"not null;default:0" json:"shipping_cod_amount"`
	ExpectedDeliveryAt *time.Time     `json:"expected_delivery_at"`
	ShippingLog        datatypes.JSON `json:"shipping_log,omitempty"`
	LastSyncAt         *time.Time     `json:"last_sync_at"`

	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 終端状態（返品フローは delivered から別に入る）
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// 直線部分の順番
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusDelivering: 3,
	OrderStatusDelivered:  4,
	OrderStatusCancelled:  -1,
	OrderStatusReturning:  -1,
	OrderStatusReturned:   -1,
}

// CanTransition reports whether an order may move from one status to another.
// Linear states only move forward. cancelled is reachable from any non-terminal
// state (the customer-facing cancel is stricter, see CanCustomerCancel).
// returning is reachable from processing, delivering and delivered; returned only
// from returning or delivering.
func CanTransition(from, to OrderStatus) bool {
	if from == to || !from.IsValid() || !to.IsValid() {
		return false
	}
	switch to {
	case OrderStatusCancelled:
		return !from.IsTerminal() && from != OrderStatusReturning
	case OrderStatusReturning:
		return from == OrderStatusProcessing || from == OrderStatusDelivering || from == OrderStatusDelivered
	case OrderStatusReturned:
		return from == OrderStatusReturning || from == OrderStatusDelivering
	}
	if from.IsTerminal() || from == OrderStatusReturning {
		return false
	}
	return statusRank[to] > statusRank[from]
}

// 顧客がキャンセルできるのは発送前だけ
func (o Order) CanCustomerCancel() bool {
	return o.OrderStatus == OrderStatusPending || o.OrderStatus == OrderStatusConfirmed
}

func (o Order) HasShipment() bool {
	return o.ShippingOrderCode != nil && *o.ShippingOrderCode != ""
}

// 配送料の実負担（送料 - 送料割引）
func (o Order) NetShippingFee() int64 {
	return o.ShippingFee - o.ShippingDiscount
}

func (o Order) IsPaymentExpired(now time.Time) bool {
	return o.PaymentExpiresAt != nil && o.PaymentExpiresAt.Before(now)
}
