package usecase

import (
	"encoding/json"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

type OrderItemOutput struct {
	ID               int64  `json:"id"`
	ProductVariantID int64  `json:"product_variant_id"`
	ProductName      string `json:"product_name"`
	SKU              string `json:"sku"`
	Size             string `json:"size"`
	Color            string `json:"color"`
	UnitPrice        int64  `json:"unit_price"`
	Quantity         int64  `json:"quantity"`
	TotalPrice       int64  `json:"total_price"`
}

type OrderOutput struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	ProvinceID  int    `json:"province_id"`
	DistrictID  int    `json:"district_id"`
	WardCode    string `json:"ward_code"`
	Address     string `json:"address"`
	Note        string `json:"note"`

	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`

	ItemsTotal        int64  `json:"items_total"`
	ShippingFee       int64  `json:"shipping_fee"`
	ShippingDiscount  int64  `json:"shipping_discount"`
	PromotionDiscount int64  `json:"promotion_discount"`
	TotalMoney        int64  `json:"total_money"`
	RefundedAmount    int64  `json:"refunded_amount"`
	PromotionCode     string `json:"promotion_code,omitempty"`

	PaymentTransactionID string     `json:"payment_transaction_id,omitempty"`
	PaidAt               *time.Time `json:"paid_at"`
	PaymentExpiresAt     *time.Time `json:"payment_expires_at"`
	DeliveredAt          *time.Time `json:"delivered_at"`
	CancelledAt          *time.Time `json:"cancelled_at"`

	ShippingOrderCode  string          `json:"shipping_order_code,omitempty"`
	ShippingStatus     string          `json:"shipping_status,omitempty"`
	ShippingStatusText string          `json:"shipping_status_text,omitempty"`
	ExpectedDeliveryAt *time.Time      `json:"expected_delivery_at"`
	ShippingLog        json.RawMessage `json:"shipping_log,omitempty"`
	LastSyncAt         *time.Time      `json:"last_sync_at"`

	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ID:               it.ID,
			ProductVariantID: it.ProductVariantID,
			ProductName:      it.ProductName,
			SKU:              it.SKU,
			Size:             it.Size,
			Color:            it.Color,
			UnitPrice:        it.UnitPrice,
			Quantity:         it.Quantity,
			TotalPrice:       it.TotalPrice,
		})
	}

	out := OrderOutput{
		ID:                   o.ID,
		UserID:               o.UserID,
		Fullname:             o.Fullname,
		Email:                o.Email,
		PhoneNumber:          o.PhoneNumber,
		ProvinceID:           o.ProvinceID,
		DistrictID:           o.DistrictID,
		WardCode:             o.WardCode,
		Address:              o.Address,
		Note:                 o.Note,
		OrderStatus:          o.OrderStatus,
		PaymentMethod:        o.PaymentMethod,
		PaymentStatus:        o.PaymentStatus,
		ItemsTotal:           o.ItemsTotal,
		ShippingFee:          o.ShippingFee,
		ShippingDiscount:     o.ShippingDiscount,
		PromotionDiscount:    o.PromotionDiscount,
		TotalMoney:           o.TotalMoney,
		RefundedAmount:       o.RefundedAmount,
		PaymentTransactionID: o.PaymentTransactionID,
		PaidAt:               o.PaidAt,
		PaymentExpiresAt:     o.PaymentExpiresAt,
		DeliveredAt:          o.DeliveredAt,
		CancelledAt:          o.CancelledAt,
		ShippingStatus:       o.ShippingStatus,
		ShippingStatusText:   o.ShippingStatusText,
		ExpectedDeliveryAt:   o.ExpectedDeliveryAt,
		LastSyncAt:           o.LastSyncAt,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		Items:                items,
	}
	if o.Promotion != nil {
		out.PromotionCode = o.Promotion.Code
	}
	if o.ShippingOrderCode != nil {
		out.ShippingOrderCode = *o.ShippingOrderCode
	}
	if len(o.ShippingLog) > 0 {
		out.ShippingLog = json.RawMessage(o.ShippingLog)
	}
	return out
}

func toOrderOutputs(orders []model.Order) []OrderOutput {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	return outs
}

// page/limit の共通チェック
func validatePaging(page, limit int) error {
	if page < 1 {
		return validationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return validationError("invalid limit")
	}
	return nil
}
