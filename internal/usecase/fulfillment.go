package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/gateway"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	// 1点あたりの重量（g）
	itemWeightGrams = 200

	// GHN payment_type_id
	shopPaysShipping     = 1
	receiverPaysShipping = 2
)

// Fulfillment は注文・決済・同期・管理の各ユースケースが共有する処理。
// 配送注文の作成、キャンセル時の補償、イベント発行をまとめる。
type Fulfillment struct {
	shipping gateway.ShippingGateway
	events   eventSink
	log      *zap.Logger
	clock    Clock
}

func NewFulfillment(shipping gateway.ShippingGateway, publisher EventPublisher, log *zap.Logger, clock Clock) *Fulfillment {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Fulfillment{
		shipping: shipping,
		events:   eventSink{pub: publisher, log: log, clock: clock},
		log:      log,
		clock:    clock,
	}
}

// 送料見積もり。住所が無い・失敗したときは既定の送料（失敗は致命的にしない）
func (f *Fulfillment) quoteFee(ctx context.Context, districtID int, wardCode string, weight, insured, fallback int64) int64 {
	if districtID <= 0 || wardCode == "" {
		return fallback
	}
	fee, err := f.shipping.QuoteFee(ctx, gateway.FeeQuoteRequest{
		ToDistrictID:   districtID,
		ToWardCode:     wardCode,
		WeightGrams:    weight,
		InsuranceValue: insured,
	})
	if err != nil || fee < 0 {
		f.log.Warn("shipping fee quote failed, using default fee",
			zap.Int("district_id", districtID),
			zap.String("ward_code", wardCode),
			zap.Int64("default_fee", fallback),
			zap.Error(err),
		)
		return fallback
	}
	return fee
}

// 配送注文の作成内容。代引きは送料の実負担があれば受取人払い。
func shipmentRequest(o model.Order, items []model.OrderItem) gateway.ShipmentRequest {
	req := gateway.ShipmentRequest{
		ClientOrderCode: fmt.Sprintf("ORD%d", o.ID),
		ToName:          o.Fullname,
		ToPhone:         o.PhoneNumber,
		ToAddress:       o.Address,
		ToWardCode:      o.WardCode,
		ToDistrictID:    o.DistrictID,
		Note:            o.Note,
		InsuranceValue:  o.ItemsTotal,
		Height:          len(items),
		PaymentTypeID:   shopPaysShipping,
	}

	for _, it := range items {
		req.WeightGrams += it.Quantity * itemWeightGrams
		req.Items = append(req.Items, gateway.ShipmentItem{
			Name:        it.ProductName,
			Code:        it.SKU,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice,
			WeightGrams: itemWeightGrams,
		})
	}

	if o.PaymentMethod == model.PaymentMethodCOD && o.PaymentStatus != model.PaymentStatusPaid {
		if net := o.NetShippingFee(); net > 0 {
			req.PaymentTypeID = receiverPaysShipping
			req.CODAmount = o.TotalMoney - net
		} else {
			req.CODAmount = o.TotalMoney
		}
	}
	return req
}

// createShipment は配送注文を作って o に反映する（保存は呼び出し側）。
// 失敗しても o は変更しない。
func (f *Fulfillment) createShipment(ctx context.Context, o *model.Order, items []model.OrderItem) error {
	if o.HasShipment() {
		return nil
	}
	req := shipmentRequest(*o, items)
	s, err := f.shipping.CreateShipment(ctx, req)
	if err != nil {
		return err
	}

	code := s.OrderCode
	o.ShippingOrderCode = &code
	o.ShippingSortCode = s.SortCode
	o.ShippingTotalFee = s.TotalFee
	o.ShippingCODAmount = req.CODAmount
	o.ShippingStatus = "ready_to_pick"
	o.ShippingStatusText = "Chờ lấy hàng"
	o.ExpectedDeliveryAt = s.ExpectedDeliveryTime
	if o.OrderStatus == model.OrderStatusPending {
		o.OrderStatus = model.OrderStatusConfirmed
	}
	return nil
}

// compensate はチェックアウトの在庫・プロモーションの効果を戻して注文をキャンセル済みにする。
// 配送注文のキャンセル失敗はログだけ。
func (f *Fulfillment) compensate(ctx context.Context, r repo.TxRepos, o *model.Order, failPayment bool) error {
	if o.HasShipment() {
		if err := f.shipping.CancelShipment(ctx, *o.ShippingOrderCode); err != nil {
			f.log.Warn("cancel shipment failed",
				zap.Int64("order_id", o.ID),
				zap.String("shipping_order_code", *o.ShippingOrderCode),
				zap.Error(err),
			)
		}
	}

	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return dbError()
	}
	for _, it := range items {
		err := r.Inventory().Restore(ctx, it.ProductVariantID, it.Quantity)
		if errors.Is(err, repo.ErrNotFound) {
			f.log.Warn("restore stock skipped, variant not found",
				zap.Int64("order_id", o.ID),
				zap.Int64("product_variant_id", it.ProductVariantID),
			)
			continue
		}
		if err != nil {
			return dbError()
		}
	}

	if o.PromotionID != nil {
		if err := r.Promotions().Rollback(ctx, *o.PromotionID); err != nil {
			return dbError()
		}
	}

	now := f.clock.Now()
	o.OrderStatus = model.OrderStatusCancelled
	o.CancelledAt = &now
	if failPayment {
		o.PaymentStatus = model.PaymentStatusFailed
	}
	if err := r.Orders().Save(ctx, *o); err != nil {
		return dbError()
	}
	return nil
}

// cancelInTx は利用者・管理者のキャンセル共通。ownerID が nil なら所有チェックしない。
func (f *Fulfillment) cancelInTx(ctx context.Context, r repo.TxRepos, orderID int64, ownerID *int64) (model.Order, error) {
	o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, notFoundError("order not found")
	}
	if err != nil {
		return model.Order{}, dbError()
	}
	if ownerID != nil && o.UserID != *ownerID {
		//他人の注文は「存在しない扱い」
		return model.Order{}, notFoundError("order not found")
	}
	if !o.CanCustomerCancel() {
		return model.Order{}, invalidState(fmt.Sprintf("order in status %s cannot be cancelled", o.OrderStatus))
	}
	if err := f.compensate(ctx, r, &o, false); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// applyShipmentDetail は同期結果を o に反映する。状態が変わったら true。
func (f *Fulfillment) applyShipmentDetail(o *model.Order, d gateway.ShipmentDetail) bool {
	now := f.clock.Now()

	o.ShippingStatus = d.Status
	o.ShippingStatusText = d.StatusText
	if d.SortCode != "" {
		o.ShippingSortCode = d.SortCode
	}
	if d.TotalFee > 0 {
		o.ShippingTotalFee = d.TotalFee
	}
	o.ShippingCODAmount = d.CODAmount
	if d.ExpectedDeliveryTime != nil {
		o.ExpectedDeliveryAt = d.ExpectedDeliveryTime
	}
	if len(d.Log) > 0 {
		if b, err := json.Marshal(d.Log); err == nil {
			o.ShippingLog = datatypes.JSON(b)
		}
	}
	o.LastSyncAt = &now

	to := d.OrderStatus
	if to == "" || to == o.OrderStatus || !model.CanTransition(o.OrderStatus, to) {
		return false
	}

	o.OrderStatus = to
	switch to {
	case model.OrderStatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
		settleCOD(o, now)
	case model.OrderStatusCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
	return true
}

// 代引きは配達で入金確定
func settleCOD(o *model.Order, now time.Time) {
	if o.PaymentMethod == model.PaymentMethodCOD && o.PaymentStatus == model.PaymentStatusUnpaid {
		o.PaymentStatus = model.PaymentStatusPaid
		o.PaidAt = &now
	}
}
