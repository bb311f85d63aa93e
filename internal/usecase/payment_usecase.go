package usecase

import (
	"context"
	"errors"
	"net/url"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/gateway"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"go.uber.org/zap"
)

type PaymentUsecase struct {
	tx      repo.TransactionManager
	f       *Fulfillment
	payment gateway.PaymentGateway
}

func NewPaymentUsecase(tx repo.TransactionManager, f *Fulfillment, payment gateway.PaymentGateway) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, f: f, payment: payment}
}

type PaymentCallbackOutput struct {
	OrderID      int64  `json:"order_id"`
	Success      bool   `json:"success"`
	ResponseCode string `json:"response_code"`
	// すでに支払い済みだった（再送）
	AlreadyPaid bool `json:"already_paid"`
}

// HandleCallback は決済コールバック（ブラウザ戻り・IPN 共通）。
// 支払い済みの注文への再送は何もしないで成功を返す。
func (u *PaymentUsecase) HandleCallback(ctx context.Context, params url.Values) (PaymentCallbackOutput, error) {
	res, err := u.payment.VerifyCallback(params)
	if errors.Is(err, gateway.ErrInvalidSignature) {
		u.f.log.Warn("payment callback with invalid signature", zap.String("txn_ref", params.Get("vnp_TxnRef")))
		return PaymentCallbackOutput{}, newKindError(ErrInvalidSignature, "invalid signature")
	}
	if err != nil {
		return PaymentCallbackOutput{}, validationError(err.Error())
	}

	out := PaymentCallbackOutput{OrderID: res.OrderID, Success: res.Success, ResponseCode: res.ResponseCode}
	var (
		paid  model.Order
		moved bool
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, res.OrderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}

		if !res.Success {
			//失敗はそのまま（期限切れ掃除か再決済に任せる）
			u.f.log.Info("payment failed at provider",
				zap.Int64("order_id", o.ID),
				zap.String("response_code", res.ResponseCode),
			)
			return nil
		}
		if res.Amount != o.TotalMoney*100 {
			return newKindError(ErrInvalidAmount, "amount does not match order total")
		}
		if o.PaymentStatus == model.PaymentStatusPaid {
			out.AlreadyPaid = true
			return nil
		}
		if o.OrderStatus == model.OrderStatusCancelled {
			u.f.log.Error("payment succeeded for cancelled order, manual refund required",
				zap.Int64("order_id", o.ID),
				zap.String("transaction_id", res.TransactionID),
				zap.Int64("amount", o.TotalMoney),
			)
			return invalidState("order is cancelled")
		}

		now := u.f.clock.Now()
		o.PaymentStatus = model.PaymentStatusPaid
		o.PaidAt = &now
		o.PaymentTransactionID = res.TransactionID

		//保留していた配送注文を作る
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		if err := u.f.createShipment(ctx, &o, items); err != nil {
			u.f.log.Warn("create shipment after payment failed",
				zap.Int64("order_id", o.ID),
				zap.Error(err),
			)
		}

		if err := r.Orders().Save(ctx, o); err != nil {
			return dbError()
		}
		paid, moved = o, true
		return nil
	})
	if err != nil {
		return PaymentCallbackOutput{}, err
	}

	if moved {
		u.f.events.order(ctx, EventOrderPaid, paid)
	}
	return out, nil
}
