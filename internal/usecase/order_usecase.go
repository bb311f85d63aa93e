package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/gateway"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderOptions struct {
	// 見積もりできないときの送料
	DefaultShippingFee int64
	// オンライン決済の支払期限
	PaymentTTL time.Duration
}

// チェックアウト入力の検証（実装は validator パッケージ）
type CheckoutValidator interface {
	ValidateCheckout(ctx context.Context, in CheckoutInput) error
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	f         *Fulfillment
	payment   gateway.PaymentGateway
	validator CheckoutValidator
	opts      OrderOptions
}

func NewOrderUsecase(tx repo.TransactionManager, f *Fulfillment, payment gateway.PaymentGateway, validator CheckoutValidator, opts OrderOptions) *OrderUsecase {
	if opts.PaymentTTL <= 0 {
		opts.PaymentTTL = 48 * time.Hour
	}
	return &OrderUsecase{tx: tx, f: f, payment: payment, validator: validator, opts: opts}
}

type CheckoutInput struct {
	Fullname      string
	Email         string
	PhoneNumber   string
	ProvinceID    int
	DistrictID    int
	WardCode      string
	Address       string
	Note          string
	PaymentMethod string
	PromotionCode string
	BankCode      string

	ClientIP       string
	IdempotencyKey string
}

type CheckoutOutput struct {
	Order      OrderOutput `json:"order"`
	PaymentURL string      `json:"payment_url,omitempty"`
}

// Checkout はカートから注文を作る。在庫の減算・プロモーションの消費・カートのクリアは1トランザクション。
// 代引きは同じトランザクションで配送注文も作る（失敗しても pending のまま残す）。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.ValidateCheckout(ctx, in); err != nil {
		return CheckoutOutput{}, validationError(err.Error())
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	method := model.PaymentMethod(in.PaymentMethod)
	now := u.f.clock.Now()

	var (
		order    model.Order
		replayed bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return dbError()
			}
			if found {
				o, err := r.Orders().FindByID(ctx, existing.ID)
				if err != nil {
					return dbError()
				}
				order, replayed = o, true
				return nil
			}
		}

		//ACTIVEカート
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return newKindError(ErrEmptyCart, "cart is empty")
		}
		if err != nil {
			return dbError()
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbError()
		}
		if len(cartItems) == 0 {
			return newKindError(ErrEmptyCart, "cart is empty")
		}

		//在庫チェックとスナップショット
		lines := make([]PricingLine, 0, len(cartItems))
		items := make([]model.OrderItem, 0, len(cartItems))
		var weight int64
		for _, ci := range cartItems {
			v, err := r.Products().FindVariantByID(ctx, ci.ProductVariantID)
			if err == repo.ErrNotFound {
				return notFoundError(fmt.Sprintf("product variant %d not found", ci.ProductVariantID))
			}
			if err != nil {
				return dbError()
			}
			if !v.IsPurchasable() {
				return notFoundError(fmt.Sprintf("product %s is no longer available", v.DisplayName()))
			}
			if v.Stock < ci.Quantity {
				return insufficientStock(v.DisplayName(), v.Stock)
			}

			lines = append(lines, PricingLine{UnitPrice: ci.UnitPriceSnapshot, Quantity: ci.Quantity})
			items = append(items, model.OrderItem{
				ProductVariantID: v.ID,
				ProductName:      v.DisplayName(),
				SKU:              v.SKU,
				Size:             v.Size,
				Color:            v.Color,
				UnitPrice:        ci.UnitPriceSnapshot,
				Quantity:         ci.Quantity,
				TotalPrice:       ci.UnitPriceSnapshot * ci.Quantity,
			})
			weight += ci.Quantity * itemWeightGrams
		}

		subtotal := CalculatePricing(lines, nil, 0).ItemsTotal
		fee := u.f.quoteFee(ctx, in.DistrictID, strings.TrimSpace(in.WardCode), weight, subtotal, u.opts.DefaultShippingFee)

		var promo *model.Promotion
		if code := strings.TrimSpace(in.PromotionCode); code != "" {
			p, err := lookupPromotion(ctx, r.Promotions(), code, subtotal, now)
			if err != nil {
				return err
			}
			promo = &p
		}

		pricing := CalculatePricing(lines, promo, fee)
		if pricing.Total <= 0 {
			return newKindError(ErrInvalidAmount, "order total must be greater than 0")
		}

		//在庫減算（条件付きUPDATE。ここが同時実行の最終ガード）
		for _, it := range items {
			ok, err := r.Inventory().Reserve(ctx, it.ProductVariantID, it.Quantity)
			if err != nil {
				return dbError()
			}
			if !ok {
				remaining := int64(0)
				if v, err := r.Products().FindVariantByID(ctx, it.ProductVariantID); err == nil {
					remaining = v.Stock
				}
				return insufficientStock(it.ProductName, remaining)
			}
		}

		order = model.Order{
			UserID:            userID,
			Fullname:          strings.TrimSpace(in.Fullname),
			Email:             strings.TrimSpace(in.Email),
			PhoneNumber:       strings.TrimSpace(in.PhoneNumber),
			ProvinceID:        in.ProvinceID,
			DistrictID:        in.DistrictID,
			WardCode:          strings.TrimSpace(in.WardCode),
			Address:           strings.TrimSpace(in.Address),
			Note:              in.Note,
			OrderStatus:       model.OrderStatusPending,
			PaymentMethod:     method,
			PaymentStatus:     model.PaymentStatusUnpaid,
			ItemsTotal:        pricing.ItemsTotal,
			ShippingFee:       pricing.ShippingFee,
			ShippingDiscount:  pricing.ShippingDiscount,
			PromotionDiscount: pricing.PromotionDiscount,
			TotalMoney:        pricing.Total,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if promo != nil {
			order.PromotionID = &promo.ID
		}
		if key != "" {
			order.IdempotencyKey = &key
		}
		if method == model.PaymentMethodVNPay {
			exp := now.Add(u.opts.PaymentTTL)
			order.PaymentExpiresAt = &exp
		}

		orderID, err := r.Orders().Create(ctx, order)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			//同じキーで同時に来た
			return invalidState("a request with the same idempotency key is in progress")
		}
		if err != nil {
			return dbError()
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return dbError()
		}

		if promo != nil {
			ok, err := r.Promotions().Commit(ctx, promo.ID)
			if err != nil {
				return dbError()
			}
			if !ok {
				return invalidPromotion("promotion usage limit reached")
			}
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return dbError()
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return dbError()
		}

		//代引きはすぐ配送注文を作る
		if method == model.PaymentMethodCOD {
			if err := u.f.createShipment(ctx, &order, items); err != nil {
				u.f.log.Warn("create shipment failed, order left pending",
					zap.Int64("order_id", orderID),
					zap.Error(err),
				)
			} else if err := r.Orders().Save(ctx, order); err != nil {
				return dbError()
			}
		}

		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError()
		}
		order = o
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}

	out := CheckoutOutput{Order: toOrderOutput(order)}
	if !replayed {
		u.f.events.order(ctx, EventOrderCreated, order)
	}
	if order.PaymentMethod == model.PaymentMethodVNPay &&
		order.PaymentStatus == model.PaymentStatusUnpaid &&
		order.OrderStatus != model.OrderStatusCancelled {
		url, err := u.paymentURL(order, in.BankCode, in.ClientIP)
		if err != nil {
			//注文は確定済み。retry-payment で取り直せる
			u.f.log.Error("build payment url failed", zap.Int64("order_id", order.ID), zap.Error(err))
		}
		out.PaymentURL = url
	}
	return out, nil
}

func (u *OrderUsecase) paymentURL(o model.Order, bankCode, clientIP string) (string, error) {
	return u.payment.BuildRedirectURL(gateway.PaymentRequest{
		OrderID:   o.ID,
		Amount:    o.TotalMoney,
		BankCode:  bankCode,
		ClientIP:  clientIP,
		CreatedAt: u.f.clock.Now(),
		ExpiresAt: o.PaymentExpiresAt,
	})
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, status string, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validatePaging(page, limit); err != nil {
		return OrderListOutput{}, err
	}
	if status != "" && !model.OrderStatus(status).IsValid() {
		return OrderListOutput{}, validationError("invalid status")
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, status, page, limit)
		if err != nil {
			return dbError()
		}
		out = OrderListOutput{Items: toOrderOutputs(orders), Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return notFoundError("order not found")
		}
		out = toOrderOutput(o)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Cancel は本人のキャンセル（pending / confirmed のみ）
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.f.cancelInTx(ctx, r, orderID, &userID)
		if err != nil {
			return err
		}
		out, err = r.Orders().FindByID(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.f.events.order(ctx, EventOrderCancelled, out)
	return toOrderOutput(out), nil
}

type RetryPaymentOutput struct {
	OrderID    int64  `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

// RetryPayment は未払いのオンライン決済注文の決済URLを作り直す
func (u *OrderUsecase) RetryPayment(ctx context.Context, userID int64, orderID int64, bankCode, clientIP string) (RetryPaymentOutput, error) {
	if userID <= 0 {
		return RetryPaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return RetryPaymentOutput{}, validationError("invalid id")
	}

	o, err := u.GetMyOrderDetail(ctx, userID, orderID)
	if err != nil {
		return RetryPaymentOutput{}, err
	}
	if o.PaymentMethod != model.PaymentMethodVNPay {
		return RetryPaymentOutput{}, invalidState("order is not an online payment order")
	}
	if o.PaymentStatus == model.PaymentStatusPaid {
		return RetryPaymentOutput{}, invalidState("order already paid")
	}
	if o.OrderStatus == model.OrderStatusCancelled {
		return RetryPaymentOutput{}, invalidState("order is cancelled")
	}
	if o.PaymentExpiresAt != nil && o.PaymentExpiresAt.Before(u.f.clock.Now()) {
		return RetryPaymentOutput{}, invalidState("payment window has expired")
	}

	url, err := u.payment.BuildRedirectURL(gateway.PaymentRequest{
		OrderID:   o.ID,
		Amount:    o.TotalMoney,
		BankCode:  bankCode,
		ClientIP:  clientIP,
		CreatedAt: u.f.clock.Now(),
		ExpiresAt: o.PaymentExpiresAt,
	})
	if err != nil {
		return RetryPaymentOutput{}, newKindError(ErrGateway, "could not build payment url")
	}
	return RetryPaymentOutput{OrderID: o.ID, PaymentURL: url}, nil
}
