package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
)

// ValidatePromotion は有効期間・状態・利用回数・最低注文額を見る。理由付きで InvalidPromotion を返す。
func ValidatePromotion(p model.Promotion, subtotal int64, now time.Time) error {
	if !p.IsActive {
		return invalidPromotion("promotion is not active")
	}
	if now.Before(p.StartDate) {
		return invalidPromotion("promotion has not started yet")
	}
	if now.After(p.EndDate) {
		return invalidPromotion("promotion has expired")
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return invalidPromotion("promotion usage limit reached")
	}
	if subtotal < p.MinOrderValue {
		return invalidPromotion(fmt.Sprintf("order must be at least %d to use this promotion", p.MinOrderValue))
	}
	switch p.DiscountType {
	case model.DiscountTypePercentage, model.DiscountTypeFixedAmount, model.DiscountTypeFreeShipping:
	default:
		return invalidPromotion("unknown discount type")
	}
	return nil
}

// コードから引いて検証まで
func lookupPromotion(ctx context.Context, promotions repo.PromotionRepository, code string, subtotal int64, now time.Time) (model.Promotion, error) {
	p, err := promotions.FindByCode(ctx, strings.TrimSpace(code))
	if err == repo.ErrNotFound {
		return model.Promotion{}, invalidPromotion("promotion code does not exist")
	}
	if err != nil {
		return model.Promotion{}, dbError()
	}
	if err := ValidatePromotion(p, subtotal, now); err != nil {
		return model.Promotion{}, err
	}
	return p, nil
}

type PromotionUsecase struct {
	promotions repo.PromotionRepository
	clock      Clock
}

func NewPromotionUsecase(promotions repo.PromotionRepository, clock Clock) *PromotionUsecase {
	if clock == nil {
		clock = SystemClock()
	}
	return &PromotionUsecase{promotions: promotions, clock: clock}
}

type CheckPromotionInput struct {
	Code        string
	OrderTotal  int64
	ShippingFee int64
}

type CheckPromotionOutput struct {
	PromotionID      int64              `json:"promotion_id"`
	Code             string             `json:"code"`
	Name             string             `json:"name"`
	DiscountType     model.DiscountType `json:"discount_type"`
	DiscountValue    int64              `json:"discount_value"`
	DiscountAmount   int64              `json:"discount_amount"`
	ShippingDiscount int64              `json:"shipping_discount"`
	MinOrderValue    int64              `json:"min_order_value"`
}

// 適用プレビュー（利用回数は増やさない）
func (u *PromotionUsecase) Check(ctx context.Context, in CheckPromotionInput) (CheckPromotionOutput, error) {
	if strings.TrimSpace(in.Code) == "" {
		return CheckPromotionOutput{}, validationError("code required")
	}
	if in.OrderTotal < 0 || in.ShippingFee < 0 {
		return CheckPromotionOutput{}, validationError("order_total and shipping_fee must be >= 0")
	}

	p, err := lookupPromotion(ctx, u.promotions, in.Code, in.OrderTotal, u.clock.Now())
	if err != nil {
		return CheckPromotionOutput{}, err
	}

	discount, shippingDiscount := promotionEffect(p, in.OrderTotal, in.ShippingFee)
	return CheckPromotionOutput{
		PromotionID:      p.ID,
		Code:             p.Code,
		Name:             p.Name,
		DiscountType:     p.DiscountType,
		DiscountValue:    p.DiscountValue,
		DiscountAmount:   discount,
		ShippingDiscount: shippingDiscount,
		MinOrderValue:    p.MinOrderValue,
	}, nil
}
