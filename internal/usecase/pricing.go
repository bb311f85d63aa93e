package usecase

import (
	"github.com/rs-labo46/ec-order-api/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 価格計算の入力1行（カートの価格スナップショット × 数量）
type PricingLine struct {
	UnitPrice int64
	Quantity  int64
}

type Pricing struct {
	ItemsTotal        int64 `json:"items_total"`
	ShippingFee       int64 `json:"shipping_fee"`
	ShippingDiscount  int64 `json:"shipping_discount"`
	PromotionDiscount int64 `json:"promotion_discount"`
	Total             int64 `json:"total_money"`
}

// CalculatePricing は純粋関数。プロモーションの効果は1種類だけ適用する。
// promo は検証済みであること（nil ならプロモーションなし）。
func CalculatePricing(lines []PricingLine, promo *model.Promotion, shippingFee int64) Pricing {
	var itemsTotal int64
	for _, l := range lines {
		itemsTotal += l.UnitPrice * l.Quantity
	}

	p := Pricing{
		ItemsTotal:  itemsTotal,
		ShippingFee: shippingFee,
	}
	if promo != nil {
		p.PromotionDiscount, p.ShippingDiscount = promotionEffect(*promo, itemsTotal, shippingFee)
	}
	p.Total = p.ItemsTotal + p.ShippingFee - p.ShippingDiscount - p.PromotionDiscount
	return p
}

// (値引き額, 送料割引)
func promotionEffect(promo model.Promotion, subtotal, shippingFee int64) (int64, int64) {
	switch promo.DiscountType {
	case model.DiscountTypePercentage:
		// 四捨五入（0.5 は0から遠い方へ）
		d := decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(promo.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Round(0)
		return d.IntPart(), 0
	case model.DiscountTypeFixedAmount:
		return promo.DiscountValue, 0
	case model.DiscountTypeFreeShipping:
		return 0, shippingFee
	}
	return 0, 0
}
