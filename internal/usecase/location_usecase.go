package usecase

import (
	"context"
	"strings"

	"github.com/rs-labo46/ec-order-api/internal/gateway"
)

// 住所選択と送料プレビュー（配送業者のマスタをそのまま返す）
type LocationUsecase struct {
	shipping   gateway.ShippingGateway
	defaultFee int64
}

func NewLocationUsecase(shipping gateway.ShippingGateway, defaultFee int64) *LocationUsecase {
	return &LocationUsecase{shipping: shipping, defaultFee: defaultFee}
}

func (u *LocationUsecase) Provinces(ctx context.Context) ([]gateway.Province, error) {
	out, err := u.shipping.Provinces(ctx)
	if err != nil {
		return nil, newKindError(ErrGateway, "could not load provinces")
	}
	return out, nil
}

func (u *LocationUsecase) Districts(ctx context.Context, provinceID int) ([]gateway.District, error) {
	if provinceID <= 0 {
		return nil, validationError("province_id required")
	}
	out, err := u.shipping.Districts(ctx, provinceID)
	if err != nil {
		return nil, newKindError(ErrGateway, "could not load districts")
	}
	return out, nil
}

func (u *LocationUsecase) Wards(ctx context.Context, districtID int) ([]gateway.Ward, error) {
	if districtID <= 0 {
		return nil, validationError("district_id required")
	}
	out, err := u.shipping.Wards(ctx, districtID)
	if err != nil {
		return nil, newKindError(ErrGateway, "could not load wards")
	}
	return out, nil
}

type ShippingFeeInput struct {
	DistrictID     int
	WardCode       string
	Quantity       int64
	InsuranceValue int64
}

type ShippingFeeOutput struct {
	ShippingFee int64 `json:"shipping_fee"`
	// 見積もりに失敗して既定の送料を返した
	IsDefault bool `json:"is_default"`
}

// QuoteFee はチェックアウトと同じ計算（失敗したら既定の送料）
func (u *LocationUsecase) QuoteFee(ctx context.Context, in ShippingFeeInput) (ShippingFeeOutput, error) {
	if in.DistrictID <= 0 || strings.TrimSpace(in.WardCode) == "" {
		return ShippingFeeOutput{}, validationError("district_id and ward_code required")
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	fee, err := u.shipping.QuoteFee(ctx, gateway.FeeQuoteRequest{
		ToDistrictID:   in.DistrictID,
		ToWardCode:     strings.TrimSpace(in.WardCode),
		WeightGrams:    in.Quantity * itemWeightGrams,
		InsuranceValue: in.InsuranceValue,
	})
	if err != nil {
		return ShippingFeeOutput{ShippingFee: u.defaultFee, IsDefault: true}, nil
	}
	return ShippingFeeOutput{ShippingFee: fee}, nil
}
