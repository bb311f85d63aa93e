// Package gateway declares the contracts the order usecases need from the
// shipping provider and the payment provider. Implementations live under
// internal/infra.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

// ErrUnavailable wraps transport or provider-side failures.
var ErrUnavailable = errors.New("gateway unavailable")

// 送料見積もり
type FeeQuoteRequest struct {
	ToDistrictID   int
	ToWardCode     string
	WeightGrams    int64
	InsuranceValue int64
}

type ShipmentItem struct {
	Name        string
	Code        string
	Quantity    int64
	Price       int64
	WeightGrams int64
}

// 配送注文の作成
type ShipmentRequest struct {
	ClientOrderCode string
	ToName          string
	ToPhone         string
	ToAddress       string
	ToWardCode      string
	ToDistrictID    int
	Note            string
	CODAmount       int64
	// 1: 送料はショップ負担 / 2: 受取人負担
	PaymentTypeID  int
	WeightGrams    int64
	InsuranceValue int64
	Height         int
	Items          []ShipmentItem
}

type Shipment struct {
	OrderCode            string
	SortCode             string
	TotalFee             int64
	ExpectedDeliveryTime *time.Time
}

type ShipmentLogEntry struct {
	Status      string    `json:"status"`
	UpdatedDate time.Time `json:"updated_date"`
}

type ShipmentDetail struct {
	OrderCode  string
	Status     string
	StatusText string
	// 注文状態に変換したもの。未知の状態なら空
	OrderStatus          model.OrderStatus
	SortCode             string
	CODAmount            int64
	TotalFee             int64
	ExpectedDeliveryTime *time.Time
	Note                 string
	Log                  []ShipmentLogEntry
	Raw                  json.RawMessage
}

type Province struct {
	ID   int    `json:"province_id"`
	Name string `json:"province_name"`
}

type District struct {
	ID         int    `json:"district_id"`
	ProvinceID int    `json:"province_id"`
	Name       string `json:"district_name"`
}

type Ward struct {
	Code       string `json:"ward_code"`
	DistrictID int    `json:"district_id"`
	Name       string `json:"ward_name"`
}

// 配送業者（GHN）
type ShippingGateway interface {
	QuoteFee(ctx context.Context, req FeeQuoteRequest) (int64, error)
	CreateShipment(ctx context.Context, req ShipmentRequest) (Shipment, error)
	GetShipment(ctx context.Context, orderCode string) (ShipmentDetail, error)
	CancelShipment(ctx context.Context, orderCode string) error

	Provinces(ctx context.Context) ([]Province, error)
	Districts(ctx context.Context, provinceID int) ([]District, error)
	Wards(ctx context.Context, districtID int) ([]Ward, error)
}

// 決済ページへのリダイレクトに必要な情報
type PaymentRequest struct {
	OrderID   int64
	Amount    int64
	BankCode  string
	ClientIP  string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// 検証済みコールバック
type PaymentResult struct {
	OrderID       int64
	Success       bool
	ResponseCode  string
	TransactionID string
	Amount        int64
	BankCode      string
}

// ErrInvalidSignature is returned by VerifyCallback when the signature does not match.
var ErrInvalidSignature = errors.New("invalid signature")

// 決済（VNPay）
type PaymentGateway interface {
	BuildRedirectURL(req PaymentRequest) (string, error)
	VerifyCallback(params url.Values) (PaymentResult, error)
}
