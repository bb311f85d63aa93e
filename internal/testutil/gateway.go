package testutil

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs-labo46/ec-order-api/internal/gateway"
)

// FakeShipping は呼び出しを記録するだけの配送ゲートウェイ。
// 各 Err を入れるとその操作が失敗する。
type FakeShipping struct {
	mu sync.Mutex

	Fee       int64
	FeeErr    error
	Created   []gateway.ShipmentRequest
	CreateFn  func(req gateway.ShipmentRequest) (gateway.Shipment, error)
	Details   map[string]gateway.ShipmentDetail
	GetErr    error
	Canceled  []string
	CancelErr error
}

var _ gateway.ShippingGateway = (*FakeShipping)(nil)

func NewFakeShipping(fee int64) *FakeShipping {
	return &FakeShipping{Fee: fee, Details: map[string]gateway.ShipmentDetail{}}
}

func (f *FakeShipping) QuoteFee(ctx context.Context, req gateway.FeeQuoteRequest) (int64, error) {
	if f.FeeErr != nil {
		return 0, f.FeeErr
	}
	return f.Fee, nil
}

func (f *FakeShipping) CreateShipment(ctx context.Context, req gateway.ShipmentRequest) (gateway.Shipment, error) {
	f.mu.Lock()
	f.Created = append(f.Created, req)
	f.mu.Unlock()

	if f.CreateFn != nil {
		return f.CreateFn(req)
	}
	return gateway.Shipment{
		OrderCode: "GHN-" + req.ClientOrderCode,
		SortCode:  "SORT-1",
		TotalFee:  f.Fee,
	}, nil
}

func (f *FakeShipping) GetShipment(ctx context.Context, orderCode string) (gateway.ShipmentDetail, error) {
	if f.GetErr != nil {
		return gateway.ShipmentDetail{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Details[orderCode]
	if !ok {
		return gateway.ShipmentDetail{}, gateway.ErrUnavailable
	}
	return d, nil
}

func (f *FakeShipping) CancelShipment(ctx context.Context, orderCode string) error {
	f.mu.Lock()
	f.Canceled = append(f.Canceled, orderCode)
	f.mu.Unlock()
	return f.CancelErr
}

func (f *FakeShipping) SetDetail(d gateway.ShipmentDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Details[d.OrderCode] = d
}

func (f *FakeShipping) CreatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Created)
}

func (f *FakeShipping) Provinces(ctx context.Context) ([]gateway.Province, error) {
	return []gateway.Province{{ID: 202, Name: "Hồ Chí Minh"}}, nil
}

func (f *FakeShipping) Districts(ctx context.Context, provinceID int) ([]gateway.District, error) {
	return []gateway.District{{ID: 1442, ProvinceID: provinceID, Name: "Quận 1"}}, nil
}

func (f *FakeShipping) Wards(ctx context.Context, districtID int) ([]gateway.Ward, error) {
	return []gateway.Ward{{Code: "20101", DistrictID: districtID, Name: "Phường Bến Nghé"}}, nil
}

// FakePayment は vnp_SecureHash が "ok" のときだけ検証を通す決済ゲートウェイ
type FakePayment struct {
	mu       sync.Mutex
	Requests []gateway.PaymentRequest
}

var _ gateway.PaymentGateway = (*FakePayment)(nil)

func (f *FakePayment) BuildRedirectURL(req gateway.PaymentRequest) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	return "https://pay.test/?order=" + strconv.FormatInt(req.OrderID, 10), nil
}

func (f *FakePayment) VerifyCallback(params url.Values) (gateway.PaymentResult, error) {
	if params.Get("vnp_SecureHash") != "ok" {
		return gateway.PaymentResult{}, gateway.ErrInvalidSignature
	}
	id, err := strconv.ParseInt(params.Get("vnp_TxnRef"), 10, 64)
	if err != nil {
		return gateway.PaymentResult{}, errors.New("invalid vnp_TxnRef")
	}
	amount, _ := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	code := params.Get("vnp_ResponseCode")
	return gateway.PaymentResult{
		OrderID:       id,
		Success:       code == "00",
		ResponseCode:  code,
		TransactionID: params.Get("vnp_TransactionNo"),
		Amount:        amount,
	}, nil
}

// Callback は FakePayment 向けのコールバックパラメータ
func Callback(orderID int64, amount int64, code string) url.Values {
	return url.Values{
		"vnp_TxnRef":        {strconv.FormatInt(orderID, 10)},
		"vnp_Amount":        {strconv.FormatInt(amount, 10)},
		"vnp_ResponseCode":  {code},
		"vnp_TransactionNo": {"14000001"},
		"vnp_SecureHash":    {"ok"},
	}
}

// RecordingPublisher は発行されたイベントを貯める
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []any
}

func (p *RecordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

func (p *RecordingPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}
