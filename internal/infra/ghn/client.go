package ghn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/gateway"
)

const (
	serviceTypeExpress = 2
	requiredNote       = "KHONGCHOXEMHANG"
	packageLength      = 40
	packageWidth       = 28
)

// Client はGHNのREST APIを叩く。認証は Token / ShopId ヘッダ。
type Client struct {
	baseURL        string
	token          string
	shopID         string
	fromDistrictID int
	fromWardCode   string
	httpClient     *http.Client
}

var _ gateway.ShippingGateway = (*Client)(nil)

func NewClient(cfg config.GHNConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		shopID:         cfg.ShopID,
		fromDistrictID: cfg.FromDistrictID,
		fromWardCode:   cfg.FromWardCode,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// GHN共通のレスポンス
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) Provinces(ctx context.Context) ([]gateway.Province, error) {
	var out []gateway.Province
	if err := c.do(ctx, http.MethodGet, "/master-data/province", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Districts(ctx context.Context, provinceID int) ([]gateway.District, error) {
	q := url.Values{"province_id": {strconv.Itoa(provinceID)}}
	var out []gateway.District
	if err := c.do(ctx, http.MethodGet, "/master-data/district", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Wards(ctx context.Context, districtID int) ([]gateway.Ward, error) {
	q := url.Values{"district_id": {strconv.Itoa(districtID)}}
	var out []gateway.Ward
	if err := c.do(ctx, http.MethodGet, "/master-data/ward", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type feeRequest struct {
	ServiceTypeID  int    `json:"service_type_id"`
	FromDistrictID int    `json:"from_district_id"`
	FromWardCode   string `json:"from_ward_code"`
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	Height         int    `json:"height"`
	Length         int    `json:"length"`
	Weight         int64  `json:"weight"`
	Width          int    `json:"width"`
	InsuranceValue int64  `json:"insurance_value"`
}

func (c *Client) QuoteFee(ctx context.Context, req gateway.FeeQuoteRequest) (int64, error) {
	weight := req.WeightGrams
	if weight <= 0 {
		weight = 200
	}
	body := feeRequest{
		ServiceTypeID:  serviceTypeExpress,
		FromDistrictID: c.fromDistrictID,
		FromWardCode:   c.fromWardCode,
		ToDistrictID:   req.ToDistrictID,
		ToWardCode:     req.ToWardCode,
		Height:         15,
		Length:         20,
		Weight:         weight,
		Width:          20,
		InsuranceValue: req.InsuranceValue,
	}

	var out struct {
		Total int64 `json:"total"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/shipping-order/fee", nil, body, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

type createItem struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Length   int    `json:"length"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Weight   int64  `json:"weight"`
}

type createRequest struct {
	PaymentTypeID   int          `json:"payment_type_id"`
	Note            string       `json:"note"`
	RequiredNote    string       `json:"required_note"`
	ClientOrderCode string       `json:"client_order_code"`
	ToName          string       `json:"to_name"`
	ToPhone         string       `json:"to_phone"`
	ToAddress       string       `json:"to_address"`
	ToWardCode      string       `json:"to_ward_code"`
	ToDistrictID    int          `json:"to_district_id"`
	CODAmount       int64        `json:"cod_amount"`
	Content         string       `json:"content"`
	Weight          int64        `json:"weight"`
	Length          int          `json:"length"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	InsuranceValue  int64        `json:"insurance_value"`
	ServiceTypeID   int          `json:"service_type_id"`
	Items           []createItem `json:"items"`
}

func (c *Client) CreateShipment(ctx context.Context, req gateway.ShipmentRequest) (gateway.Shipment, error) {
	items := make([]createItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, createItem{
			Name:     it.Name,
			Code:     it.Code,
			Quantity: it.Quantity,
			Price:    it.Price,
			Length:   packageLength,
			Width:    packageWidth,
			Height:   1,
			Weight:   it.WeightGrams,
		})
	}
	height := req.Height
	if height <= 0 {
		height = 1
	}

	body := createRequest{
		PaymentTypeID:   req.PaymentTypeID,
		Note:            req.Note,
		RequiredNote:    requiredNote,
		ClientOrderCode: req.ClientOrderCode,
		ToName:          req.ToName,
		ToPhone:         req.ToPhone,
		ToAddress:       req.ToAddress,
		ToWardCode:      req.ToWardCode,
		ToDistrictID:    req.ToDistrictID,
		CODAmount:       req.CODAmount,
		Content:         "Thời trang",
		Weight:          req.WeightGrams,
		Length:          packageLength,
		Width:           packageWidth,
		Height:          height,
		InsuranceValue:  req.InsuranceValue,
		ServiceTypeID:   serviceTypeExpress,
		Items:           items,
	}

	var out struct {
		OrderCode            string `json:"order_code"`
		SortCode             string `json:"sort_code"`
		TotalFee             int64  `json:"total_fee"`
		ExpectedDeliveryTime string `json:"expected_delivery_time"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/shipping-order/create", nil, body, &out); err != nil {
		return gateway.Shipment{}, err
	}
	if out.OrderCode == "" {
		return gateway.Shipment{}, fmt.Errorf("%w: ghn create: empty order_code", gateway.ErrUnavailable)
	}

	return gateway.Shipment{
		OrderCode:            out.OrderCode,
		SortCode:             out.SortCode,
		TotalFee:             out.TotalFee,
		ExpectedDeliveryTime: parseTime(out.ExpectedDeliveryTime),
	}, nil
}

type detailLog struct {
	Status      string `json:"status"`
	UpdatedDate string `json:"updated_date"`
}

type detailResponse struct {
	OrderCode            string      `json:"order_code"`
	Status               string      `json:"status"`
	SortCode             string      `json:"sort_code"`
	CODAmount            int64       `json:"cod_amount"`
	Note                 string      `json:"note"`
	ExpectedDeliveryTime string      `json:"leadtime"`
	Log                  []detailLog `json:"log"`
	Fee                  *struct {
		MainService int64 `json:"main_service"`
	} `json:"fee"`
}

func (c *Client) GetShipment(ctx context.Context, orderCode string) (gateway.ShipmentDetail, error) {
	var raw json.RawMessage
	body := map[string]string{"order_code": orderCode}
	if err := c.do(ctx, http.MethodPost, "/v2/shipping-order/detail", nil, body, &raw); err != nil {
		return gateway.ShipmentDetail{}, err
	}

	var d detailResponse
	if err := json.Unmarshal(raw, &d); err != nil {
		return gateway.ShipmentDetail{}, fmt.Errorf("%w: ghn detail decode: %v", gateway.ErrUnavailable, err)
	}

	out := gateway.ShipmentDetail{
		OrderCode:            d.OrderCode,
		Status:               d.Status,
		StatusText:           StatusText(d.Status),
		SortCode:             d.SortCode,
		CODAmount:            d.CODAmount,
		Note:                 d.Note,
		ExpectedDeliveryTime: parseTime(d.ExpectedDeliveryTime),
		Raw:                  raw,
	}
	if st, ok := MapStatus(d.Status); ok {
		out.OrderStatus = st
	}
	if d.Fee != nil {
		out.TotalFee = d.Fee.MainService
	}
	for _, l := range d.Log {
		entry := gateway.ShipmentLogEntry{Status: l.Status}
		if t := parseTime(l.UpdatedDate); t != nil {
			entry.UpdatedDate = *t
		}
		out.Log = append(out.Log, entry)
	}
	//最新ログの状態を表示用にする
	if n := len(out.Log); n > 0 && out.Log[n-1].Status != "" {
		out.StatusText = StatusText(out.Log[n-1].Status)
	}
	return out, nil
}

func (c *Client) CancelShipment(ctx context.Context, orderCode string) error {
	body := map[string][]string{"order_codes": {orderCode}}
	return c.do(ctx, http.MethodPost, "/v2/switch-status/cancel", nil, body, nil)
}

// do はリクエストを送り、code=200 の data を out にデコードする。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ghn %s: encode: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ghn %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
	req.Header.Set("ShopId", c.shopID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ghn %s: %v", gateway.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		return fmt.Errorf("%w: ghn %s: status %d: decode: %v", gateway.ErrUnavailable, path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != http.StatusOK {
		return fmt.Errorf("%w: ghn %s: status %d code %d: %s", gateway.ErrUnavailable, path, resp.StatusCode, env.Code, env.Message)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], env.Data...)
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: ghn %s: decode data: %v", gateway.ErrUnavailable, path, err)
	}
	return nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
