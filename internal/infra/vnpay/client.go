package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/gateway"
)

const (
	version      = "2.1.0"
	dateLayout   = "20060102150405"
	successCode  = "00"
	hashField    = "vnp_SecureHash"
	hashTypeName = "vnp_SecureHashType"
)

// VNPayの日時は現地時間で送る
var hoChiMinh = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// Client は決済ページURLの署名とコールバックの検証を行う。HTTP通信はしない。
type Client struct {
	payURL     string
	tmnCode    string
	hashSecret string
	returnURL  string
}

var _ gateway.PaymentGateway = (*Client)(nil)

func NewClient(cfg config.VNPayConfig) *Client {
	return &Client{
		payURL:     cfg.PayURL,
		tmnCode:    cfg.TmnCode,
		hashSecret: cfg.HashSecret,
		returnURL:  cfg.ReturnURL,
	}
}

func (c *Client) BuildRedirectURL(req gateway.PaymentRequest) (string, error) {
	if req.OrderID <= 0 {
		return "", fmt.Errorf("vnpay: invalid order id %d", req.OrderID)
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("vnpay: invalid amount %d", req.Amount)
	}

	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", c.tmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderType", "billpayment")
	params.Set("vnp_OrderInfo", fmt.Sprintf("Thanh toan don hang #%d", req.OrderID))
	params.Set("vnp_ReturnUrl", c.returnURL)
	params.Set("vnp_TxnRef", fmt.Sprintf("%d_%d", req.OrderID, created.Unix()))
	params.Set("vnp_IpAddr", NormalizeIP(req.ClientIP))
	params.Set("vnp_CreateDate", created.In(hoChiMinh).Format(dateLayout))
	if req.ExpiresAt != nil {
		params.Set("vnp_ExpireDate", req.ExpiresAt.In(hoChiMinh).Format(dateLayout))
	}
	if code := strings.TrimSpace(req.BankCode); code != "" {
		params.Set("vnp_BankCode", code)
	}

	query := canonical(params)
	return c.payURL + "?" + query + "&" + hashField + "=" + c.sign(query), nil
}

// VerifyCallback は return / IPN の両方で使う。署名が合わなければ gateway.ErrInvalidSignature。
func (c *Client) VerifyCallback(params url.Values) (gateway.PaymentResult, error) {
	got := params.Get(hashField)
	if got == "" {
		return gateway.PaymentResult{}, gateway.ErrInvalidSignature
	}

	signed := url.Values{}
	for k, v := range params {
		if k == hashField || k == hashTypeName || !strings.HasPrefix(k, "vnp_") {
			continue
		}
		if len(v) > 0 && v[0] != "" {
			signed.Set(k, v[0])
		}
	}
	want := c.sign(canonical(signed))
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return gateway.PaymentResult{}, gateway.ErrInvalidSignature
	}

	orderID, err := ParseTxnRef(params.Get("vnp_TxnRef"))
	if err != nil {
		return gateway.PaymentResult{}, err
	}

	var amount int64
	if raw := params.Get("vnp_Amount"); raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return gateway.PaymentResult{}, fmt.Errorf("vnpay: invalid vnp_Amount %q", raw)
		}
	}

	code := params.Get("vnp_ResponseCode")
	success := code == successCode
	//IPNでは取引状態も来る
	if ts := params.Get("vnp_TransactionStatus"); ts != "" && ts != successCode {
		success = false
	}

	return gateway.PaymentResult{
		OrderID:       orderID,
		Success:       success,
		ResponseCode:  code,
		TransactionID: params.Get("vnp_TransactionNo"),
		Amount:        amount,
		BankCode:      params.Get("vnp_BankCode"),
	}, nil
}

// ParseTxnRef は "{orderId}" と "{orderId}_{unix}" の両方を受け付ける。
func ParseTxnRef(ref string) (int64, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(ref), "_")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("vnpay: invalid vnp_TxnRef %q", ref)
	}
	return id, nil
}

// IPv6・ループバック・不明値は 127.0.0.1 にする
func NormalizeIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil || ip.IsLoopback() || ip.To4() == nil {
		return "127.0.0.1"
	}
	return ip.String()
}

// キー昇順・QueryEscape した key=value を & で連結
func canonical(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.hashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
