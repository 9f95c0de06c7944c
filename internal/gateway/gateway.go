// Package gateway implements the external payment gateway's wire protocol:
// signed redirect URLs, return-callback verification and refund requests.
// The two signing schemes (urlencoded query vs pipe-delimited refund fields)
// are dictated by the gateway's own API contract and are kept distinct.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultVersion = "2.1.0"
	defaultTimeout = 10 * time.Second

	// timeLayout is the gateway's YYYYMMDDHHmmss timestamp format.
	timeLayout = "20060102150405"

	// ResponseCodeSuccess is the sole success indicator on callbacks and
	// refund responses.
	ResponseCodeSuccess = "00"
)

var (
	ErrMissingSecret  = errors.New("gateway hash secret is not configured")
	ErrMissingTmnCode = errors.New("gateway merchant code is not configured")
	ErrUnavailable    = errors.New("payment gateway unavailable")
)

type Config struct {
	// PayURL is the hosted payment page endpoint the redirect URL points at.
	PayURL string
	// APIURL is the server-to-server endpoint used for refunds.
	APIURL string
	// TmnCode is the merchant code issued by the gateway.
	TmnCode string
	// HashSecret is the shared HMAC-SHA512 secret.
	HashSecret string
	// ReturnURL receives the asynchronous return callback.
	ReturnURL string
	Version   string
	Timeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

// New validates the configuration. A missing secret or merchant code is a
// startup-fatal condition, not a per-request error.
func New(cfg Config) (*Client, error) {
	if cfg.HashSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TmnCode == "" {
		return nil, ErrMissingTmnCode
	}
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// BuildPaymentURL builds the signed redirect URL for one order. Amounts are
// sent as integers scaled by 100 per the gateway convention; parameters are
// sorted lexicographically by percent-encoded key before signing.
func (c *Client) BuildPaymentURL(orderID string, amount int64, orderInfo, clientIP string, createdAt time.Time) string {
	params := map[string]string{
		"vnp_Version":    c.cfg.Version,
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(amount*100, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     orderID,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": createdAt.Format(timeLayout),
	}

	query := encodeSorted(params)
	hash := c.sign(query)
	return c.cfg.PayURL + "?" + query + "&vnp_SecureHash=" + hash
}

// ReturnData is the verified content of an inbound return callback.
type ReturnData struct {
	IsValid       bool
	OrderID       string
	Amount        int64
	TransactionNo string
	ResponseCode  string
	BankCode      string
	PayDate       string
	// Message is the human-readable meaning of ResponseCode.
	Message string
}

// Success reports whether the callback is both authentic and approved.
func (r ReturnData) Success() bool {
	return r.IsValid && r.ResponseCode == ResponseCodeSuccess
}

// VerifyReturn recomputes the signature over all callback parameters except
// the hash fields and compares it against the supplied secureHash. A result
// with IsValid=false is an untrusted callback and must never touch an order.
func (c *Client) VerifyReturn(values url.Values) ReturnData {
	supplied := values.Get("vnp_SecureHash")

	params := make(map[string]string, len(values))
	for k := range values {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		params[k] = values.Get(k)
	}

	expected := c.sign(encodeSorted(params))
	valid := supplied != "" &&
		hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected))

	data := ReturnData{
		IsValid:       valid,
		OrderID:       values.Get("vnp_TxnRef"),
		TransactionNo: values.Get("vnp_TransactionNo"),
		ResponseCode:  values.Get("vnp_ResponseCode"),
		BankCode:      values.Get("vnp_BankCode"),
		PayDate:       values.Get("vnp_PayDate"),
		Message:       ResponseMessage(values.Get("vnp_ResponseCode")),
	}
	if raw := values.Get("vnp_Amount"); raw != "" {
		if minor, err := strconv.ParseInt(raw, 10, 64); err == nil {
			data.Amount = minor / 100
		}
	}
	return data
}

// encodeSorted url-encodes params joined by & with keys in lexicographic
// order, which is exactly the string the gateway signs.
func encodeSorted(params map[string]string) string {
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
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// sign computes the hex-encoded HMAC-SHA512 of data with the shared secret.
func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
