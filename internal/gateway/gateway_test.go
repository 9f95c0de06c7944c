package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-hash-secret"

func newTestClient(t *testing.T, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		PayURL:     "https://pay.example.com/checkout",
		APIURL:     "https://api.example.com/transaction",
		TmnCode:    "SHOP01",
		HashSecret: testSecret,
		ReturnURL:  "https://shop.example.com/payment/return",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// ============================================
// Construction
// ============================================

func TestNew_MissingSecret(t *testing.T) {
	_, err := New(Config{TmnCode: "SHOP01"})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestNew_MissingTmnCode(t *testing.T) {
	_, err := New(Config{HashSecret: testSecret})
	assert.ErrorIs(t, err, ErrMissingTmnCode)
}

func TestNew_Defaults(t *testing.T) {
	c := newTestClient(t, nil)
	assert.Equal(t, defaultVersion, c.cfg.Version)
	assert.Equal(t, defaultTimeout, c.cfg.Timeout)
}

// ============================================
// Payment URL
// ============================================

func TestBuildPaymentURL(t *testing.T) {
	c := newTestClient(t, nil)
	createdAt := time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC)

	raw := c.BuildPaymentURL("order-1", 180000, "Payment for order ORD1", "203.0.113.9", createdAt)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", parsed.Host)

	values := parsed.Query()
	assert.Equal(t, "2.1.0", values.Get("vnp_Version"))
	assert.Equal(t, "pay", values.Get("vnp_Command"))
	assert.Equal(t, "SHOP01", values.Get("vnp_TmnCode"))
	// Amounts travel scaled by 100.
	assert.Equal(t, "18000000", values.Get("vnp_Amount"))
	assert.Equal(t, "VND", values.Get("vnp_CurrCode"))
	assert.Equal(t, "order-1", values.Get("vnp_TxnRef"))
	assert.Equal(t, "20260829143005", values.Get("vnp_CreateDate"))
	assert.Equal(t, "203.0.113.9", values.Get("vnp_IpAddr"))
	assert.NotEmpty(t, values.Get("vnp_SecureHash"))
}

func TestBuildPaymentURL_ParamsSortedAndSigned(t *testing.T) {
	c := newTestClient(t, nil)

	raw := c.BuildPaymentURL("order-1", 1000, "info", "127.0.0.1", time.Now())

	query := strings.SplitN(raw, "?", 2)[1]
	signed, hashPart, found := strings.Cut(query, "&vnp_SecureHash=")
	require.True(t, found)

	// Keys appear in lexicographic order.
	var prev string
	for _, pair := range strings.Split(signed, "&") {
		key := strings.SplitN(pair, "=", 2)[0]
		assert.GreaterOrEqual(t, key, prev)
		prev = key
	}

	// The hash covers exactly the sorted encoded query.
	assert.Equal(t, hmacSHA512(testSecret, signed), hashPart)
}

// ============================================
// Return verification
// ============================================

func signedReturnValues(amountMinor, responseCode string) url.Values {
	params := map[string]string{
		"vnp_TmnCode":       "SHOP01",
		"vnp_TxnRef":        "order-1",
		"vnp_Amount":        amountMinor,
		"vnp_ResponseCode":  responseCode,
		"vnp_TransactionNo": "14226112",
		"vnp_BankCode":      "NCB",
		"vnp_PayDate":       "20260829143005",
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("vnp_SecureHash", hmacSHA512(testSecret, encodeSorted(params)))
	return values
}

func TestVerifyReturn_Valid(t *testing.T) {
	c := newTestClient(t, nil)

	data := c.VerifyReturn(signedReturnValues("18000000", "00"))

	assert.True(t, data.IsValid)
	assert.True(t, data.Success())
	assert.Equal(t, "order-1", data.OrderID)
	assert.Equal(t, int64(180000), data.Amount)
	assert.Equal(t, "14226112", data.TransactionNo)
	assert.Equal(t, "NCB", data.BankCode)
	assert.Equal(t, "20260829143005", data.PayDate)
}

func TestVerifyReturn_UppercaseHashAccepted(t *testing.T) {
	c := newTestClient(t, nil)
	values := signedReturnValues("18000000", "00")
	values.Set("vnp_SecureHash", strings.ToUpper(values.Get("vnp_SecureHash")))

	data := c.VerifyReturn(values)

	assert.True(t, data.IsValid)
}

func TestVerifyReturn_TamperedParam(t *testing.T) {
	c := newTestClient(t, nil)
	values := signedReturnValues("18000000", "00")
	values.Set("vnp_Amount", "100") // inflate nothing, just tamper

	data := c.VerifyReturn(values)

	assert.False(t, data.IsValid)
	assert.False(t, data.Success())
}

func TestVerifyReturn_TamperedHash(t *testing.T) {
	c := newTestClient(t, nil)
	values := signedReturnValues("18000000", "00")
	values.Set("vnp_SecureHash", strings.Repeat("ab", 64))

	data := c.VerifyReturn(values)

	assert.False(t, data.IsValid)
}

func TestVerifyReturn_MissingHash(t *testing.T) {
	c := newTestClient(t, nil)
	values := signedReturnValues("18000000", "00")
	values.Del("vnp_SecureHash")

	data := c.VerifyReturn(values)

	assert.False(t, data.IsValid)
}

func TestVerifyReturn_DeclinedButAuthentic(t *testing.T) {
	c := newTestClient(t, nil)

	data := c.VerifyReturn(signedReturnValues("18000000", "24"))

	// Authentic callback, unsuccessful payment.
	assert.True(t, data.IsValid)
	assert.False(t, data.Success())
	assert.Equal(t, "24", data.ResponseCode)
	assert.NotEmpty(t, data.Message)
}

func TestVerifyReturn_IgnoresHashTypeParam(t *testing.T) {
	c := newTestClient(t, nil)
	values := signedReturnValues("18000000", "00")
	// Some gateway configurations append the algorithm name unsigned.
	values.Set("vnp_SecureHashType", "HMACSHA512")

	data := c.VerifyReturn(values)

	assert.True(t, data.IsValid)
}

// ============================================
// Refunds
// ============================================

func TestCreateRefund_Success(t *testing.T) {
	var captured refundWire
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(refundWireResponse{
			ResponseCode:  "00",
			Message:       "Refund approved",
			TransactionNo: "99887766",
		})
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.APIURL = server.URL })

	resp, err := c.CreateRefund(context.Background(), RefundRequest{
		OrderID:         "order-1",
		TransactionNo:   "14226112",
		Amount:          180000,
		TransactionDate: "20260829143005",
		Reason:          "customer cancelled",
		CreatedBy:       "admin@example.com",
		ClientIP:        "203.0.113.9",
		Full:            true,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "00", resp.ResponseCode)
	assert.Equal(t, "99887766", resp.GatewayTransactionNo)

	assert.Equal(t, "refund", captured.Command)
	assert.Equal(t, refundTypeFull, captured.TransactionType)
	assert.Equal(t, "18000000", captured.Amount)
	assert.Equal(t, "14226112", captured.TransactionNo)
	// The hash covers the pipe-delimited field string.
	assert.Equal(t, hmacSHA512(testSecret, refundSignData(refundWire{
		RequestID:       captured.RequestID,
		Version:         captured.Version,
		Command:         captured.Command,
		TmnCode:         captured.TmnCode,
		TransactionType: captured.TransactionType,
		TxnRef:          captured.TxnRef,
		Amount:          captured.Amount,
		OrderInfo:       captured.OrderInfo,
		TransactionNo:   captured.TransactionNo,
		TransactionDate: captured.TransactionDate,
		CreateBy:        captured.CreateBy,
		CreateDate:      captured.CreateDate,
		IPAddr:          captured.IPAddr,
	})), captured.SecureHash)
}

func TestCreateRefund_PartialUsesDifferentType(t *testing.T) {
	var captured refundWire
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(refundWireResponse{ResponseCode: "00"})
	}))
	defer server.Close()
	c := newTestClient(t, func(cfg *Config) { cfg.APIURL = server.URL })

	_, err := c.CreateRefund(context.Background(), RefundRequest{OrderID: "order-1", Amount: 1000})

	require.NoError(t, err)
	assert.Equal(t, refundTypePartial, captured.TransactionType)
}

func TestCreateRefund_GatewayDeclines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(refundWireResponse{ResponseCode: "91", Message: "not found"})
	}))
	defer server.Close()
	c := newTestClient(t, func(cfg *Config) { cfg.APIURL = server.URL })

	resp, err := c.CreateRefund(context.Background(), RefundRequest{OrderID: "order-1", Amount: 1000})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "91", resp.ResponseCode)
}

func TestCreateRefund_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	c := newTestClient(t, func(cfg *Config) { cfg.APIURL = server.URL })

	_, err := c.CreateRefund(context.Background(), RefundRequest{OrderID: "order-1", Amount: 1000})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateRefund_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	c := newTestClient(t, func(cfg *Config) { cfg.APIURL = server.URL })

	_, err := c.CreateRefund(context.Background(), RefundRequest{OrderID: "order-1", Amount: 1000})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResponseMessage_UnknownCode(t *testing.T) {
	assert.NotEmpty(t, ResponseMessage("00"))
	assert.NotEmpty(t, ResponseMessage("zz"))
}
