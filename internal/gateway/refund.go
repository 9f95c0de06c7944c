package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Transaction-type codes distinguishing full from partial refunds.
	refundTypeFull    = "02"
	refundTypePartial = "03"
)

type RefundRequest struct {
	OrderID       string
	TransactionNo string
	// Amount is the refund amount in currency units (scaled on the wire).
	Amount int64
	// TransactionDate is the original payment's vnp_PayDate (YYYYMMDDHHmmss).
	TransactionDate string
	Reason          string
	CreatedBy       string
	ClientIP        string
	// Full marks a full refund; partial refunds use a different
	// transaction-type code.
	Full bool
}

type RefundResponse struct {
	Success              bool   `json:"success"`
	RequestID            string `json:"request_id"`
	ResponseCode         string `json:"response_code"`
	Message              string `json:"message"`
	GatewayTransactionNo string `json:"gateway_transaction_no,omitempty"`
}

// refundWire is the JSON body posted to the gateway's refund endpoint.
type refundWire struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TransactionType string `json:"vnp_TransactionType"`
	TxnRef          string `json:"vnp_TxnRef"`
	Amount          string `json:"vnp_Amount"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	TransactionNo   string `json:"vnp_TransactionNo"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateBy        string `json:"vnp_CreateBy"`
	CreateDate      string `json:"vnp_CreateDate"`
	IPAddr          string `json:"vnp_IpAddr"`
	SecureHash      string `json:"vnp_SecureHash"`
}

type refundWireResponse struct {
	ResponseCode  string `json:"vnp_ResponseCode"`
	Message       string `json:"vnp_Message"`
	TransactionNo string `json:"vnp_TransactionNo"`
}

// CreateRefund submits a signed refund request. The refund endpoint signs a
// pipe-delimited field string rather than an encoded query; both schemes are
// the gateway's contract. Network failures surface as ErrUnavailable and are
// safe to retry because the gateway deduplicates on vnp_RequestId semantics.
func (c *Client) CreateRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	wire := refundWire{
		RequestID:       uuid.New().String(),
		Version:         c.cfg.Version,
		Command:         "refund",
		TmnCode:         c.cfg.TmnCode,
		TransactionType: refundTypePartial,
		TxnRef:          req.OrderID,
		Amount:          strconv.FormatInt(req.Amount*100, 10),
		OrderInfo:       req.Reason,
		TransactionNo:   req.TransactionNo,
		TransactionDate: req.TransactionDate,
		CreateBy:        req.CreatedBy,
		CreateDate:      time.Now().Format(timeLayout),
		IPAddr:          req.ClientIP,
	}
	if req.Full {
		wire.TransactionType = refundTypeFull
	}
	wire.SecureHash = c.sign(refundSignData(wire))

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var wireResp refundWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, fmt.Errorf("%w: malformed refund response: %v", ErrUnavailable, err)
	}

	return &RefundResponse{
		Success:              wireResp.ResponseCode == ResponseCodeSuccess,
		RequestID:            wire.RequestID,
		ResponseCode:         wireResp.ResponseCode,
		Message:              ResponseMessage(wireResp.ResponseCode),
		GatewayTransactionNo: wireResp.TransactionNo,
	}, nil
}

// refundSignData joins the refund fields pipe-delimited in the order the
// gateway specifies; HMAC-SHA512 over the UTF-8 bytes.
func refundSignData(w refundWire) string {
	return strings.Join([]string{
		w.RequestID,
		w.Version,
		w.Command,
		w.TmnCode,
		w.TransactionType,
		w.TxnRef,
		w.Amount,
		w.TransactionNo,
		w.TransactionDate,
		w.CreateBy,
		w.CreateDate,
		w.IPAddr,
		w.OrderInfo,
	}, "|")
}
