// Package payment reconciles the external gateway with the order ledger:
// verified return callbacks mark orders paid, and confirmed refunds mark them
// refunded. Nothing here ever mutates an order on unverified input.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/gateway"
)

var (
	// ErrSignatureInvalid marks a forged or tampered callback. It is a
	// security event: logged, rejected, and the order is left untouched.
	ErrSignatureInvalid = errors.New("gateway callback signature invalid")
	// ErrAmountMismatch marks an authentic callback whose amount does not
	// match the order total.
	ErrAmountMismatch = errors.New("gateway callback amount does not match order total")
	// ErrRefundPrecondition fails a refund before any network call is made.
	ErrRefundPrecondition = errors.New("refund precondition not met")
)

// GatewayClient is the adapter surface this service consumes.
type GatewayClient interface {
	VerifyReturn(values url.Values) gateway.ReturnData
	CreateRefund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error)
}

// Ledger reads orders and records verified payment outcomes.
type Ledger interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
	MarkGatewayPaid(ctx context.Context, orderID, transactionNo string) (*order.Order, error)
	MarkRefunded(ctx context.Context, orderID string) (*order.Order, error)
}

type Service struct {
	gateway GatewayClient
	ledger  Ledger
}

func NewService(gw GatewayClient, ledger Ledger) *Service {
	return &Service{gateway: gw, ledger: ledger}
}

// ReturnOutcome is the applied result of a return callback.
type ReturnOutcome struct {
	OrderID       string `json:"order_id"`
	Paid          bool   `json:"paid"`
	ResponseCode  string `json:"response_code"`
	Message       string `json:"message"`
	TransactionNo string `json:"transaction_no,omitempty"`
}

// HandleReturn verifies an inbound return callback and applies it. An invalid
// signature rejects the callback without touching any order. A non-"00"
// response code leaves the order unpaid; cancellation is a separate decision.
func (s *Service) HandleReturn(ctx context.Context, values url.Values) (*ReturnOutcome, error) {
	data := s.gateway.VerifyReturn(values)
	if !data.IsValid {
		log.Printf("[Payment] SECURITY: invalid callback signature for txn ref %q", data.OrderID)
		return nil, ErrSignatureInvalid
	}

	o, err := s.ledger.GetByID(ctx, data.OrderID)
	if err != nil {
		return nil, err
	}
	if data.Amount != o.TotalPrice {
		log.Printf("[Payment] SECURITY: callback amount %d does not match order %s total %d",
			data.Amount, o.ID, o.TotalPrice)
		return nil, ErrAmountMismatch
	}

	outcome := &ReturnOutcome{
		OrderID:       o.ID,
		ResponseCode:  data.ResponseCode,
		Message:       data.Message,
		TransactionNo: data.TransactionNo,
	}
	if data.ResponseCode != gateway.ResponseCodeSuccess {
		log.Printf("[Payment] Order %s payment failed at gateway: %s (%s)",
			o.ID, data.ResponseCode, data.Message)
		return outcome, nil
	}

	if _, err := s.ledger.MarkGatewayPaid(ctx, o.ID, data.TransactionNo); err != nil {
		return nil, err
	}
	outcome.Paid = true
	return outcome, nil
}

// Refund issues a full refund for a paid gateway order. Preconditions are
// checked before any network call; a gateway timeout leaves the order
// unchanged so the refund can be retried safely.
func (s *Service) Refund(ctx context.Context, orderID, reason, requestedBy, clientIP string) (*gateway.RefundResponse, error) {
	o, err := s.ledger.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.Method != order.PaymentMethodGateway {
		return nil, fmt.Errorf("%w: order %s was not paid through the gateway", ErrRefundPrecondition, orderID)
	}
	if o.Payment.Status != order.PaymentPaid {
		return nil, fmt.Errorf("%w: order %s payment status is %s", ErrRefundPrecondition, orderID, o.Payment.Status)
	}
	if o.Payment.TransactionNo == "" {
		return nil, fmt.Errorf("%w: order %s has no recorded gateway transaction", ErrRefundPrecondition, orderID)
	}

	var transactionDate string
	if o.Payment.PaidAt != nil {
		transactionDate = o.Payment.PaidAt.Format("20060102150405")
	}

	resp, err := s.gateway.CreateRefund(ctx, gateway.RefundRequest{
		OrderID:         o.ID,
		TransactionNo:   o.Payment.TransactionNo,
		Amount:          o.TotalPrice,
		TransactionDate: transactionDate,
		Reason:          reason,
		CreatedBy:       requestedBy,
		ClientIP:        clientIP,
		Full:            true,
	})
	if err != nil {
		// No optimistic marking: the order stays Paid until the gateway
		// confirms.
		return nil, err
	}
	if !resp.Success {
		log.Printf("[Payment] Refund for order %s rejected by gateway: %s (%s)",
			o.ID, resp.ResponseCode, resp.Message)
		return resp, nil
	}

	if _, err := s.ledger.MarkRefunded(ctx, o.ID); err != nil {
		return nil, err
	}
	return resp, nil
}
