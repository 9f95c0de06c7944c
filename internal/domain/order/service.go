package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

const maxTransitionRetries = 3

// DefaultCancelReason is recorded when no reason is supplied.
const DefaultCancelReason = "cancelled by customer"

// Ledger is the durable order record the state machine mutates.
type Ledger interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
}

// StockAdjuster releases reserved stock and settles sales counters.
type StockAdjuster interface {
	ReleaseStock(ctx context.Context, variantID string, qty int) error
	IncrementSales(ctx context.Context, productID string, qty int) error
}

// CouponAccountant rolls back coupon usage on cancellation.
type CouponAccountant interface {
	DecrementUsage(ctx context.Context, couponID string) error
}

// TxRunner scopes a transition and its compensating actions to one
// transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service owns all order status transitions and their side effects. Orders
// are mutated nowhere else.
type Service struct {
	tx      TxRunner
	orders  Ledger
	stock   StockAdjuster
	coupons CouponAccountant
	events  EventPublisher // optional
}

func NewService(tx TxRunner, orders Ledger, stock StockAdjuster, coupons CouponAccountant, events EventPublisher) *Service {
	return &Service{tx: tx, orders: orders, stock: stock, coupons: coupons, events: events}
}

// GetByID loads one order.
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// CancelResult reports the cancelled order and whether money is still owed.
type CancelResult struct {
	Order      *Order `json:"order"`
	NeedRefund bool   `json:"need_refund"`
}

// Cancel moves a non-terminal order to Cancelled, releasing every line item's
// reserved stock and rolling back coupon usage. A paid order still cancels,
// but the result flags that a refund is owed; payment status is not touched.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*CancelResult, error) {
	if reason == "" {
		reason = DefaultCancelReason
	}

	var result CancelResult
	err := s.runTransition(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.CanTransitionTo(StatusCancelled) {
			return o.transitionError(StatusCancelled)
		}

		for _, item := range o.Items {
			if err := s.stock.ReleaseStock(ctx, item.VariantID, item.Quantity); err != nil {
				return fmt.Errorf("release stock for variant %s: %w", item.VariantID, err)
			}
		}
		if o.CouponID != "" {
			if err := s.coupons.DecrementUsage(ctx, o.CouponID); err != nil {
				return fmt.Errorf("roll back coupon %s: %w", o.CouponID, err)
			}
		}

		result.NeedRefund = o.Payment.Status == PaymentPaid
		o.CancelReason = reason
		o.applyStatus(StatusCancelled, time.Now())
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		result.Order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventOrderCancelled, result.Order, OrderCancelled{
		OrderID:        result.Order.ID,
		Email:          result.Order.ShippingAddress.Email,
		Reason:         reason,
		NeedRefund:     result.NeedRefund,
		TrackingNumber: result.Order.TrackingNumber,
		CancelledAt:    time.Now(),
	})
	return &result, nil
}

// Deliver marks the order Delivered. A still-unpaid order (COD) is marked
// paid at delivery. This is the only place product sales counters are
// incremented, so they reflect fulfilled rather than merely placed orders.
func (s *Service) Deliver(ctx context.Context, orderID string) (*Order, error) {
	var delivered *Order
	err := s.runTransition(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.CanTransitionTo(StatusDelivered) {
			return o.transitionError(StatusDelivered)
		}

		now := time.Now()
		if o.Payment.Status == PaymentUnpaid {
			o.Payment.Status = PaymentPaid
			o.Payment.PaidAt = &now
		}
		for _, item := range o.Items {
			if err := s.stock.IncrementSales(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("increment sales for product %s: %w", item.ProductID, err)
			}
		}

		o.applyStatus(StatusDelivered, now)
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		delivered = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventOrderDelivered, delivered, OrderDelivered{
		OrderID:        delivered.ID,
		Email:          delivered.ShippingAddress.Email,
		TrackingNumber: delivered.TrackingNumber,
		DeliveredAt:    time.Now(),
	})
	return delivered, nil
}

// UpdateStatus performs an admin-driven transition. Delivered and Cancelled
// route through their dedicated transitions so side effects never diverge.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status) (*Order, error) {
	switch target {
	case StatusDelivered:
		return s.Deliver(ctx, orderID)
	case StatusCancelled:
		result, err := s.Cancel(ctx, orderID, "cancelled by admin")
		if err != nil {
			return nil, err
		}
		return result.Order, nil
	case StatusProcessing, StatusShipping:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, target)
	}

	var updated *Order
	err := s.runTransition(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.CanTransitionTo(target) {
			return o.transitionError(target)
		}
		o.applyStatus(target, time.Now())
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkGatewayPaid records a verified gateway payment on the order's payment
// sub-record. Replays of an already-recorded transaction are no-ops.
func (s *Service) MarkGatewayPaid(ctx context.Context, orderID, transactionNo string) (*Order, error) {
	var paid *Order
	var replay bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Payment.Method != PaymentMethodGateway {
			return fmt.Errorf("%w: order %s is not a gateway order", ErrInvalidPayMethod, orderID)
		}
		if o.Payment.Status != PaymentUnpaid {
			paid = o
			replay = true
			return nil
		}

		now := time.Now()
		o.Payment.Status = PaymentPaid
		o.Payment.PaidAt = &now
		o.Payment.TransactionNo = transactionNo
		o.UpdatedAt = now
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		paid = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replay {
		return paid, nil
	}

	s.publish(ctx, EventOrderPaid, paid, OrderPaid{
		OrderID:        paid.ID,
		Email:          paid.ShippingAddress.Email,
		Total:          paid.TotalPrice,
		TransactionNo:  transactionNo,
		TrackingNumber: paid.TrackingNumber,
		PaidAt:         time.Now(),
	})
	return paid, nil
}

// MarkRefunded records a confirmed gateway refund.
func (s *Service) MarkRefunded(ctx context.Context, orderID string) (*Order, error) {
	var refunded *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Payment.Status != PaymentPaid {
			return fmt.Errorf("order %s is not paid, nothing to refund", orderID)
		}

		now := time.Now()
		o.Payment.Status = PaymentRefunded
		o.Payment.RefundedAt = &now
		o.UpdatedAt = now
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		refunded = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

// UpdatePaymentStatus is the admin override for the payment sub-record.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status PaymentStatus) (*Order, error) {
	var updated *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now()
		switch status {
		case PaymentPaid:
			o.Payment.PaidAt = &now
		case PaymentRefunded:
			o.Payment.RefundedAt = &now
		case PaymentUnpaid:
		default:
			return fmt.Errorf("unknown payment status %q", status)
		}
		o.Payment.Status = status
		o.UpdatedAt = now
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// runTransition wraps a transition in a transaction and retries transient
// store failures as a unit. Business-rule failures are surfaced immediately;
// exhausted retries come back as ErrTransitionFatal.
func (s *Service) runTransition(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
		err = s.tx.WithinTx(ctx, fn)
		if err == nil || isBusinessError(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTransitionFatal, err)
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrTerminalState) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidPayMethod) ||
		errors.Is(err, ErrOrderNotFound)
}

func (s *Service) publish(ctx context.Context, eventType string, o *Order, payload any) {
	if s.events == nil || o == nil {
		return
	}
	event, err := NewEvent(eventType, o.ID, payload)
	if err != nil {
		log.Printf("[Order] Failed to build %s event for order %s: %v", eventType, o.ID, err)
		return
	}
	if err := s.events.Publish(ctx, o.ID, event); err != nil {
		log.Printf("[Order] Failed to publish %s event for order %s: %v", eventType, o.ID, err)
	}
}
