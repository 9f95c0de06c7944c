package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/shop-order-backend/internal/domain/order"
)

// Mailer is the consumed slice of the email service.
type Mailer interface {
	SendOrderConfirmation(to, trackingNumber string, total int64, items []order.Item) error
	SendPaymentReceived(to, trackingNumber string, total int64, transactionNo string) error
	SendOrderCancelled(to, trackingNumber, reason string) error
	SendOrderDelivered(to, trackingNumber string) error
}

// Handler turns order lifecycle events into customer emails. Event payloads
// carry the recipient address, so the notifier needs no database access.
type Handler struct {
	emailService Mailer
}

func NewHandler(emailSvc Mailer) *Handler {
	return &Handler{emailService: emailSvc}
}

// HandleEvent processes one event from Kafka.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.Type {
	case order.EventOrderPlaced:
		return h.handlePlaced(event)
	case order.EventOrderPaid:
		return h.handlePaid(event)
	case order.EventOrderCancelled:
		return h.handleCancelled(event)
	case order.EventOrderDelivered:
		return h.handleDelivered(event)
	}
	return nil
}

func (h *Handler) handlePlaced(event order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	if e.Email == "" {
		log.Printf("[Notifier] No email on order %s, skipping confirmation", e.OrderID)
		return nil
	}
	log.Printf("[Notifier] Sending order confirmation for %s to %s", e.TrackingNumber, e.Email)
	return h.emailService.SendOrderConfirmation(e.Email, e.TrackingNumber, e.Total, e.Items)
}

func (h *Handler) handlePaid(event order.Event) error {
	var e order.OrderPaid
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	if e.Email == "" {
		return nil
	}
	log.Printf("[Notifier] Sending payment receipt for %s to %s", e.TrackingNumber, e.Email)
	return h.emailService.SendPaymentReceived(e.Email, e.TrackingNumber, e.Total, e.TransactionNo)
}

func (h *Handler) handleCancelled(event order.Event) error {
	var e order.OrderCancelled
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	if e.Email == "" {
		return nil
	}
	log.Printf("[Notifier] Sending cancellation notice for %s to %s", e.TrackingNumber, e.Email)
	return h.emailService.SendOrderCancelled(e.Email, e.TrackingNumber, e.Reason)
}

func (h *Handler) handleDelivered(event order.Event) error {
	var e order.OrderDelivered
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	if e.Email == "" {
		return nil
	}
	log.Printf("[Notifier] Sending delivery notice for %s to %s", e.TrackingNumber, e.Email)
	return h.emailService.SendOrderDelivered(e.Email, e.TrackingNumber)
}
