package order

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
	EventOrderDelivered = "OrderDelivered"
)

// EventPublisher publishes order lifecycle events, keyed by order id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Event is the envelope written to the event topic.
type Event struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent wraps a payload into an Event envelope.
func NewEvent(eventType, orderID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:       eventType,
		OrderID:    orderID,
		Data:       data,
		OccurredAt: time.Now(),
	}, nil
}

type OrderPlaced struct {
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Items          []Item    `json:"items"`
	Total          int64     `json:"total"`
	PaymentMethod  string    `json:"payment_method"`
	TrackingNumber string    `json:"tracking_number"`
	PlacedAt       time.Time `json:"placed_at"`
}

type OrderPaid struct {
	OrderID        string    `json:"order_id"`
	Email          string    `json:"email"`
	Total          int64     `json:"total"`
	TransactionNo  string    `json:"transaction_no,omitempty"`
	TrackingNumber string    `json:"tracking_number"`
	PaidAt         time.Time `json:"paid_at"`
}

type OrderCancelled struct {
	OrderID        string    `json:"order_id"`
	Email          string    `json:"email"`
	Reason         string    `json:"reason"`
	NeedRefund     bool      `json:"need_refund"`
	TrackingNumber string    `json:"tracking_number"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

type OrderDelivered struct {
	OrderID        string    `json:"order_id"`
	Email          string    `json:"email"`
	TrackingNumber string    `json:"tracking_number"`
	DeliveredAt    time.Time `json:"delivered_at"`
}
