package order

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipping   Status = "shipping"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodGateway PaymentMethod = "gateway"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidStatus     = errors.New("invalid order status transition")
	ErrTerminalState     = errors.New("order is in a terminal state")
	ErrTransitionFatal   = errors.New("order transition failed after retries")
	ErrInvalidPayMethod  = errors.New("unsupported payment method")
	ErrAddressIncomplete = errors.New("shipping address is missing required fields")
)

// validTransitions defines allowed state transitions. Delivered and Cancelled
// are terminal. Deliver is allowed before shipping to support simple COD flows.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusShipping, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusShipping, StatusDelivered, StatusCancelled},
	StatusShipping:   {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Item is the immutable line-item snapshot captured at purchase time. It is
// intentionally decoupled from the live catalog so historical orders stay
// stable when catalog prices change later.
type Item struct {
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id"`
	Name          string `json:"name"`
	VariantName   string `json:"variant_name,omitempty"`
	SKU           string `json:"sku,omitempty"`
	Quantity      int    `json:"quantity"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"original_price"`
}

type Payment struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty"`
	TransactionNo string        `json:"transaction_no,omitempty"`
}

// CodeName pairs an administrative-area code with its display name.
type CodeName struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Address struct {
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Street   string   `json:"street"`
	Ward     CodeName `json:"ward"`
	District CodeName `json:"district"`
	Province CodeName `json:"province"`
}

// Validate checks the required shipping fields.
func (a Address) Validate() error {
	switch {
	case a.FullName == "", a.Phone == "", a.Email == "", a.Street == "":
		return ErrAddressIncomplete
	case a.Ward.Code == "" || a.Ward.Name == "":
		return ErrAddressIncomplete
	case a.District.Code == "" || a.District.Name == "":
		return ErrAddressIncomplete
	case a.Province.Code == "" || a.Province.Name == "":
		return ErrAddressIncomplete
	}
	return nil
}

type Order struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	Items            []Item               `json:"items"`
	Subtotal         int64                `json:"subtotal"`
	DiscountAmount   int64                `json:"discount_amount"`
	TotalPrice       int64                `json:"total_price"`
	Status           Status               `json:"status"`
	Payment          Payment              `json:"payment"`
	CouponID         string               `json:"coupon_id,omitempty"`
	CouponCode       string               `json:"coupon_code,omitempty"`
	ShippingAddress  Address              `json:"shipping_address"`
	TrackingNumber   string               `json:"tracking_number,omitempty"`
	Note             string               `json:"note,omitempty"`
	CancelReason     string               `json:"cancel_reason,omitempty"`
	StatusTimestamps map[Status]time.Time `json:"status_timestamps"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// CanTransitionTo reports whether the order may move to the target status.
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition.
func (o *Order) transitionError(target Status) error {
	if o.Status == StatusDelivered || o.Status == StatusCancelled {
		return fmt.Errorf("%w: %s order cannot become %s", ErrTerminalState, o.Status, target)
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
}

// applyStatus moves the order to the target status and stamps the per-status
// timestamp map. Callers must have already checked CanTransitionTo.
func (o *Order) applyStatus(target Status, now time.Time) {
	o.Status = target
	if o.StatusTimestamps == nil {
		o.StatusTimestamps = make(map[Status]time.Time)
	}
	o.StatusTimestamps[target] = now
	o.UpdatedAt = now
}

// IsTerminal reports whether the order reached a terminal state.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusDelivered || o.Status == StatusCancelled
}

// ValidPaymentMethod reports whether m is one of the supported methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentMethodCOD || m == PaymentMethodGateway
}
