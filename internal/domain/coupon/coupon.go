package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("coupon not found")
	ErrInactive        = errors.New("coupon is not active")
	ErrNotStarted      = errors.New("coupon is not valid yet")
	ErrExpired         = errors.New("coupon has expired")
	ErrLimitReached    = errors.New("coupon usage limit reached")
	ErrMinOrderNotMet  = errors.New("order subtotal is below the coupon minimum")
	ErrInvalidDiscount = errors.New("invalid coupon discount configuration")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	Active        bool         `json:"active"`
	StartDate     time.Time    `json:"start_date"`
	EndDate       time.Time    `json:"end_date"`
	UsageLimit    int          `json:"usage_limit"` // 0 = unlimited
	UsedCount     int          `json:"used_count"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MaxDiscount   int64        `json:"max_discount,omitempty"` // 0 = no cap
	MinOrderValue int64        `json:"min_order_value,omitempty"`
}

// RejectedError carries the specific rule a coupon application violated.
type RejectedError struct {
	Code   string
	Reason error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %v", e.Code, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Reason }

// NormalizeCode upper-cases and trims a user-supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the coupon against the subtotal at the given time. Rules are
// checked in a fixed order so the first failing rule wins deterministically:
// active, validity window, usage limit, minimum order value.
func (c *Coupon) Validate(subtotal int64, now time.Time) error {
	if !c.Active {
		return &RejectedError{Code: c.Code, Reason: ErrInactive}
	}
	if now.Before(c.StartDate) {
		return &RejectedError{Code: c.Code, Reason: ErrNotStarted}
	}
	if now.After(c.EndDate) {
		return &RejectedError{Code: c.Code, Reason: ErrExpired}
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return &RejectedError{Code: c.Code, Reason: ErrLimitReached}
	}
	if subtotal < c.MinOrderValue {
		return &RejectedError{Code: c.Code, Reason: ErrMinOrderNotMet}
	}
	return nil
}

// DiscountFor computes the discount amount for the subtotal, clamped to the
// max-discount cap when one is set. The result never exceeds the subtotal.
func (c *Coupon) DiscountFor(subtotal int64) (int64, error) {
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal * c.DiscountValue / 100
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDiscount, c.DiscountType)
	}
	if c.MaxDiscount > 0 && discount > c.MaxDiscount {
		discount = c.MaxDiscount
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}
