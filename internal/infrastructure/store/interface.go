package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/shop-order-backend/internal/domain/coupon"
	"github.com/example/shop-order-backend/internal/domain/order"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
)

// Variant is a purchasable SKU-level unit with its own price and stock.
type Variant struct {
	ID            string
	ProductID     string
	ProductName   string
	Name          string
	SKU           string
	Price         int64
	OriginalPrice int64
	Stock         int
}

// CatalogStore is the consumed interface over products and variants. Stock is
// only ever adjusted through the conditional Reserve/Release operations.
type CatalogStore interface {
	GetVariant(ctx context.Context, productID, variantID string) (*Variant, error)
	// ReserveStock atomically decrements stock by qty only when at least qty
	// units remain; returns ErrInsufficientStock otherwise.
	ReserveStock(ctx context.Context, variantID string, qty int) error
	// ReleaseStock atomically increments stock by qty.
	ReleaseStock(ctx context.Context, variantID string, qty int) error
	// IncrementSales adds qty to the product's aggregate sales counter.
	IncrementSales(ctx context.Context, productID string, qty int) error
}

// CouponStore owns coupon lookup and atomic usage accounting.
type CouponStore interface {
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	// IncrementUsage bumps used_count by one, failing with
	// coupon.ErrLimitReached when the usage limit is exhausted.
	IncrementUsage(ctx context.Context, couponID string) error
	// DecrementUsage lowers used_count by one, floored at zero.
	DecrementUsage(ctx context.Context, couponID string) error
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status        order.Status
	PaymentStatus order.PaymentStatus
	UserID        string
	Limit         int
	Offset        int
}

type OrderStore interface {
	Insert(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id string) (*order.Order, error)
	// GetForUpdate loads the order row-locked so concurrent transitions on the
	// same order serialize.
	GetForUpdate(ctx context.Context, id string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*order.Order, error)
	// ListAbandonedGateway returns gateway orders still pending and unpaid
	// that were created before the cutoff.
	ListAbandonedGateway(ctx context.Context, before time.Time) ([]*order.Order, error)
}

type CartItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type CartItemRef struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
}

// CartStore holds each user's pending item list; purchased items are removed
// when an order is accepted.
type CartStore interface {
	Items(ctx context.Context, userID string) ([]CartItem, error)
	AddItem(ctx context.Context, userID string, item CartItem) error
	RemoveItems(ctx context.Context, userID string, refs []CartItemRef) error
	Clear(ctx context.Context, userID string) error
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
