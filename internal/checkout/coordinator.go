package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/example/shop-order-backend/internal/domain/coupon"
	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
)

// ItemInput is one client-supplied line item. Price is the snapshot the
// client saw; it is compared against the live variant price at acceptance.
type ItemInput struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type CreateOrderInput struct {
	UserID          string
	Items           []ItemInput
	ShippingAddress order.Address
	PaymentMethod   order.PaymentMethod
	CouponCode      string
	Note            string
	ClientIP        string
}

type CreateOrderResult struct {
	Order *order.Order `json:"order"`
	// PaymentURL is set for gateway orders; the client redirects here.
	PaymentURL string `json:"payment_url,omitempty"`
}

// PaymentURLBuilder builds the signed gateway redirect URL. It runs after the
// order transaction commits so a slow gateway never holds the transaction open.
type PaymentURLBuilder interface {
	BuildPaymentURL(orderID string, amount int64, orderInfo, clientIP string, createdAt time.Time) string
}

// Coordinator converts validated cart contents into a durable order. Stock
// reservation, coupon accounting and order persistence happen inside one
// transaction: either all of them become visible or none.
type Coordinator struct {
	tx      store.TxRunner
	catalog store.CatalogStore
	coupons store.CouponStore
	orders  store.OrderStore
	carts   store.CartStore
	gateway PaymentURLBuilder
	events  order.EventPublisher // optional
}

func NewCoordinator(
	tx store.TxRunner,
	catalog store.CatalogStore,
	coupons store.CouponStore,
	orders store.OrderStore,
	carts store.CartStore,
	gateway PaymentURLBuilder,
	events order.EventPublisher,
) *Coordinator {
	return &Coordinator{
		tx:      tx,
		catalog: catalog,
		coupons: coupons,
		orders:  orders,
		carts:   carts,
		gateway: gateway,
		events:  events,
	}
}

func (c *Coordinator) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	// Fail fast before any lock is taken.
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var created *order.Order
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := c.buildAndReserve(ctx, in)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit steps: cart cleanup is best effort, and the gateway URL is
	// deliberately built outside the transaction.
	c.removePurchased(ctx, in)
	c.publishPlaced(ctx, created)

	result := &CreateOrderResult{Order: created}
	if created.Payment.Method == order.PaymentMethodGateway {
		info := fmt.Sprintf("Payment for order %s", created.TrackingNumber)
		result.PaymentURL = c.gateway.BuildPaymentURL(created.ID, created.TotalPrice, info, in.ClientIP, created.CreatedAt)
	}
	return result, nil
}

// buildAndReserve runs the transactional part of order creation: price
// integrity check, coupon accounting, stock reservation and persistence.
func (c *Coordinator) buildAndReserve(ctx context.Context, in CreateOrderInput) (*order.Order, error) {
	now := time.Now()

	// Re-fetch every live variant; abort on the first missing one so no
	// partial order is possible.
	type line struct {
		input   ItemInput
		variant *store.Variant
	}
	lines := make([]line, 0, len(in.Items))
	var changes []PriceChange
	corrected := make([]ItemInput, 0, len(in.Items))

	for _, item := range in.Items {
		v, err := c.catalog.GetVariant(ctx, item.ProductID, item.VariantID)
		if err != nil {
			return nil, fmt.Errorf("item %s/%s: %w", item.ProductID, item.VariantID, err)
		}
		if v.Price != item.Price {
			changes = append(changes, PriceChange{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				OldPrice:  item.Price,
				NewPrice:  v.Price,
			})
		}
		fixed := item
		fixed.Price = v.Price
		corrected = append(corrected, fixed)
		lines = append(lines, line{input: item, variant: v})
	}

	// Any stale price aborts the whole order; the caller must re-confirm.
	if len(changes) > 0 {
		return nil, &PriceChangedError{Changes: changes, CorrectedItems: corrected}
	}

	var subtotal int64
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		subtotal += l.variant.Price * int64(l.input.Quantity)
		items = append(items, order.Item{
			ProductID:     l.variant.ProductID,
			VariantID:     l.variant.ID,
			Name:          l.variant.ProductName,
			VariantName:   l.variant.Name,
			SKU:           l.variant.SKU,
			Quantity:      l.input.Quantity,
			Price:         l.variant.Price,
			OriginalPrice: l.variant.OriginalPrice,
		})
	}

	var (
		discount    int64
		appliedID   string
		appliedCode string
	)
	if in.CouponCode != "" {
		cpn, err := c.coupons.FindByCode(ctx, in.CouponCode)
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, &coupon.RejectedError{Code: coupon.NormalizeCode(in.CouponCode), Reason: coupon.ErrNotFound}
		}
		if err != nil {
			return nil, err
		}
		if err := cpn.Validate(subtotal, now); err != nil {
			return nil, err
		}
		if discount, err = cpn.DiscountFor(subtotal); err != nil {
			return nil, err
		}
		appliedID = cpn.ID
		appliedCode = cpn.Code
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	// Reserve all line items; a single shortage rolls everything back.
	for _, l := range lines {
		if err := c.catalog.ReserveStock(ctx, l.variant.ID, l.input.Quantity); err != nil {
			if errors.Is(err, store.ErrInsufficientStock) {
				return nil, &InsufficientStockError{
					ProductID: l.variant.ProductID,
					VariantID: l.variant.ID,
					Requested: l.input.Quantity,
					Available: l.variant.Stock,
				}
			}
			return nil, err
		}
	}

	// The conditional increment is the real limit guard; validation above
	// only produces the friendlier error message.
	if appliedID != "" {
		if err := c.coupons.IncrementUsage(ctx, appliedID); err != nil {
			if errors.Is(err, coupon.ErrLimitReached) {
				return nil, &coupon.RejectedError{Code: appliedCode, Reason: coupon.ErrLimitReached}
			}
			return nil, err
		}
	}

	o := &order.Order{
		ID:              uuid.New().String(),
		UserID:          in.UserID,
		Items:           items,
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		TotalPrice:      total,
		Status:          order.StatusPending,
		Payment:         order.Payment{Method: in.PaymentMethod, Status: order.PaymentUnpaid},
		CouponID:        appliedID,
		CouponCode:      appliedCode,
		ShippingAddress: in.ShippingAddress,
		TrackingNumber:  newTrackingNumber(now),
		Note:            in.Note,
		StatusTimestamps: map[order.Status]time.Time{
			order.StatusPending: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.orders.Insert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (c *Coordinator) removePurchased(ctx context.Context, in CreateOrderInput) {
	refs := make([]store.CartItemRef, 0, len(in.Items))
	for _, item := range in.Items {
		refs = append(refs, store.CartItemRef{ProductID: item.ProductID, VariantID: item.VariantID})
	}
	if err := c.carts.RemoveItems(ctx, in.UserID, refs); err != nil {
		log.Printf("[Checkout] Failed to clear cart items for user %s: %v", in.UserID, err)
	}
}

func (c *Coordinator) publishPlaced(ctx context.Context, o *order.Order) {
	if c.events == nil {
		return
	}
	event, err := order.NewEvent(order.EventOrderPlaced, o.ID, order.OrderPlaced{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Email:          o.ShippingAddress.Email,
		Items:          o.Items,
		Total:          o.TotalPrice,
		PaymentMethod:  string(o.Payment.Method),
		TrackingNumber: o.TrackingNumber,
		PlacedAt:       o.CreatedAt,
	})
	if err != nil {
		log.Printf("[Checkout] Failed to build OrderPlaced event for order %s: %v", o.ID, err)
		return
	}
	if err := c.events.Publish(ctx, o.ID, event); err != nil {
		log.Printf("[Checkout] Failed to publish OrderPlaced event for order %s: %v", o.ID, err)
	}
}

func validateInput(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: %s/%s", ErrInvalidQuantity, item.ProductID, item.VariantID)
		}
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return err
	}
	if !order.ValidPaymentMethod(in.PaymentMethod) {
		return fmt.Errorf("%w: %q", order.ErrInvalidPayMethod, in.PaymentMethod)
	}
	return nil
}

// newTrackingNumber builds ORD + timestamp + random suffix. Uniqueness is
// enforced by the unique index on orders.tracking_number, not here.
func newTrackingNumber(now time.Time) string {
	return fmt.Sprintf("ORD%s%06d", now.Format("20060102150405"), rand.Intn(1000000))
}
