package checkout_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/shop-order-backend/internal/checkout"
	"github.com/example/shop-order-backend/internal/domain/coupon"
	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
	"github.com/example/shop-order-backend/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	co      *checkout.Coordinator
	tx      *mocks.MockTxRunner
	catalog *mocks.MockCatalog
	coupons *mocks.MockCoupons
	orders  *mocks.MockOrders
	carts   *mocks.MockCarts
	events  *mocks.MockPublisher
}

// stubURLBuilder returns a fixed redirect URL.
type stubURLBuilder struct {
	Calls int
}

func (s *stubURLBuilder) BuildPaymentURL(orderID string, amount int64, orderInfo, clientIP string, createdAt time.Time) string {
	s.Calls++
	return "https://gateway.example.com/pay?ref=" + orderID
}

func newCheckoutFixture() (*checkoutFixture, *stubURLBuilder) {
	f := &checkoutFixture{
		tx:      mocks.NewMockTxRunner(),
		catalog: mocks.NewMockCatalog(),
		coupons: mocks.NewMockCoupons(),
		orders:  mocks.NewMockOrders(),
		carts:   mocks.NewMockCarts(),
		events:  mocks.NewMockPublisher(),
	}
	gw := &stubURLBuilder{}
	f.co = checkout.NewCoordinator(f.tx, f.catalog, f.coupons, f.orders, f.carts, gw, f.events)
	return f, gw
}

func validAddress() order.Address {
	return order.Address{
		FullName: "Jane Doe",
		Phone:    "0900000000",
		Email:    "jane@example.com",
		Street:   "1 Main St",
		Ward:     order.CodeName{Code: "001", Name: "Ward 1"},
		District: order.CodeName{Code: "01", Name: "District 1"},
		Province: order.CodeName{Code: "79", Name: "Province A"},
	}
}

func seedCatalog(f *checkoutFixture) {
	f.catalog.PutVariant(store.Variant{
		ID: "var-1", ProductID: "prod-1", ProductName: "T-Shirt",
		Name: "Black / L", SKU: "TS-BL-L", Price: 50000, OriginalPrice: 60000, Stock: 10,
	})
	f.catalog.PutVariant(store.Variant{
		ID: "var-2", ProductID: "prod-2", ProductName: "Hoodie",
		Name: "Grey / M", SKU: "HD-GR-M", Price: 100000, OriginalPrice: 100000, Stock: 5,
	})
}

func basicInput() checkout.CreateOrderInput {
	return checkout.CreateOrderInput{
		UserID: "user-1",
		Items: []checkout.ItemInput{
			{ProductID: "prod-1", VariantID: "var-1", Quantity: 2, Price: 50000},
			{ProductID: "prod-2", VariantID: "var-2", Quantity: 1, Price: 100000},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   order.PaymentMethodCOD,
		ClientIP:        "203.0.113.9",
	}
}

// ============================================
// Happy path
// ============================================

func TestCoordinator_CreateOrder_COD(t *testing.T) {
	f, gw := newCheckoutFixture()
	seedCatalog(f)

	result, err := f.co.CreateOrder(context.Background(), basicInput())

	require.NoError(t, err)
	o := result.Order
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, int64(200000), o.Subtotal)
	assert.Equal(t, int64(200000), o.TotalPrice)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentUnpaid, o.Payment.Status)
	assert.True(t, strings.HasPrefix(o.TrackingNumber, "ORD"))
	assert.Contains(t, o.StatusTimestamps, order.StatusPending)

	// Line items are snapshots, not references.
	require.Len(t, o.Items, 2)
	assert.Equal(t, "T-Shirt", o.Items[0].Name)
	assert.Equal(t, "Black / L", o.Items[0].VariantName)
	assert.Equal(t, "TS-BL-L", o.Items[0].SKU)
	assert.Equal(t, int64(60000), o.Items[0].OriginalPrice)

	// Stock was reserved.
	assert.Equal(t, 8, f.catalog.Stock("var-1"))
	assert.Equal(t, 4, f.catalog.Stock("var-2"))

	// COD orders get no redirect URL.
	assert.Empty(t, result.PaymentURL)
	assert.Zero(t, gw.Calls)

	assert.NotNil(t, f.orders.Stored(o.ID))
}

func TestCoordinator_CreateOrder_GatewayGetsPaymentURL(t *testing.T) {
	f, gw := newCheckoutFixture()
	seedCatalog(f)
	in := basicInput()
	in.PaymentMethod = order.PaymentMethodGateway

	result, err := f.co.CreateOrder(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, 1, gw.Calls)
	assert.Contains(t, result.PaymentURL, result.Order.ID)
}

func TestCoordinator_CreateOrder_ClearsPurchasedCartItems(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	ctx := context.Background()
	f.carts.AddItem(ctx, "user-1", store.CartItem{ProductID: "prod-1", VariantID: "var-1", Quantity: 2})
	f.carts.AddItem(ctx, "user-1", store.CartItem{ProductID: "prod-9", VariantID: "var-9", Quantity: 1})

	_, err := f.co.CreateOrder(ctx, basicInput())

	require.NoError(t, err)
	items, _ := f.carts.Items(ctx, "user-1")
	// Only the purchased lines are removed.
	require.Len(t, items, 1)
	assert.Equal(t, "prod-9", items[0].ProductID)
}

func TestCoordinator_CreateOrder_CartFailureDoesNotFailOrder(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	f.carts.RemoveErr = assert.AnError

	result, err := f.co.CreateOrder(context.Background(), basicInput())

	require.NoError(t, err)
	assert.NotNil(t, f.orders.Stored(result.Order.ID))
}

func TestCoordinator_CreateOrder_PublishesOrderPlaced(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)

	result, err := f.co.CreateOrder(context.Background(), basicInput())

	require.NoError(t, err)
	published := f.events.Published()
	require.Len(t, published, 1)
	assert.Equal(t, result.Order.ID, published[0].Key)
	assert.Equal(t, order.EventOrderPlaced, published[0].Event.(order.Event).Type)
}

// ============================================
// Input validation
// ============================================

func TestCoordinator_CreateOrder_NoItems(t *testing.T) {
	f, _ := newCheckoutFixture()
	in := basicInput()
	in.Items = nil

	_, err := f.co.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, checkout.ErrNoItems)
	assert.Zero(t, f.tx.Calls)
}

func TestCoordinator_CreateOrder_ZeroQuantity(t *testing.T) {
	f, _ := newCheckoutFixture()
	in := basicInput()
	in.Items[0].Quantity = 0

	_, err := f.co.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, checkout.ErrInvalidQuantity)
}

func TestCoordinator_CreateOrder_IncompleteAddress(t *testing.T) {
	f, _ := newCheckoutFixture()
	in := basicInput()
	in.ShippingAddress.Phone = ""

	_, err := f.co.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, order.ErrAddressIncomplete)
}

func TestCoordinator_CreateOrder_UnknownPaymentMethod(t *testing.T) {
	f, _ := newCheckoutFixture()
	in := basicInput()
	in.PaymentMethod = order.PaymentMethod("crypto")

	_, err := f.co.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, order.ErrInvalidPayMethod)
}

func TestCoordinator_CreateOrder_UnknownVariant(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	in := basicInput()
	in.Items = append(in.Items, checkout.ItemInput{ProductID: "prod-3", VariantID: "var-404", Quantity: 1, Price: 1})

	_, err := f.co.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, store.ErrVariantNotFound)
}

// ============================================
// Price integrity
// ============================================

func TestCoordinator_CreateOrder_StalePriceAborts(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	in := basicInput()
	in.Items[0].Price = 45000 // catalog says 50000

	_, err := f.co.CreateOrder(context.Background(), in)

	var priceErr *checkout.PriceChangedError
	require.ErrorAs(t, err, &priceErr)
	require.Len(t, priceErr.Changes, 1)
	assert.Equal(t, "var-1", priceErr.Changes[0].VariantID)
	assert.Equal(t, int64(45000), priceErr.Changes[0].OldPrice)
	assert.Equal(t, int64(50000), priceErr.Changes[0].NewPrice)

	// Corrected items cover the whole order so the client can resubmit as is.
	require.Len(t, priceErr.CorrectedItems, 2)
	assert.Equal(t, int64(50000), priceErr.CorrectedItems[0].Price)
	assert.Equal(t, int64(100000), priceErr.CorrectedItems[1].Price)

	// Nothing was reserved or persisted.
	assert.Equal(t, 10, f.catalog.Stock("var-1"))
	assert.Empty(t, f.orders.InsertCalls)
	assert.Empty(t, f.events.Published())
}

// ============================================
// Stock
// ============================================

func TestCoordinator_CreateOrder_InsufficientStock(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	in := basicInput()
	in.Items[1].Quantity = 6 // only 5 in stock

	_, err := f.co.CreateOrder(context.Background(), in)

	var stockErr *checkout.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "prod-2", stockErr.ProductID)
	assert.Equal(t, "var-2", stockErr.VariantID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.Empty(t, f.orders.InsertCalls)
}

func TestCoordinator_CreateOrder_ConcurrentLastUnit(t *testing.T) {
	f, _ := newCheckoutFixture()
	f.catalog.PutVariant(store.Variant{
		ID: "var-1", ProductID: "prod-1", ProductName: "T-Shirt",
		Name: "Black / L", Price: 50000, Stock: 1,
	})

	in := checkout.CreateOrderInput{
		Items: []checkout.ItemInput{
			{ProductID: "prod-1", VariantID: "var-1", Quantity: 1, Price: 50000},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   order.PaymentMethodCOD,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			req := in
			req.UserID = user
			_, err := f.co.CreateOrder(context.Background(), req)
			errCh <- err
		}("user-" + string(rune('a'+i)))
	}
	wg.Wait()
	close(errCh)

	var successes, stockFailures int
	for err := range errCh {
		if err == nil {
			successes++
			continue
		}
		var stockErr *checkout.InsufficientStockError
		if assert.ErrorAs(t, err, &stockErr) {
			stockFailures++
		}
	}

	// Exactly one buyer wins the last unit.
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)
	assert.Equal(t, 0, f.catalog.Stock("var-1"))
	assert.Len(t, f.orders.InsertCalls, 1)
}

// ============================================
// Coupons
// ============================================

func seedCoupon(f *checkoutFixture, mutate func(*coupon.Coupon)) {
	c := coupon.Coupon{
		ID:            "coupon-1",
		Code:          "SAVE10",
		Active:        true,
		StartDate:     time.Now().Add(-24 * time.Hour),
		EndDate:       time.Now().Add(24 * time.Hour),
		UsageLimit:    5,
		UsedCount:     4,
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: 10,
		MinOrderValue: 100000,
	}
	if mutate != nil {
		mutate(&c)
	}
	f.coupons.Put(c)
}

func TestCoordinator_CreateOrder_AppliesCoupon(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	seedCoupon(f, nil)
	in := basicInput()
	in.CouponCode = "save10"

	result, err := f.co.CreateOrder(context.Background(), in)

	require.NoError(t, err)
	o := result.Order
	assert.Equal(t, int64(200000), o.Subtotal)
	assert.Equal(t, int64(20000), o.DiscountAmount)
	assert.Equal(t, int64(180000), o.TotalPrice)
	assert.Equal(t, "coupon-1", o.CouponID)
	assert.Equal(t, "SAVE10", o.CouponCode)
	assert.Equal(t, 5, f.coupons.UsedCount("coupon-1"))
}

func TestCoordinator_CreateOrder_CouponExhausted(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	seedCoupon(f, func(c *coupon.Coupon) { c.UsedCount = 5 })
	in := basicInput()
	in.CouponCode = "SAVE10"

	_, err := f.co.CreateOrder(context.Background(), in)

	var rejected *coupon.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, coupon.ErrLimitReached)
	assert.Empty(t, f.orders.InsertCalls)
}

func TestCoordinator_CreateOrder_CouponBelowMinimum(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	seedCoupon(f, func(c *coupon.Coupon) { c.MinOrderValue = 300000 })
	in := basicInput()
	in.CouponCode = "SAVE10"

	_, err := f.co.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, coupon.ErrMinOrderNotMet)
}

func TestCoordinator_CreateOrder_CouponUnknown(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	in := basicInput()
	in.CouponCode = "NOPE"

	_, err := f.co.CreateOrder(context.Background(), in)

	var rejected *coupon.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "NOPE", rejected.Code)
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestCoordinator_CreateOrder_FixedCouponFloorsAtZero(t *testing.T) {
	f, _ := newCheckoutFixture()
	seedCatalog(f)
	seedCoupon(f, func(c *coupon.Coupon) {
		c.DiscountType = coupon.DiscountFixed
		c.DiscountValue = 999999
		c.MinOrderValue = 0
	})
	in := basicInput()
	in.CouponCode = "SAVE10"

	result, err := f.co.CreateOrder(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Order.TotalPrice)
}
