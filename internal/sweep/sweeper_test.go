package sweep_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
	"github.com/example/shop-order-backend/internal/infrastructure/store/mocks"
	"github.com/example/shop-order-backend/internal/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweepFixture(maxAge time.Duration) (*sweep.Sweeper, *mocks.MockOrders, *order.Service) {
	orders := mocks.NewMockOrders()
	svc := order.NewService(mocks.NewMockTxRunner(), orders, mocks.NewMockCatalog(), mocks.NewMockCoupons(), nil)
	return sweep.New(orders, svc, time.Minute, maxAge), orders, svc
}

func seedSweepOrder(orders *mocks.MockOrders, id string, mutate func(*order.Order)) {
	o := &order.Order{
		ID:     id,
		Status: order.StatusPending,
		Payment: order.Payment{
			Method: order.PaymentMethodGateway,
			Status: order.PaymentUnpaid,
		},
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if mutate != nil {
		mutate(o)
	}
	orders.Put(o)
}

func TestSweeper_SweepOnce_CancelsStaleGatewayOrders(t *testing.T) {
	sweeper, orders, _ := newSweepFixture(30 * time.Minute)
	seedSweepOrder(orders, "stale-1", nil)
	seedSweepOrder(orders, "stale-2", nil)

	n, err := sweeper.SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{"stale-1", "stale-2"} {
		o := orders.Stored(id)
		assert.Equal(t, order.StatusCancelled, o.Status)
		assert.Equal(t, sweep.AbandonReason, o.CancelReason)
	}
}

func TestSweeper_SweepOnce_SkipsRecentOrders(t *testing.T) {
	sweeper, orders, _ := newSweepFixture(30 * time.Minute)
	seedSweepOrder(orders, "fresh", func(o *order.Order) {
		o.CreatedAt = time.Now().Add(-5 * time.Minute)
	})

	n, err := sweeper.SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, order.StatusPending, orders.Stored("fresh").Status)
}

func TestSweeper_SweepOnce_SkipsPaidAndCODOrders(t *testing.T) {
	sweeper, orders, _ := newSweepFixture(30 * time.Minute)
	seedSweepOrder(orders, "paid", func(o *order.Order) {
		o.Payment.Status = order.PaymentPaid
	})
	seedSweepOrder(orders, "cod", func(o *order.Order) {
		o.Payment.Method = order.PaymentMethodCOD
	})
	seedSweepOrder(orders, "shipping", func(o *order.Order) {
		o.Status = order.StatusShipping
	})

	n, err := sweeper.SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, order.StatusPending, orders.Stored("paid").Status)
	assert.Equal(t, order.StatusPending, orders.Stored("cod").Status)
	assert.Equal(t, order.StatusShipping, orders.Stored("shipping").Status)
}

func TestSweeper_SweepOnce_ReleasesReservedStock(t *testing.T) {
	orders := mocks.NewMockOrders()
	catalog := mocks.NewMockCatalog()
	catalog.PutVariant(store.Variant{ID: "var-1", ProductID: "prod-1", Stock: 0})
	svc := order.NewService(mocks.NewMockTxRunner(), orders, catalog, mocks.NewMockCoupons(), nil)
	sweeper := sweep.New(orders, svc, time.Minute, 30*time.Minute)

	seedSweepOrder(orders, "stale", func(o *order.Order) {
		o.Items = []order.Item{{ProductID: "prod-1", VariantID: "var-1", Quantity: 3}}
	})

	n, err := sweeper.SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, catalog.Stock("var-1"))
}

func TestSweeper_Run_StopsOnContextCancel(t *testing.T) {
	sweeper, _, _ := newSweepFixture(30 * time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
