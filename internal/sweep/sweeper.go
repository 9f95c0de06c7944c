// Package sweep cancels gateway orders that were never paid. It reuses the
// same Cancel transition as explicit cancellation so stock release and coupon
// rollback never live in two code paths.
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/example/shop-order-backend/internal/domain/order"
)

// AbandonReason is recorded on orders cancelled by the sweeper.
const AbandonReason = "payment not completed in time"

// Canceller is the single Cancel transition shared with user/admin flows.
type Canceller interface {
	Cancel(ctx context.Context, orderID, reason string) (*order.CancelResult, error)
}

// AbandonedLister finds gateway orders still pending and unpaid past the cutoff.
type AbandonedLister interface {
	ListAbandonedGateway(ctx context.Context, before time.Time) ([]*order.Order, error)
}

type Sweeper struct {
	orders   AbandonedLister
	svc      Canceller
	interval time.Duration
	maxAge   time.Duration
}

func New(orders AbandonedLister, svc Canceller, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{orders: orders, svc: svc, interval: interval, maxAge: maxAge}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[Sweep] Started: interval=%s, abandon after %s", s.interval, s.maxAge)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweep] Stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Printf("[Sweep] Sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("[Sweep] Cancelled %d abandoned order(s)", n)
			}
		}
	}
}

// SweepOnce cancels every abandoned gateway order found, returning how many
// were cancelled. Individual failures are logged and do not stop the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.maxAge)
	orders, err := s.orders.ListAbandonedGateway(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, o := range orders {
		if _, err := s.svc.Cancel(ctx, o.ID, AbandonReason); err != nil {
			log.Printf("[Sweep] Failed to cancel order %s: %v", o.ID, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
