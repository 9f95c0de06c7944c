package mocks

import (
	"context"
	"sync"

	"github.com/example/shop-order-backend/internal/domain/coupon"
)

// MockCoupons is an in-memory CouponStore with the same conditional usage
// accounting as the Postgres store.
type MockCoupons struct {
	mu      sync.Mutex
	coupons map[string]*coupon.Coupon // keyed by id

	IncrementCalls []string
	DecrementCalls []string

	IncrementErr error
	DecrementErr error
}

func NewMockCoupons() *MockCoupons {
	return &MockCoupons{coupons: make(map[string]*coupon.Coupon)}
}

// Put seeds a coupon.
func (m *MockCoupons) Put(c coupon.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	m.coupons[c.ID] = &cp
}

// UsedCount returns the current used count of a coupon.
func (m *MockCoupons) UsedCount(couponID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coupons[couponID]; ok {
		return c.UsedCount
	}
	return 0
}

func (m *MockCoupons) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalized := coupon.NormalizeCode(code)
	for _, c := range m.coupons {
		if c.Code == normalized {
			cp := *c
			return &cp, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *MockCoupons) IncrementUsage(ctx context.Context, couponID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IncrementCalls = append(m.IncrementCalls, couponID)
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	c, ok := m.coupons[couponID]
	if !ok {
		return coupon.ErrNotFound
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return coupon.ErrLimitReached
	}
	c.UsedCount++
	return nil
}

func (m *MockCoupons) DecrementUsage(ctx context.Context, couponID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecrementCalls = append(m.DecrementCalls, couponID)
	if m.DecrementErr != nil {
		return m.DecrementErr
	}
	if c, ok := m.coupons[couponID]; ok && c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}
