package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
)

// MockOrders is an in-memory OrderStore.
type MockOrders struct {
	mu     sync.Mutex
	orders map[string]*order.Order

	InsertCalls []string
	UpdateCalls []string

	InsertErr error
	UpdateErr error
}

func NewMockOrders() *MockOrders {
	return &MockOrders{orders: make(map[string]*order.Order)}
}

// Put seeds an order.
func (m *MockOrders) Put(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

// Stored returns the stored state of an order.
func (m *MockOrders) Stored(id string) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (m *MockOrders) Insert(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls = append(m.InsertCalls, o.ID)
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrders) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return m.GetByID(ctx, id)
}

func (m *MockOrders) Update(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, o.ID)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.orders[o.ID]; !ok {
		return order.ErrOrderNotFound
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrders) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error) {
	return m.List(ctx, store.OrderFilter{UserID: userID, Limit: limit, Offset: offset})
}

func (m *MockOrders) List(ctx context.Context, f store.OrderFilter) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*order.Order
	for _, o := range m.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.Payment.Status != f.PaymentStatus {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockOrders) ListAbandonedGateway(ctx context.Context, before time.Time) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*order.Order
	for _, o := range m.orders {
		if o.Payment.Method != order.PaymentMethodGateway {
			continue
		}
		if o.Status != order.StatusPending || o.Payment.Status != order.PaymentUnpaid {
			continue
		}
		if !o.CreatedAt.Before(before) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}
