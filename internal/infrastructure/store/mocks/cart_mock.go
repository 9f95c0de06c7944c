package mocks

import (
	"context"
	"sync"

	"github.com/example/shop-order-backend/internal/infrastructure/store"
)

// MockCarts is an in-memory CartStore.
type MockCarts struct {
	mu    sync.Mutex
	carts map[string]map[string]store.CartItem // userID -> "productID:variantID" -> item

	RemoveCalls []RemoveCall
	RemoveErr   error
}

// RemoveCall records parameters passed to RemoveItems.
type RemoveCall struct {
	UserID string
	Refs   []store.CartItemRef
}

func NewMockCarts() *MockCarts {
	return &MockCarts{carts: make(map[string]map[string]store.CartItem)}
}

func key(productID, variantID string) string {
	return productID + ":" + variantID
}

func (m *MockCarts) Items(ctx context.Context, userID string) ([]store.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []store.CartItem
	for _, item := range m.carts[userID] {
		out = append(out, item)
	}
	return out, nil
}

func (m *MockCarts) AddItem(ctx context.Context, userID string, item store.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.carts[userID] == nil {
		m.carts[userID] = make(map[string]store.CartItem)
	}
	k := key(item.ProductID, item.VariantID)
	existing, ok := m.carts[userID][k]
	if ok {
		item.Quantity += existing.Quantity
	}
	m.carts[userID][k] = item
	return nil
}

func (m *MockCarts) RemoveItems(ctx context.Context, userID string, refs []store.CartItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RemoveCalls = append(m.RemoveCalls, RemoveCall{UserID: userID, Refs: refs})
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	for _, ref := range refs {
		delete(m.carts[userID], key(ref.ProductID, ref.VariantID))
	}
	return nil
}

func (m *MockCarts) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}
