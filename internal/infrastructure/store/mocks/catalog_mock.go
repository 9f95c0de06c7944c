package mocks

import (
	"context"
	"sync"

	"github.com/example/shop-order-backend/internal/infrastructure/store"
)

// MockCatalog is an in-memory CatalogStore. Stock adjustments are guarded by
// a mutex and use the same check-and-adjust rule as the real store, so
// concurrent reservation tests behave like the conditional SQL update.
type MockCatalog struct {
	mu       sync.Mutex
	variants map[string]*store.Variant // keyed by variant id
	sales    map[string]int            // product id -> sold count

	ReserveCalls []StockCall
	ReleaseCalls []StockCall
	SalesCalls   []StockCall

	ReserveErr error
	ReleaseErr error
	SalesErr   error
}

// StockCall records a stock or sales adjustment.
type StockCall struct {
	ID  string
	Qty int
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		variants: make(map[string]*store.Variant),
		sales:    make(map[string]int),
	}
}

// PutVariant seeds a variant.
func (m *MockCatalog) PutVariant(v store.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := v
	m.variants[v.ID] = &cp
}

// Stock returns the current stock of a variant.
func (m *MockCatalog) Stock(variantID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.variants[variantID]; ok {
		return v.Stock
	}
	return 0
}

// Sales returns the accumulated sales counter of a product.
func (m *MockCatalog) Sales(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sales[productID]
}

func (m *MockCatalog) GetVariant(ctx context.Context, productID, variantID string) (*store.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.variants[variantID]
	if !ok || v.ProductID != productID {
		return nil, store.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MockCatalog) ReserveStock(ctx context.Context, variantID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReserveCalls = append(m.ReserveCalls, StockCall{ID: variantID, Qty: qty})
	if m.ReserveErr != nil {
		return m.ReserveErr
	}
	v, ok := m.variants[variantID]
	if !ok {
		return store.ErrVariantNotFound
	}
	if v.Stock < qty {
		return store.ErrInsufficientStock
	}
	v.Stock -= qty
	return nil
}

func (m *MockCatalog) ReleaseStock(ctx context.Context, variantID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCalls = append(m.ReleaseCalls, StockCall{ID: variantID, Qty: qty})
	if m.ReleaseErr != nil {
		return m.ReleaseErr
	}
	if v, ok := m.variants[variantID]; ok {
		v.Stock += qty
	}
	return nil
}

func (m *MockCatalog) IncrementSales(ctx context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SalesCalls = append(m.SalesCalls, StockCall{ID: productID, Qty: qty})
	if m.SalesErr != nil {
		return m.SalesErr
	}
	m.sales[productID] += qty
	return nil
}
