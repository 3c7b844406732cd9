package mocks

import (
	"context"
	"slices"
	"sync/atomic"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// MockCatalogSource serves a fixed product list and counts source calls, so benchmarks can
// show how many queries the cache absorbed.
type MockCatalogSource struct {
	products []domain.Product

	ListCalls int64
	GetCalls  int64
}

// NewMockCatalogSource creates a source over products.
func NewMockCatalogSource(products []domain.Product) *MockCatalogSource {
	return &MockCatalogSource{products: products}
}

// ListProducts implements domain.CatalogSource
func (m *MockCatalogSource) ListProducts(context.Context) ([]domain.Product, error) {
	atomic.AddInt64(&m.ListCalls, 1)
	return slices.Clone(m.products), nil
}

// GetProduct implements domain.CatalogSource
func (m *MockCatalogSource) GetProduct(_ context.Context, id string) (domain.Product, error) {
	atomic.AddInt64(&m.GetCalls, 1)
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.NewNotFoundError("products", id)
}
