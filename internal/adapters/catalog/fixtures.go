package catalog

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// FixtureSource serves a fixed product list after a simulated network latency.
type FixtureSource struct {
	products []domain.Product
	latency  time.Duration
}

// NewFixtureSource creates a source over products. A nil products uses DefaultProducts.
func NewFixtureSource(products []domain.Product, latency time.Duration) *FixtureSource {
	if products == nil {
		products = DefaultProducts()
	}
	return &FixtureSource{products: slices.Clone(products), latency: latency}
}

// ListProducts returns every product, newest first.
func (s *FixtureSource) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	return slices.Clone(s.products), nil
}

// GetProduct returns one product or a NotFoundError.
func (s *FixtureSource) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := wait(ctx, s.latency); err != nil {
		return domain.Product{}, err
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.NewNotFoundError("products", id)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultProducts is the demo catalog, ordered newest first.
func DefaultProducts() []domain.Product {
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	p := func(i int, id, name, desc, category, price string, inStock bool, rating float64, reviews int) domain.Product {
		return domain.Product{
			ID:          id,
			Name:        name,
			Description: desc,
			Category:    category,
			Price:       decimal.RequireFromString(price),
			ImageURL:    "/images/products/" + id + ".jpg",
			InStock:     inStock,
			Rating:      rating,
			Reviews:     reviews,
			CreatedAt:   base.AddDate(0, 0, -i),
		}
	}
	return []domain.Product{
		p(0, "p-100", "Wireless Headphones", "Over-ear noise cancelling headphones with 30h battery", "Electronics", "129.99", true, 4.6, 412),
		p(1, "p-101", "Smart Watch", "Fitness tracking, heart rate and GPS", "Electronics", "199.00", true, 4.3, 268),
		p(2, "p-102", "Running Shoes", "Lightweight trainers for daily runs", "Sports", "89.50", true, 4.4, 190),
		p(3, "p-103", "Yoga Mat", "Non-slip mat, 6mm thick", "Sports", "24.99", true, 4.7, 521),
		p(4, "p-104", "Coffee Maker", "12-cup programmable drip coffee maker", "Home", "59.99", false, 4.1, 88),
		p(5, "p-105", "Desk Lamp", "LED lamp with adjustable colour temperature", "Home", "34.00", true, 4.2, 73),
		p(6, "p-106", "Cotton T-Shirt", "Organic cotton crew neck", "Clothing", "15.00", true, 3.9, 140),
		p(7, "p-107", "Denim Jacket", "Classic fit jacket in washed denim", "Clothing", "74.95", false, 4.5, 61),
		p(8, "p-108", "Bluetooth Speaker", "Portable waterproof speaker", "Electronics", "45.00", true, 4.0, 305),
		p(9, "p-109", "Cookbook Collection", "Three volumes of weeknight recipes", "Books", "39.99", true, 4.8, 47),
		p(10, "p-110", "Mystery Novel", "A page-turning detective story", "Books", "12.99", false, 3.7, 22),
		p(11, "p-111", "Water Bottle", "Insulated stainless steel, 750ml", "Sports", "19.99", true, 4.6, 233),
	}
}
