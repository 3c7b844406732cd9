package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as served by a CatalogSource.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	InStock     bool            `json:"inStock"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProductRef is the denormalized product snapshot embedded in cart lines and wishlist entries.
type ProductRef struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	InStock  bool            `json:"inStock"`
}

// Ref returns the reference stored alongside cart and wishlist entries.
func (p Product) Ref() ProductRef {
	return ProductRef{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		ImageURL: p.ImageURL,
		InStock:  p.InStock,
	}
}

// SortOption selects the final ordering stage of the filter pipeline.
type SortOption string

const (
	SortNewest SortOption = "newest" // keeps caller order
	SortName   SortOption = "name"
	SortPrice  SortOption = "price"
	SortRating SortOption = "rating"
)

// CategoryAll disables the category filter.
const CategoryAll = "All"

// FilterCriteria drives the catalog filter pipeline. Zero values pass everything through.
type FilterCriteria struct {
	Query          string           `json:"query,omitempty"`
	Category       string           `json:"category,omitempty"`
	MinPrice       *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice       *decimal.Decimal `json:"maxPrice,omitempty"`
	InStockOnly    bool             `json:"inStockOnly,omitempty"`
	OutOfStockOnly bool             `json:"outOfStockOnly,omitempty"`
	MinRating      float64          `json:"minRating,omitempty"`
	SortBy         SortOption       `json:"sortBy,omitempty"`
}

// ProductQuery is a catalog query: filters plus pagination. Page is 1-based.
type ProductQuery struct {
	FilterCriteria
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// ProductPage is one page of a filtered catalog listing.
type ProductPage struct {
	Items      []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// CatalogSource is the data source behind catalog queries. Implementations may be local
// fixtures or a remote API; callers must not assume either is synchronous or cheap.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}
