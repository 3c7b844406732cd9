package application

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// filterStage narrows a product list. Stages never modify their input slice.
type filterStage func(products []domain.Product, criteria domain.FilterCriteria, fold cases.Caser) []domain.Product

// stages run in this order; sorting always comes last.
var stages = []filterStage{
	searchStage,
	categoryStage,
	priceStage,
	stockStage,
	ratingStage,
}

// ApplyFilters runs the catalog pipeline: text search, category, price range, stock, rating,
// then a stable sort. The result is a new slice; products is left untouched.
func ApplyFilters(products []domain.Product, criteria domain.FilterCriteria) []domain.Product {
	fold := cases.Fold()
	out := slices.Clone(products)
	for _, stage := range stages {
		out = stage(out, criteria, fold)
	}
	sortProducts(out, criteria.SortBy)
	return out
}

func keep(products []domain.Product, pred func(domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func searchStage(products []domain.Product, c domain.FilterCriteria, fold cases.Caser) []domain.Product {
	query := strings.TrimSpace(c.Query)
	if query == "" {
		return products
	}
	needle := fold.String(query)
	return keep(products, func(p domain.Product) bool {
		return strings.Contains(fold.String(p.Name), needle) ||
			strings.Contains(fold.String(p.Description), needle) ||
			strings.Contains(fold.String(p.Category), needle)
	})
}

func categoryStage(products []domain.Product, c domain.FilterCriteria, fold cases.Caser) []domain.Product {
	category := strings.TrimSpace(c.Category)
	if category == "" || strings.EqualFold(category, domain.CategoryAll) {
		return products
	}
	want := fold.String(category)
	return keep(products, func(p domain.Product) bool {
		return fold.String(p.Category) == want
	})
}

func priceStage(products []domain.Product, c domain.FilterCriteria, _ cases.Caser) []domain.Product {
	if c.MinPrice == nil && c.MaxPrice == nil {
		return products
	}
	return keep(products, func(p domain.Product) bool {
		if c.MinPrice != nil && p.Price.LessThan(*c.MinPrice) {
			return false
		}
		if c.MaxPrice != nil && p.Price.GreaterThan(*c.MaxPrice) {
			return false
		}
		return true
	})
}

// stockStage treats InStockOnly as taking precedence when both flags are set.
func stockStage(products []domain.Product, c domain.FilterCriteria, _ cases.Caser) []domain.Product {
	switch {
	case c.InStockOnly:
		return keep(products, func(p domain.Product) bool { return p.InStock })
	case c.OutOfStockOnly:
		return keep(products, func(p domain.Product) bool { return !p.InStock })
	default:
		return products
	}
}

func ratingStage(products []domain.Product, c domain.FilterCriteria, _ cases.Caser) []domain.Product {
	if c.MinRating <= 0 {
		return products
	}
	return keep(products, func(p domain.Product) bool { return p.Rating >= c.MinRating })
}

func sortProducts(products []domain.Product, by domain.SortOption) {
	switch by {
	case domain.SortName:
		slices.SortStableFunc(products, func(a, b domain.Product) int {
			return strings.Compare(a.Name, b.Name)
		})
	case domain.SortPrice:
		slices.SortStableFunc(products, func(a, b domain.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case domain.SortRating:
		slices.SortStableFunc(products, func(a, b domain.Product) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	default:
		// newest: callers supply products already ordered by recency.
	}
}

// Paginate returns page (1-based) of products. Out-of-range pages are empty; page and limit
// are normalized to at least 1 and limit is capped.
func Paginate(products []domain.Product, page, limit int) domain.ProductPage {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	total := len(products)
	totalPages := (total + limit - 1) / limit
	items := []domain.Product{}
	// compared before multiplying so a huge page cannot overflow the offset
	if page <= totalPages {
		start := (page - 1) * limit
		end := min(start+limit, total)
		items = slices.Clone(products[start:end])
	}
	return domain.ProductPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
