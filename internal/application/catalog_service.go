package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/metrics"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/storagekeys"
)

const catalogListingKey = "products:all"

// CatalogService answers catalog queries from the query cache, falling through to the
// CatalogSource on a miss. Unlike the stores it is safe for concurrent use: source calls may
// block on the network, so they run outside the cache lock instead of on the event loop.
type CatalogService struct {
	source   domain.CatalogSource
	logger   domain.Logger
	inflight singleflight.Group

	mu       sync.Mutex
	pages    *QueryCache[domain.ProductPage]
	products *QueryCache[domain.Product]
	listing  *QueryCache[[]domain.Product]
}

// NewCatalogService creates the service with caches using ttl.
func NewCatalogService(source domain.CatalogSource, clock domain.Clock, logger domain.Logger, ttl time.Duration) *CatalogService {
	if source == nil {
		panic("catalog source cannot be nil in NewCatalogService")
	}
	return &CatalogService{
		source:   source,
		logger:   logger,
		pages:    NewQueryCache("catalog_pages", ttl, clock, cloneProductPage),
		products: NewQueryCache[domain.Product]("catalog_products", ttl, clock, nil),
		listing:  NewQueryCache("catalog_listing", ttl, clock, slices.Clone[[]domain.Product]),
	}
}

// Query returns one page of products matching q.
func (s *CatalogService) Query(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	start := time.Now()
	serialized, err := QueryKey(q)
	if err != nil {
		return domain.ProductPage{}, fmt.Errorf("derive catalog cache key: %w", err)
	}
	key := storagekeys.QueryCacheKey(serialized)

	s.mu.Lock()
	page, ok := s.pages.Get(key)
	s.mu.Unlock()
	if ok {
		metrics.ObserveCatalogQuery("cache", time.Since(start).Seconds())
		s.logger.Debug(ctx, "Catalog query served from cache", "cache_key", key)
		return page, nil
	}

	all, err := s.allProducts(ctx)
	if err != nil {
		return domain.ProductPage{}, err
	}
	page = Paginate(ApplyFilters(all, q.FilterCriteria), q.Page, q.Limit)

	s.mu.Lock()
	s.pages.Set(key, page)
	s.mu.Unlock()
	metrics.ObserveCatalogQuery("source", time.Since(start).Seconds())
	s.logger.Debug(ctx, "Catalog query served from source", "cache_key", key, "total", page.Total)
	return page, nil
}

// Product returns one product by id.
func (s *CatalogService) Product(ctx context.Context, id string) (domain.Product, error) {
	key := storagekeys.ProductCacheKey(id)
	s.mu.Lock()
	if p, ok := s.products.Get(key); ok {
		s.mu.Unlock()
		return p, nil
	}
	if all, ok := s.listing.Get(catalogListingKey); ok {
		if idx := slices.IndexFunc(all, func(p domain.Product) bool { return p.ID == id }); idx >= 0 {
			s.products.Set(key, all[idx])
			s.mu.Unlock()
			return all[idx], nil
		}
	}
	s.mu.Unlock()

	p, err := s.source.GetProduct(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("fetch product %s: %w", id, err)
	}
	s.mu.Lock()
	s.products.Set(key, p)
	s.mu.Unlock()
	return p, nil
}

// Categories returns the distinct product categories, sorted.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range all {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

// Refresh drops every cached catalog result.
func (s *CatalogService) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages.Clear()
	s.products.Clear()
	s.listing.Clear()
	s.logger.Info(ctx, "Catalog caches cleared")
}

func (s *CatalogService) allProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	all, ok := s.listing.Get(catalogListingKey)
	s.mu.Unlock()
	if ok {
		return all, nil
	}
	// Concurrent misses share one source call.
	v, err, _ := s.inflight.Do(catalogListingKey, func() (any, error) {
		fetched, err := s.source.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.listing.Set(catalogListingKey, fetched)
		s.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		s.logger.Error(ctx, "Catalog source listing failed", "error", err.Error())
		return nil, fmt.Errorf("list products: %w", err)
	}
	return v.([]domain.Product), nil
}

func cloneProductPage(p domain.ProductPage) domain.ProductPage {
	p.Items = slices.Clone(p.Items)
	return p
}
