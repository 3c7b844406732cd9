package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

const listPageSize = 100

// CatalogSource reads products from GET /products and GET /products/{id}.
type CatalogSource struct {
	client *Client
}

// NewCatalogSource creates a catalog source on client.
func NewCatalogSource(client *Client) *CatalogSource {
	if client == nil {
		panic("client cannot be nil in NewCatalogSource")
	}
	return &CatalogSource{client: client}
}

// ListProducts walks every page of GET /products. Filtering happens locally, so no filter
// parameters are sent.
func (s *CatalogSource) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var all []domain.Product
	for page := 1; ; page++ {
		var resp domain.ProductPage
		query := url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(listPageSize)},
		}
		if err := s.client.Do(ctx, http.MethodGet, "/products", query, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if len(resp.Items) == 0 || page >= resp.TotalPages || len(all) >= resp.Total {
			return all, nil
		}
	}
}

// GetProduct fetches one product; a 404 becomes a NotFoundError.
func (s *CatalogSource) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	if err := s.client.Do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &p); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return domain.Product{}, domain.NewNotFoundError("products", id)
		}
		return domain.Product{}, err
	}
	return p, nil
}
