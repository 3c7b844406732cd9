package rest

import (
	"context"
	"net/http"
	"net/url"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// OrderGateway submits orders with POST /orders and PATCH /orders/{id}/status.
type OrderGateway struct {
	client *Client
}

// NewOrderGateway creates a gateway on client.
func NewOrderGateway(client *Client) *OrderGateway {
	if client == nil {
		panic("client cannot be nil in NewOrderGateway")
	}
	return &OrderGateway{client: client}
}

// SubmitOrder posts order and returns the backend's copy of it. The order id doubles as the
// idempotency key, so a retried POST cannot create the order twice.
func (g *OrderGateway) SubmitOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var created domain.Order
	if err := g.client.Do(ctx, http.MethodPost, "/orders", nil, order, &created, WithIdempotencyKey(order.ID)); err != nil {
		return domain.Order{}, err
	}
	if created.ID == "" {
		// backend acknowledged without echoing the order
		return order, nil
	}
	return created, nil
}

// UpdateOrderStatus patches the status of an order.
func (g *OrderGateway) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	body := struct {
		Status domain.OrderStatus `json:"status"`
	}{Status: status}
	err := g.client.Do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", nil, body, nil)
	if IsStatus(err, http.StatusNotFound) {
		return domain.NewNotFoundError("orders", orderID)
	}
	return err
}
