package memory

import (
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// OrderGateway accepts orders locally after an optional simulated latency.
type OrderGateway struct {
	latency time.Duration

	mu     sync.Mutex
	orders map[string]domain.Order
}

// NewOrderGateway creates a gateway that waits latency before answering each call.
func NewOrderGateway(latency time.Duration) *OrderGateway {
	return &OrderGateway{latency: latency, orders: make(map[string]domain.Order)}
}

// SubmitOrder records the order and returns it unchanged.
func (g *OrderGateway) SubmitOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := sleep(ctx, g.latency); err != nil {
		return domain.Order{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[order.ID] = order
	return order, nil
}

// UpdateOrderStatus changes the status of a submitted order.
func (g *OrderGateway) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if err := sleep(ctx, g.latency); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return domain.NewNotFoundError("orders", orderID)
	}
	o.Status = status
	g.orders[orderID] = o
	return nil
}

// Submitted returns the number of orders received.
func (g *OrderGateway) Submitted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

func sleep(ctx context.Context, d time.Duration) error {
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
