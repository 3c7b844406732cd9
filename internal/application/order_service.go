package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/metrics"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/storagekeys"
)

const ordersCollection = "orders"

// Executor runs fn on the goroutine that owns the state stores and waits for it to finish.
// *eventloop.Loop satisfies it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// InlineExecutor runs fn on the calling goroutine. It suits callers that already own the stores,
// such as tests and benchmarks.
type InlineExecutor struct{}

// Do runs fn immediately.
func (InlineExecutor) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

// OrderService validates, prices and submits orders, and keeps the local order history.
//
// CreateOrder, CheckoutCart and UpdateStatus reach the cart, session and history only through the
// executor, and call the gateway between those steps. With the event loop as executor they must be
// called from outside the loop, so a slow gateway never holds up other state operations. The
// remaining methods read loop-owned state and must run on the loop.
type OrderService struct {
	calc      *OrderCalculator
	addresses domain.AddressBook
	gateway   domain.OrderGateway
	publisher domain.OrderEventPublisher
	history   *PersistentCollection[domain.Order]
	cart      *Cart
	session   *SessionManager
	exec      Executor
	clock     domain.Clock
	newID     func() string
	logger    domain.Logger
}

// OrderServiceDeps groups the collaborators of an OrderService.
type OrderServiceDeps struct {
	Calculator *OrderCalculator
	Addresses  domain.AddressBook
	Gateway    domain.OrderGateway
	Publisher  domain.OrderEventPublisher
	Cart       *Cart
	Session    *SessionManager // optional; orders are anonymous without it
	Executor   Executor        // defaults to InlineExecutor
	KV         domain.KVStore
	Clock      domain.Clock
	Logger     domain.Logger
	Namespace  string
}

// NewOrderService creates the service and loads the order history.
func NewOrderService(ctx context.Context, deps OrderServiceDeps) *OrderService {
	if deps.Calculator == nil {
		panic("calculator cannot be nil in NewOrderService")
	}
	if deps.Gateway == nil {
		panic("order gateway cannot be nil in NewOrderService")
	}
	exec := deps.Executor
	if exec == nil {
		exec = InlineExecutor{}
	}
	return &OrderService{
		calc:      deps.Calculator,
		addresses: deps.Addresses,
		gateway:   deps.Gateway,
		publisher: deps.Publisher,
		history: NewPersistentCollection[domain.Order](ctx, ordersCollection,
			storagekeys.Namespaced(deps.Namespace, storagekeys.Orders), deps.KV, deps.Logger),
		cart:    deps.Cart,
		session: deps.Session,
		exec:    exec,
		clock:   deps.Clock,
		newID:   newOrderID,
		logger:  deps.Logger,
	}
}

func newOrderID() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateOrder validates req, computes totals, submits the order and records it in the history.
// Every precondition is checked before anything is mutated or submitted.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	var order domain.Order
	var err error
	if doErr := s.exec.Do(ctx, func() { order, err = s.prepare(ctx, req) }); doErr != nil {
		return domain.Order{}, doErr
	}
	if err != nil {
		return domain.Order{}, err
	}
	return s.submit(ctx, order, nil)
}

// CheckoutCart creates an order from the current cart. Once the order is accepted the ordered
// lines are removed from the cart; lines added while the order was in flight stay.
func (s *OrderService) CheckoutCart(ctx context.Context, addresses domain.AddressSelection, paymentMethod string, discount decimal.Decimal) (domain.Order, error) {
	if s.cart == nil {
		return domain.Order{}, domain.NewStateError("checkout requires a cart")
	}
	var order domain.Order
	var err error
	prepare := func() {
		order, err = s.prepare(ctx, domain.OrderRequest{
			Items:         domain.OrderLinesFromCart(s.cart.Lines()),
			Addresses:     addresses,
			PaymentMethod: paymentMethod,
			Discount:      discount,
		})
	}
	if doErr := s.exec.Do(ctx, prepare); doErr != nil {
		return domain.Order{}, doErr
	}
	if err != nil {
		return domain.Order{}, err
	}
	return s.submit(ctx, order, func(ctx context.Context, submitted domain.Order) {
		ids := make([]string, 0, len(submitted.Items))
		for _, item := range submitted.Items {
			ids = append(ids, item.ProductID)
		}
		s.cart.RemoveProducts(ctx, ids)
	})
}

// prepare validates and prices req. It reads the session, so it runs on the executor.
func (s *OrderService) prepare(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	fields := validateOrderRequest(req)
	shipping, billing, addrErr := s.calc.ResolveAddresses(ctx, req.Addresses, s.addresses)
	if addrErr != nil {
		var ve *domain.Error
		if errors.As(addrErr, &ve) && ve.Kind == domain.ErrValidation {
			fields = append(fields, ve.Fields...)
		} else if len(fields) == 0 {
			metrics.IncrementOrders("rejected")
			return domain.Order{}, addrErr
		}
	}
	if len(fields) > 0 {
		metrics.IncrementOrders("rejected")
		s.logger.Info(ctx, "Order request rejected", "field_errors", len(fields))
		return domain.Order{}, domain.NewValidationError(fields...)
	}

	now := s.clock.Now().UTC()
	order := domain.Order{
		ID:              s.newID(),
		Items:           cloneOrderLines(req.Items),
		OrderTotals:     s.calc.Totals(req.Items, req.Discount),
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		Notes:           req.Notes,
		Status:          domain.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if s.session != nil {
		order.UserID = s.session.Current().User.ID
	}
	return order, nil
}

// submit sends order to the gateway on the calling goroutine, then records it (and runs after,
// if set) on the executor and publishes the created event.
func (s *OrderService) submit(ctx context.Context, order domain.Order, after func(context.Context, domain.Order)) (domain.Order, error) {
	submitted, err := s.gateway.SubmitOrder(ctx, order)
	if err != nil {
		metrics.IncrementOrders("failed")
		s.logger.Error(ctx, "Order submission failed", "order_id", order.ID, "error", err.Error())
		return domain.Order{}, fmt.Errorf("submit order %s: %w", order.ID, err)
	}

	// the backend has the order now, so record it even if the caller gave up waiting
	recordCtx := context.WithoutCancel(ctx)
	err = s.exec.Do(recordCtx, func() {
		_ = s.history.Mutate(recordCtx, "create", func(orders []domain.Order) ([]domain.Order, bool, error) {
			return append(orders, submitted), true, nil
		})
		if after != nil {
			after(recordCtx, submitted)
		}
	})
	if err != nil {
		s.logger.Error(ctx, "Submitted order could not be recorded locally", "order_id", submitted.ID, "error", err.Error())
		return domain.Order{}, fmt.Errorf("record order %s: %w", submitted.ID, err)
	}
	metrics.IncrementOrders("created")
	s.logger.Info(ctx, "Order created", "order_id", submitted.ID, "total", submitted.Total.StringFixed(2), "items", len(submitted.Items))
	s.publish(recordCtx, domain.OrderEventCreated, submitted)
	return submitted, nil
}

// Quote prices the current cart without submitting anything.
func (s *OrderService) Quote(discount decimal.Decimal) domain.OrderTotals {
	var lines []domain.OrderLine
	if s.cart != nil {
		lines = domain.OrderLinesFromCart(s.cart.Lines())
	}
	return s.calc.Totals(lines, discount)
}

// UpdateStatus moves an order along its lifecycle. The transition is checked before the gateway
// call and again when the history is updated, since another update may have landed in between.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.NewValidationError(domain.FieldError{
			Field: "status", Code: domain.CodeUnknownStatus, Message: fmt.Sprintf("unknown order status %q", status),
		})
	}
	var err error
	if doErr := s.exec.Do(ctx, func() { _, err = s.checkTransition(orderID, status) }); doErr != nil {
		return domain.Order{}, doErr
	}
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.gateway.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return domain.Order{}, fmt.Errorf("update status of order %s: %w", orderID, err)
	}

	var updated domain.Order
	recordCtx := context.WithoutCancel(ctx)
	doErr := s.exec.Do(recordCtx, func() {
		if _, err = s.checkTransition(orderID, status); err != nil {
			return
		}
		err = s.history.Mutate(recordCtx, "update_status", func(orders []domain.Order) ([]domain.Order, bool, error) {
			for i := range orders {
				if orders[i].ID == orderID {
					orders[i].Status = status
					orders[i].UpdatedAt = s.clock.Now().UTC()
					updated = orders[i]
					return orders, true, nil
				}
			}
			return nil, false, domain.NewNotFoundError(ordersCollection, orderID)
		})
	})
	if doErr != nil {
		return domain.Order{}, doErr
	}
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(recordCtx, domain.OrderEventStatusChanged, updated)
	return updated, nil
}

func (s *OrderService) checkTransition(orderID string, status domain.OrderStatus) (domain.Order, error) {
	current, err := s.Order(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !current.Status.CanTransitionTo(status) {
		return domain.Order{}, domain.NewStateError("order %s cannot move from %s to %s", orderID, current.Status, status)
	}
	return current, nil
}

// Orders returns the order history, oldest first.
func (s *OrderService) Orders() []domain.Order {
	return s.history.Items()
}

// Order returns one order from the history.
func (s *OrderService) Order(orderID string) (domain.Order, error) {
	for _, o := range s.history.Items() {
		if o.ID == orderID {
			return o, nil
		}
	}
	return domain.Order{}, domain.NewNotFoundError(ordersCollection, orderID)
}

// Subscribe observes the order history.
func (s *OrderService) Subscribe(fn func([]domain.Order)) *Subscription[[]domain.Order] {
	return s.history.Subscribe(fn)
}

func (s *OrderService) publish(ctx context.Context, eventType string, order domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.Total.StringFixed(2),
		Timestamp: s.clock.Now().UTC(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "Failed to publish order event", "event_type", eventType, "order_id", order.ID, "error", err.Error())
	}
}

func validateOrderRequest(req domain.OrderRequest) []domain.FieldError {
	var fields []domain.FieldError
	if len(req.Items) == 0 {
		fields = append(fields, domain.FieldError{Field: "items", Code: domain.CodeRequired, Message: "order must contain at least one item"})
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			fields = append(fields, domain.FieldError{Field: fmt.Sprintf("items[%d].productId", i), Code: domain.CodeRequired, Message: "product id is required"})
		}
		if item.Quantity < 1 {
			fields = append(fields, domain.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Code: domain.CodeNotPositive, Message: "quantity must be at least 1"})
		}
		if item.UnitPrice.IsNegative() {
			fields = append(fields, domain.FieldError{Field: fmt.Sprintf("items[%d].unitPrice", i), Code: domain.CodeInvalid, Message: "unit price cannot be negative"})
		}
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		fields = append(fields, domain.FieldError{Field: "paymentMethod", Code: domain.CodeRequired, Message: "payment method is required"})
	}
	if req.Discount.IsNegative() {
		fields = append(fields, domain.FieldError{Field: "discount", Code: domain.CodeInvalid, Message: "discount cannot be negative"})
	}
	return fields
}

func cloneOrderLines(lines []domain.OrderLine) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	copy(out, lines)
	return out
}
