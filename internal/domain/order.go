package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Address is a postal address. ID is empty for addresses built from a new-address payload.
type Address struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// AddressChoice selects an address either by id or by a new payload. AddressID wins when both are set.
type AddressChoice struct {
	AddressID  string   `json:"addressId,omitempty"`
	NewAddress *Address `json:"newAddress,omitempty"`
}

// Empty reports whether neither an id nor a payload was supplied.
func (c AddressChoice) Empty() bool {
	return c.AddressID == "" && c.NewAddress == nil
}

// AddressSelection resolves to exactly one shipping and one billing address.
type AddressSelection struct {
	Shipping              AddressChoice `json:"shipping"`
	Billing               AddressChoice `json:"billing"`
	BillingSameAsShipping bool          `json:"billingSameAsShipping"`
}

// AddressBook looks up saved addresses by id.
type AddressBook interface {
	AddressByID(ctx context.Context, id string) (Address, bool)
}

// OrderLine is a priced line of an order.
type OrderLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

// Total returns unit price times quantity.
func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderLinesFromCart converts cart lines into order lines at their current prices.
func OrderLinesFromCart(lines []CartLine) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, OrderLine{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			UnitPrice:   l.Product.Price,
			Quantity:    l.Quantity,
		})
	}
	return out
}

// OrderTotals are the derived money fields of an order.
type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"taxAmount"`
	Shipping decimal.Decimal `json:"shippingCost"`
	Discount decimal.Decimal `json:"discountAmount"`
	Total    decimal.Decimal `json:"totalAmount"`
}

// Order is a submitted order. Totals are derived from Items and never set directly.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId,omitempty"`
	Items           []OrderLine `json:"items"`
	OrderTotals
	ShippingAddress Address     `json:"shippingAddress"`
	BillingAddress  Address     `json:"billingAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	Notes           string      `json:"notes,omitempty"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// OrderRequest is the order-creation payload.
type OrderRequest struct {
	Items         []OrderLine      `json:"items"`
	Addresses     AddressSelection `json:"addresses"`
	PaymentMethod string           `json:"paymentMethod"`
	Discount      decimal.Decimal  `json:"discount"`
	Notes         string           `json:"notes,omitempty"`
}

// OrderGateway submits orders to the backend.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, order Order) (Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) error
}

// OrderEvent is published after an order is created or changes status.
type OrderEvent struct {
	Type      string      `json:"type"`
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id,omitempty"`
	Status    OrderStatus `json:"status"`
	Total     string      `json:"total"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	OrderEventCreated       = "orders.created"
	OrderEventStatusChanged = "orders.status_changed"
)

// OrderEventPublisher fans order events out to other services.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
