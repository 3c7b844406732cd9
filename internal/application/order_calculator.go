package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// PricingConfig holds the order business rules.
type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal // shipping is free when subtotal is strictly greater
	FlatShippingFee       decimal.Decimal
}

// DefaultPricing returns the reference rules: 8% tax, free shipping over 50, otherwise 9.99.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.RequireFromString("9.99"),
	}
}

// OrderCalculator derives order totals and resolves addresses. It holds no state beyond its rules.
type OrderCalculator struct {
	pricing PricingConfig
}

// NewOrderCalculator creates a calculator for the given rules.
func NewOrderCalculator(pricing PricingConfig) *OrderCalculator {
	return &OrderCalculator{pricing: pricing}
}

// Pricing returns the rules in use.
func (c *OrderCalculator) Pricing() PricingConfig {
	return c.pricing
}

// Subtotal is the sum of unit price times quantity.
func (c *OrderCalculator) Subtotal(lines []domain.OrderLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	return subtotal
}

// Shipping returns 0 above the free-shipping threshold, otherwise the flat fee.
func (c *OrderCalculator) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(c.pricing.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.pricing.FlatShippingFee
}

// Tax applies the tax rate to the subtotal only, rounded to cents.
func (c *OrderCalculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.pricing.TaxRate).Round(2)
}

// Totals computes every derived money field. The discount is clamped to [0, subtotal].
func (c *OrderCalculator) Totals(lines []domain.OrderLine, discount decimal.Decimal) domain.OrderTotals {
	subtotal := c.Subtotal(lines)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	tax := c.Tax(subtotal)
	shipping := c.Shipping(subtotal)
	return domain.OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}

// ResolveAddresses turns a selection into one shipping and one billing address. Missing
// choices are reported together as a ValidationError; an unknown address id is a NotFoundError.
func (c *OrderCalculator) ResolveAddresses(ctx context.Context, sel domain.AddressSelection, book domain.AddressBook) (shipping, billing domain.Address, err error) {
	var fields []domain.FieldError
	if sel.Shipping.Empty() {
		fields = append(fields, domain.FieldError{Field: "addresses.shipping", Code: domain.CodeRequired, Message: "select a saved shipping address or enter a new one"})
	}
	if !sel.BillingSameAsShipping && sel.Billing.Empty() {
		fields = append(fields, domain.FieldError{Field: "addresses.billing", Code: domain.CodeRequired, Message: "select a saved billing address or enter a new one"})
	}
	if len(fields) > 0 {
		return domain.Address{}, domain.Address{}, domain.NewValidationError(fields...)
	}

	shipping, err = resolveChoice(ctx, sel.Shipping, book)
	if err != nil {
		return domain.Address{}, domain.Address{}, fmt.Errorf("resolve shipping address: %w", err)
	}
	if sel.BillingSameAsShipping {
		return shipping, shipping, nil
	}
	billing, err = resolveChoice(ctx, sel.Billing, book)
	if err != nil {
		return domain.Address{}, domain.Address{}, fmt.Errorf("resolve billing address: %w", err)
	}
	return shipping, billing, nil
}

func resolveChoice(ctx context.Context, choice domain.AddressChoice, book domain.AddressBook) (domain.Address, error) {
	if choice.AddressID != "" {
		if book == nil {
			return domain.Address{}, domain.NewNotFoundError("address", choice.AddressID)
		}
		addr, ok := book.AddressByID(ctx, choice.AddressID)
		if !ok {
			return domain.Address{}, domain.NewNotFoundError("address", choice.AddressID)
		}
		return addr, nil
	}
	return *choice.NewAddress, nil
}
