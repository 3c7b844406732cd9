package application

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/storagekeys"
)

const cartCollection = "cart"

// Cart is the shopping cart, persisted under the "cart" key.
type Cart struct {
	lines  *PersistentCollection[domain.CartLine]
	logger domain.Logger
}

// NewCart loads the cart from kv.
func NewCart(ctx context.Context, kv domain.KVStore, logger domain.Logger, namespace string) *Cart {
	return &Cart{
		lines: NewPersistentCollection[domain.CartLine](ctx, cartCollection, storagekeys.Namespaced(namespace, storagekeys.Cart), kv, logger,
			WithItemValidator(func(l domain.CartLine) bool {
				return strings.TrimSpace(l.Product.ID) != "" && l.Quantity >= 1
			}),
			WithCollectionCheck(func(lines []domain.CartLine) error {
				seen := make(map[string]struct{}, len(lines))
				for _, l := range lines {
					if _, dup := seen[l.Product.ID]; dup {
						return fmt.Errorf("duplicate cart line for product %q", l.Product.ID)
					}
					seen[l.Product.ID] = struct{}{}
				}
				return nil
			})),
		logger: logger,
	}
}

// Add puts quantity units of product in the cart, merging with an existing line for the same product.
func (c *Cart) Add(ctx context.Context, product domain.ProductRef, quantity int) error {
	if strings.TrimSpace(product.ID) == "" {
		return domain.NewValidationError(domain.FieldError{Field: "product.id", Code: domain.CodeRequired, Message: "product id is required"})
	}
	if quantity < 1 {
		return domain.NewStateError("quantity must be a positive integer, got %d", quantity)
	}
	return c.lines.Mutate(ctx, "add", func(lines []domain.CartLine) ([]domain.CartLine, bool, error) {
		for i, l := range lines {
			if l.Product.ID == product.ID {
				if l.Quantity > math.MaxInt-quantity {
					return nil, false, domain.NewStateError("quantity for product %q would overflow", product.ID)
				}
				lines[i].Quantity += quantity
				c.logger.Debug(ctx, "Merged quantity into existing cart line", "product_id", product.ID, "quantity", lines[i].Quantity)
				return lines, true, nil
			}
		}
		return append(lines, domain.CartLine{Product: product, Quantity: quantity}), true, nil
	})
}

// Update sets the quantity of an existing line. quantity must be positive.
func (c *Cart) Update(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return domain.NewStateError("quantity must be a positive integer, got %d", quantity)
	}
	return c.lines.Mutate(ctx, "update", func(lines []domain.CartLine) ([]domain.CartLine, bool, error) {
		for i, l := range lines {
			if l.Product.ID == productID {
				if l.Quantity == quantity {
					return lines, false, nil
				}
				lines[i].Quantity = quantity
				return lines, true, nil
			}
		}
		return nil, false, domain.NewNotFoundError(cartCollection, productID)
	})
}

// Remove deletes the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(ctx context.Context, productID string) {
	_ = c.lines.Mutate(ctx, "remove", func(lines []domain.CartLine) ([]domain.CartLine, bool, error) {
		idx := indexOfLine(lines, productID)
		if idx < 0 {
			return lines, false, nil
		}
		return append(lines[:idx], lines[idx+1:]...), true, nil
	})
}

// RemoveProducts deletes the lines for every id in productIDs in a single mutation.
func (c *Cart) RemoveProducts(ctx context.Context, productIDs []string) {
	_ = c.lines.Mutate(ctx, "remove", func(lines []domain.CartLine) ([]domain.CartLine, bool, error) {
		kept := lines[:0]
		for _, l := range lines {
			if !slices.Contains(productIDs, l.Product.ID) {
				kept = append(kept, l)
			}
		}
		return kept, len(kept) != len(lines), nil
	})
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	_ = c.lines.Mutate(ctx, "clear", func(lines []domain.CartLine) ([]domain.CartLine, bool, error) {
		return []domain.CartLine{}, true, nil
	})
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []domain.CartLine {
	return c.lines.Items()
}

// Contains reports whether productID has a line in the cart.
func (c *Cart) Contains(productID string) bool {
	return c.Quantity(productID) > 0
}

// Quantity returns the quantity for productID, or 0.
func (c *Cart) Quantity(productID string) int {
	for _, l := range c.lines.Items() {
		if l.Product.ID == productID {
			return l.Quantity
		}
	}
	return 0
}

// ItemCount returns the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines.Items() {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the sum of line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines.Items() {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Subscribe observes published cart snapshots.
func (c *Cart) Subscribe(fn func([]domain.CartLine)) *Subscription[[]domain.CartLine] {
	return c.lines.Subscribe(fn)
}

// Reload re-reads the cart from durable storage.
func (c *Cart) Reload(ctx context.Context) error {
	return c.lines.Load(ctx)
}

func indexOfLine(lines []domain.CartLine, productID string) int {
	for i, l := range lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
