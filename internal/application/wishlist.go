package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/storagekeys"
)

const wishlistCollection = "wishlist"

// Wishlist holds saved products, persisted under the "wishlist" key.
type Wishlist struct {
	entries *PersistentCollection[domain.WishlistEntry]
	clock   domain.Clock
	newID   func() string
	logger  domain.Logger
}

// NewWishlist loads the wishlist from kv. Entry ids are random UUIDs.
func NewWishlist(ctx context.Context, kv domain.KVStore, clock domain.Clock, logger domain.Logger, namespace string) *Wishlist {
	return &Wishlist{
		entries: NewPersistentCollection[domain.WishlistEntry](ctx, wishlistCollection, storagekeys.Namespaced(namespace, storagekeys.Wishlist), kv, logger,
			WithItemValidator(func(e domain.WishlistEntry) bool {
				return e.ID != "" && strings.TrimSpace(e.Product.ID) != ""
			}),
			WithCollectionCheck(func(entries []domain.WishlistEntry) error {
				ids := make(map[string]struct{}, len(entries))
				products := make(map[string]struct{}, len(entries))
				for _, e := range entries {
					if _, dup := ids[e.ID]; dup {
						return fmt.Errorf("duplicate wishlist entry id %q", e.ID)
					}
					if _, dup := products[e.Product.ID]; dup {
						return fmt.Errorf("duplicate wishlist entry for product %q", e.Product.ID)
					}
					ids[e.ID] = struct{}{}
					products[e.Product.ID] = struct{}{}
				}
				return nil
			})),
		clock:  clock,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Add saves product. If the product is already present the existing entry is returned with added=false.
func (w *Wishlist) Add(ctx context.Context, product domain.ProductRef) (domain.WishlistEntry, bool, error) {
	if strings.TrimSpace(product.ID) == "" {
		return domain.WishlistEntry{}, false, domain.NewValidationError(domain.FieldError{Field: "product.id", Code: domain.CodeRequired, Message: "product id is required"})
	}
	var result domain.WishlistEntry
	added := false
	err := w.entries.Mutate(ctx, "add", func(entries []domain.WishlistEntry) ([]domain.WishlistEntry, bool, error) {
		for _, e := range entries {
			if e.Product.ID == product.ID {
				result = e
				return entries, false, nil
			}
		}
		result = domain.WishlistEntry{
			ID:        w.newID(),
			Product:   product,
			DateAdded: w.clock.Now().UTC(),
		}
		added = true
		return append(entries, result), true, nil
	})
	if err != nil {
		return domain.WishlistEntry{}, false, err
	}
	if !added {
		w.logger.Debug(ctx, "Product already in wishlist", "product_id", product.ID, "entry_id", result.ID)
	}
	return result, added, nil
}

// Remove deletes the entry for productID. Removing an absent product is a no-op.
func (w *Wishlist) Remove(ctx context.Context, productID string) {
	_ = w.entries.Mutate(ctx, "remove", func(entries []domain.WishlistEntry) ([]domain.WishlistEntry, bool, error) {
		for i, e := range entries {
			if e.Product.ID == productID {
				return append(entries[:i], entries[i+1:]...), true, nil
			}
		}
		return entries, false, nil
	})
}

// Clear empties the wishlist.
func (w *Wishlist) Clear(ctx context.Context) {
	_ = w.entries.Mutate(ctx, "clear", func([]domain.WishlistEntry) ([]domain.WishlistEntry, bool, error) {
		return []domain.WishlistEntry{}, true, nil
	})
}

// Contains reports whether productID is saved.
func (w *Wishlist) Contains(productID string) bool {
	for _, e := range w.entries.Items() {
		if e.Product.ID == productID {
			return true
		}
	}
	return false
}

// Entries returns a copy of the wishlist.
func (w *Wishlist) Entries() []domain.WishlistEntry {
	return w.entries.Items()
}

// MoveToCart adds one unit of the saved product to cart and removes it from the wishlist.
func (w *Wishlist) MoveToCart(ctx context.Context, productID string, cart *Cart) error {
	var entry *domain.WishlistEntry
	for _, e := range w.entries.Items() {
		if e.Product.ID == productID {
			entry = &e
			break
		}
	}
	if entry == nil {
		return domain.NewNotFoundError(wishlistCollection, productID)
	}
	if err := cart.Add(ctx, entry.Product, 1); err != nil {
		return err
	}
	w.Remove(ctx, productID)
	return nil
}

// Subscribe observes published wishlist snapshots.
func (w *Wishlist) Subscribe(fn func([]domain.WishlistEntry)) *Subscription[[]domain.WishlistEntry] {
	return w.entries.Subscribe(fn)
}
