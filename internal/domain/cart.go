package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product in the cart. Quantity is always >= 1.
type CartLine struct {
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// WishlistEntry is one saved product. ID is generated when the entry is inserted.
type WishlistEntry struct {
	ID        string     `json:"id"`
	Product   ProductRef `json:"product"`
	DateAdded time.Time  `json:"dateAdded"`
}
