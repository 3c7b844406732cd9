package memory

import (
	"context"
	"sync"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// AddressBook holds the saved addresses of the current user.
type AddressBook struct {
	mu        sync.RWMutex
	addresses map[string]domain.Address
}

// NewAddressBook creates a book seeded with addresses; each must carry an ID.
func NewAddressBook(addresses ...domain.Address) *AddressBook {
	b := &AddressBook{addresses: make(map[string]domain.Address, len(addresses))}
	for _, a := range addresses {
		b.addresses[a.ID] = a
	}
	return b
}

// AddressByID implements domain.AddressBook.
func (b *AddressBook) AddressByID(_ context.Context, id string) (domain.Address, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.addresses[id]
	return a, ok
}

// Save adds or replaces an address.
func (b *AddressBook) Save(a domain.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses[a.ID] = a
}
