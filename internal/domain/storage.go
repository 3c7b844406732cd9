package domain

import "context"

// KVStore is the durable key/value storage port. Values are opaque bytes; the state layer
// stores JSON documents.
type KVStore interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
