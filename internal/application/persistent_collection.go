package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/metrics"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// errNotASequence marks a stored document that parsed but was not a JSON array.
var errNotASequence = errors.New("stored value is not a JSON array")

// PersistentCollection is a Store of []T mirrored to a durable key. Every mutation publishes a
// freshly built slice and writes it through to the KVStore; storage failures are logged and
// never surface to the caller of the mutation.
type PersistentCollection[T any] struct {
	name     string
	key      string
	kv       domain.KVStore
	logger   domain.Logger
	store    *Store[[]T]
	validate func(T) bool
	check    func([]T) error
}

// CollectionOption configures a PersistentCollection.
type CollectionOption[T any] func(*PersistentCollection[T])

// WithItemValidator drops loaded items for which valid returns false.
func WithItemValidator[T any](valid func(T) bool) CollectionOption[T] {
	return func(c *PersistentCollection[T]) {
		c.validate = valid
	}
}

// WithCollectionCheck rejects a loaded collection as a whole when check returns an error, e.g. on
// duplicate keys. A rejected value loads as empty, like any other unusable document.
func WithCollectionCheck[T any](check func([]T) error) CollectionOption[T] {
	return func(c *PersistentCollection[T]) {
		c.check = check
	}
}

// NewPersistentCollection creates the collection and loads its initial value from kv. A failed
// load leaves the collection empty and is logged as a warning; construction never fails.
func NewPersistentCollection[T any](ctx context.Context, name, key string, kv domain.KVStore, logger domain.Logger, opts ...CollectionOption[T]) *PersistentCollection[T] {
	if kv == nil {
		panic("kv store cannot be nil in NewPersistentCollection")
	}
	if logger == nil {
		panic("logger cannot be nil in NewPersistentCollection")
	}
	c := &PersistentCollection[T]{
		name:   name,
		key:    key,
		kv:     kv,
		logger: logger.With("collection", name, "storage_key", key),
		store:  NewStore[[]T](nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Load(ctx); err != nil {
		c.logger.Warn(ctx, "Collection reset to empty after failed load", "error", err.Error())
	}
	return c
}

// Load replaces the in-memory value with the durable one. A missing key yields an empty
// collection and no error. Read failures, undecodable JSON and non-array documents also yield
// an empty collection, and are reported as a StorageError.
func (c *PersistentCollection[T]) Load(ctx context.Context) error {
	items, err := c.read(ctx)
	if err != nil {
		metrics.IncrementStorageFailure(c.name, "load")
		c.store.Set(nil)
		metrics.SetCollectionSize(c.name, 0)
		return domain.NewStorageError(c.key, err)
	}
	c.store.Set(items)
	metrics.SetCollectionSize(c.name, len(items))
	c.logger.Debug(ctx, "Collection loaded", "items", len(items))
	return nil
}

func (c *PersistentCollection[T]) read(ctx context.Context) ([]T, error) {
	raw, found, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if !found {
		c.logger.Debug(ctx, "No stored value; starting empty")
		return nil, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotASequence
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if c.validate != nil {
		kept := items[:0:0]
		for _, item := range items {
			if c.validate(item) {
				kept = append(kept, item)
			}
		}
		if dropped := len(items) - len(kept); dropped > 0 {
			c.logger.Warn(ctx, "Dropped invalid items while loading collection", "dropped", dropped)
		}
		items = kept
	}
	if c.check != nil {
		if err := c.check(items); err != nil {
			return nil, fmt.Errorf("invalid collection: %w", err)
		}
	}
	return items, nil
}

// Save writes the current value to durable storage.
func (c *PersistentCollection[T]) Save(ctx context.Context) error {
	return c.write(ctx, c.store.Current())
}

func (c *PersistentCollection[T]) write(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		metrics.IncrementStorageFailure(c.name, "save")
		return domain.NewStorageError(c.key, fmt.Errorf("encode: %w", err))
	}
	if err := c.kv.Set(ctx, c.key, payload); err != nil {
		metrics.IncrementStorageFailure(c.name, "save")
		return domain.NewStorageError(c.key, fmt.Errorf("write: %w", err))
	}
	return nil
}

// Mutate applies fn to a copy of the current items. If fn returns an error nothing changes;
// otherwise the returned slice is published and persisted. changed=false from fn skips both.
func (c *PersistentCollection[T]) Mutate(ctx context.Context, operation string, fn func(items []T) (next []T, changed bool, err error)) error {
	next, changed, err := fn(slices.Clone(c.store.Current()))
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	c.store.Set(next)
	metrics.IncrementCollectionMutation(c.name, operation)
	metrics.SetCollectionSize(c.name, len(next))
	if err := c.write(ctx, next); err != nil {
		c.logger.Warn(ctx, "Failed to persist collection; in-memory state kept", "operation", operation, "error", err.Error())
	}
	return nil
}

// Items returns a copy of the current items.
func (c *PersistentCollection[T]) Items() []T {
	return slices.Clone(c.store.Current())
}

// Len returns the number of items.
func (c *PersistentCollection[T]) Len() int {
	return len(c.store.Current())
}

// Subscribe registers an observer of the published slices. Observers must treat the slice as read-only.
func (c *PersistentCollection[T]) Subscribe(fn func([]T)) *Subscription[[]T] {
	return c.store.Subscribe(fn)
}
