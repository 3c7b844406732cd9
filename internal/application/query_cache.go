package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/metrics"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// DefaultQueryCacheTTL is how long a catalog query result stays fresh.
const DefaultQueryCacheTTL = 5 * time.Minute

type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
}

// QueryCache maps serialized query keys to results for a fixed TTL. Stale entries are
// evicted lazily on the read that finds them. Like Store it is confined to one goroutine.
type QueryCache[T any] struct {
	name    string
	ttl     time.Duration
	clock   domain.Clock
	clone   func(T) T
	entries map[string]cacheEntry[T]
}

// NewQueryCache creates a cache. clone, when non-nil, is applied on the way in and on the way
// out so callers never share mutable state with the cache.
func NewQueryCache[T any](name string, ttl time.Duration, clock domain.Clock, clone func(T) T) *QueryCache[T] {
	if ttl <= 0 {
		ttl = DefaultQueryCacheTTL
	}
	return &QueryCache[T]{
		name:    name,
		ttl:     ttl,
		clock:   clock,
		clone:   clone,
		entries: make(map[string]cacheEntry[T]),
	}
}

// TTL returns the configured time-to-live.
func (c *QueryCache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key if it is younger than the TTL.
func (c *QueryCache[T]) Get(key string) (T, bool) {
	var zero T
	entry, ok := c.entries[key]
	if !ok {
		metrics.IncrementCacheLookup(c.name, "miss")
		return zero, false
	}
	if c.clock.Now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		metrics.IncrementCacheLookup(c.name, "expired")
		return zero, false
	}
	metrics.IncrementCacheLookup(c.name, "hit")
	return c.copyOf(entry.value), true
}

// Set stores value under key, replacing any previous entry and restarting its TTL.
func (c *QueryCache[T]) Set(key string, value T) {
	c.entries[key] = cacheEntry[T]{value: c.copyOf(value), storedAt: c.clock.Now()}
}

// Delete drops a single key.
func (c *QueryCache[T]) Delete(key string) {
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *QueryCache[T]) Clear() {
	c.entries = make(map[string]cacheEntry[T])
	metrics.IncrementCacheClear(c.name)
}

// Len returns the number of stored entries, including ones that have gone stale but not yet been read.
func (c *QueryCache[T]) Len() int {
	return len(c.entries)
}

func (c *QueryCache[T]) copyOf(v T) T {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// QueryKey serializes query parameters deterministically: object keys are sorted and empty
// values (null, "", false, 0, empty arrays and objects) are dropped, so two queries that differ
// only in field order or in explicitly-empty fields share a key.
func QueryKey(params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal query params: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode query params: %w", err)
	}
	pruned, _ := pruneEmpty(generic)
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(pruned)
	if err != nil {
		return "", fmt.Errorf("marshal canonical query: %w", err)
	}
	return string(out), nil
}

func pruneEmpty(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case bool:
		return t, t
	case json.Number:
		f, err := t.Float64()
		return t, err != nil || f != 0
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		out := make([]any, 0, len(t))
		for _, item := range t {
			// Array positions are significant, keep empty elements in place.
			p, _ := pruneEmpty(item)
			out = append(out, p)
		}
		return out, true
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if p, keep := pruneEmpty(item); keep {
				out[k] = p
			}
		}
		return out, len(out) > 0
	default:
		return t, true
	}
}
