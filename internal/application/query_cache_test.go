package application

import (
	"slices"
	"testing"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

func TestQueryCacheExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewQueryCache[int]("test", time.Minute, clock, nil)
	c.Set("k", 1)

	clock.Advance(59 * time.Second)
	if v, ok := c.Get("k"); !ok || v != 1 {
		t.Fatalf("fresh Get = %d, %v", v, ok)
	}
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry should expire at exactly ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("stale entry not evicted on read")
	}
}

func TestQueryCacheSetRestartsTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewQueryCache[string]("test", time.Minute, clock, nil)
	c.Set("k", "a")
	clock.Advance(50 * time.Second)
	c.Set("k", "b")
	clock.Advance(50 * time.Second)
	if v, ok := c.Get("k"); !ok || v != "b" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
}

func TestQueryCacheDefaultTTL(t *testing.T) {
	c := NewQueryCache[int]("test", 0, newFakeClock(), nil)
	if c.TTL() != DefaultQueryCacheTTL {
		t.Fatalf("TTL = %v", c.TTL())
	}
}

func TestQueryCacheClonesValues(t *testing.T) {
	c := NewQueryCache("test", time.Minute, newFakeClock(), slices.Clone[[]string])
	in := []string{"a", "b"}
	c.Set("k", in)
	in[0] = "mutated"

	out, _ := c.Get("k")
	out[1] = "mutated"
	again, _ := c.Get("k")
	if !slices.Equal(again, []string{"a", "b"}) {
		t.Fatalf("cache shared state with caller: %v", again)
	}
}

func TestQueryCacheDeleteAndClear(t *testing.T) {
	c := NewQueryCache[int]("test", time.Minute, newFakeClock(), nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key still present")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len after Clear = %d", c.Len())
	}
}

func TestQueryKey(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		same bool
	}{
		{
			name: "field order does not matter",
			a:    map[string]any{"category": "Books", "page": 2},
			b:    map[string]any{"page": 2, "category": "Books"},
			same: true,
		},
		{
			name: "empty values are dropped",
			a:    map[string]any{"category": "Books", "query": "", "inStockOnly": false, "tags": []string{}},
			b:    map[string]any{"category": "Books"},
			same: true,
		},
		{
			name: "different values differ",
			a:    map[string]any{"category": "Books"},
			b:    map[string]any{"category": "Home"},
			same: false,
		},
		{
			name: "zero-value query equals empty",
			a:    domain.ProductQuery{},
			b:    map[string]any{},
			same: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, err := QueryKey(tt.a)
			if err != nil {
				t.Fatalf("QueryKey(a): %v", err)
			}
			kb, err := QueryKey(tt.b)
			if err != nil {
				t.Fatalf("QueryKey(b): %v", err)
			}
			if (ka == kb) != tt.same {
				t.Fatalf("keys %q and %q, want same=%v", ka, kb, tt.same)
			}
		})
	}
}

func TestQueryKeySortsNestedKeys(t *testing.T) {
	k, err := QueryKey(map[string]any{"z": 1, "a": map[string]any{"y": "v", "b": true}})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"a":{"b":true,"y":"v"},"z":1}`; k != want {
		t.Fatalf("QueryKey = %s, want %s", k, want)
	}
}
