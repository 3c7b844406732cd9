package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func openTestStore(t *testing.T, path string) *KVStore {
	t.Helper()
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))

	if _, found, err := store.Get(ctx, "cart"); err != nil || found {
		t.Fatalf("Get on empty store = found %v, err %v", found, err)
	}
	if err := store.Set(ctx, "cart", []byte(`[{"quantity":1}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "cart", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, found, err := store.Get(ctx, "cart")
	if err != nil || !found {
		t.Fatalf("Get = found %v, err %v", found, err)
	}
	if !bytes.Equal(got, []byte(`[]`)) {
		t.Fatalf("Get = %q, want []", got)
	}

	if err := store.Delete(ctx, "cart"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "cart"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if _, found, _ := store.Get(ctx, "cart"); found {
		t.Fatalf("key still present after delete")
	}
}

func TestKVStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(ctx, "wishlist", []byte(`["x"]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := openTestStore(t, path)
	got, found, err := second.Get(ctx, "wishlist")
	if err != nil || !found || string(got) != `["x"]` {
		t.Fatalf("Get after reopen = %q, %v, %v", got, found, err)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *KVStore
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil store: %v", err)
	}
	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error from nil store")
	}
}
