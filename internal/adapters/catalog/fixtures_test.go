package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

func TestDefaultProducts(t *testing.T) {
	products := DefaultProducts()
	if len(products) != 12 {
		t.Fatalf("len = %d", len(products))
	}
	seen := map[string]bool{}
	outOfStock := 0
	for i, p := range products {
		if seen[p.ID] {
			t.Fatalf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
		if !p.InStock {
			outOfStock++
		}
		if i > 0 && p.CreatedAt.After(products[i-1].CreatedAt) {
			t.Fatalf("%s is newer than %s", p.ID, products[i-1].ID)
		}
	}
	if outOfStock != 3 {
		t.Fatalf("out of stock = %d, want 3", outOfStock)
	}
}

func TestFixtureSource(t *testing.T) {
	ctx := context.Background()
	src := NewFixtureSource(nil, 0)
	all, err := src.ListProducts(ctx)
	if err != nil || len(all) != 12 {
		t.Fatalf("ListProducts = %d, %v", len(all), err)
	}
	all[0].Name = "mutated"
	p, err := src.GetProduct(ctx, all[0].ID)
	if err != nil || p.Name == "mutated" {
		t.Fatalf("GetProduct = %+v, %v", p, err)
	}
	if _, err := src.GetProduct(ctx, "nope"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestFixtureSourceLatency(t *testing.T) {
	src := NewFixtureSource([]domain.Product{{ID: "a"}}, 20*time.Millisecond)
	start := time.Now()
	if _, err := src.ListProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("latency not simulated")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if _, err := src.ListProducts(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}
