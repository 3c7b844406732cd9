package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gitlab.com/timkado/web/storefront-state/benchmarks/mocks"
	"gitlab.com/timkado/web/storefront-state/benchmarks/utils"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/application"
)

// BenchmarkCartAdd measures a cart mutation including its durable write
func BenchmarkCartAdd(b *testing.B) {
	ctx := context.Background()
	products := utils.GenerateProducts(50)

	for _, latency := range []time.Duration{0, 100 * time.Microsecond} {
		b.Run(fmt.Sprintf("Latency_%s", latency), func(b *testing.B) {
			kv := mocks.NewMockKVStore(latency)
			cart := application.NewCart(ctx, kv, logger.NewNop(), "bench")

			b.ReportAllocs()
			i := 0
			for b.Loop() {
				if err := cart.Add(ctx, products[i%len(products)].Ref(), 1); err != nil {
					b.Fatal(err)
				}
				i++
			}

			_, sets, _, bytes := kv.GetMetrics()
			b.ReportMetric(float64(sets)/float64(b.N), "writes/op")
			b.ReportMetric(float64(bytes)/float64(b.N), "bytes/op")
		})
	}
}

// BenchmarkCartDerived measures the derived cart views on a full cart
func BenchmarkCartDerived(b *testing.B) {
	ctx := context.Background()
	kv := mocks.NewMockKVStore(0)
	cart := application.NewCart(ctx, kv, logger.NewNop(), "")
	for i, p := range utils.GenerateProducts(100) {
		if err := cart.Add(ctx, p.Ref(), i%4+1); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = cart.Subtotal()
		_ = cart.ItemCount()
	}
}

// BenchmarkWishlistToggle measures adding and removing the same wishlist entry
func BenchmarkWishlistToggle(b *testing.B) {
	ctx := context.Background()
	kv := mocks.NewMockKVStore(0)
	clock := mocks.StaticClock{At: time.Now()}
	wishlist := application.NewWishlist(ctx, kv, clock, logger.NewNop(), "")
	product := utils.GenerateProducts(1)[0].Ref()

	b.ReportAllocs()
	for b.Loop() {
		if _, _, err := wishlist.Add(ctx, product); err != nil {
			b.Fatal(err)
		}
		wishlist.Remove(ctx, product.ID)
	}
}

// BenchmarkStoreNotify measures state fan-out to subscribers
func BenchmarkStoreNotify(b *testing.B) {
	for _, subscribers := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("Subscribers_%d", subscribers), func(b *testing.B) {
			store := application.NewStore(0)
			for range subscribers {
				store.Subscribe(func(int) {})
			}

			b.ReportAllocs()
			for b.Loop() {
				store.Update(func(v int) int { return v + 1 })
			}
		})
	}
}
