package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/benchmarks/mocks"
	"gitlab.com/timkado/web/storefront-state/benchmarks/utils"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/memory"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/nats"
	"gitlab.com/timkado/web/storefront-state/internal/application"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// BenchmarkOrderTotals measures total derivation for orders of increasing size
func BenchmarkOrderTotals(b *testing.B) {
	calc := application.NewOrderCalculator(application.DefaultPricing())
	discount := decimal.RequireFromString("5.50")

	for _, tc := range []struct {
		name  string
		lines int
	}{
		{"Small", 3},
		{"Medium", 25},
		{"Large", 250},
	} {
		lines := utils.GenerateOrderLines(tc.lines)
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				calc.Totals(lines, discount)
			}
		})
	}
}

// BenchmarkCreateOrder measures validation, pricing, gateway submission and history persistence
func BenchmarkCreateOrder(b *testing.B) {
	ctx := context.Background()
	log := logger.NewNop()
	kv := mocks.NewMockKVStore(0)
	clock := mocks.StaticClock{At: time.Now()}
	book := memory.NewAddressBook(domain.Address{
		ID: "addr-1", FirstName: "Ada", LastName: "Lovelace", Street: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
	})

	svc := application.NewOrderService(ctx, application.OrderServiceDeps{
		Calculator: application.NewOrderCalculator(application.DefaultPricing()),
		Addresses:  book,
		Gateway:    memory.NewOrderGateway(0),
		Publisher:  nats.NopPublisher{},
		Cart:       application.NewCart(ctx, kv, log, ""),
		KV:         kv,
		Clock:      clock,
		Logger:     log,
	})
	req := domain.OrderRequest{
		Items:         utils.GenerateOrderLines(5),
		Addresses:     domain.AddressSelection{Shipping: domain.AddressChoice{AddressID: "addr-1"}, BillingSameAsShipping: true},
		PaymentMethod: "card",
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := svc.CreateOrder(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(len(svc.Orders())), "orders")
}
