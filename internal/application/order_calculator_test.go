package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/memory"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

func line(id, price string, qty int) domain.OrderLine {
	return domain.OrderLine{ProductID: id, ProductName: id, UnitPrice: dec(price), Quantity: qty}
}

func TestOrderTotals(t *testing.T) {
	calc := NewOrderCalculator(DefaultPricing())
	tests := []struct {
		name     string
		lines    []domain.OrderLine
		discount decimal.Decimal
		want     domain.OrderTotals
	}{
		{
			name:  "below threshold pays shipping",
			lines: []domain.OrderLine{line("a", "20", 2)},
			want:  domain.OrderTotals{Subtotal: dec("40"), Tax: dec("3.2"), Shipping: dec("9.99"), Discount: dec("0"), Total: dec("53.19")},
		},
		{
			name:  "threshold itself still pays shipping",
			lines: []domain.OrderLine{line("a", "50", 1)},
			want:  domain.OrderTotals{Subtotal: dec("50"), Tax: dec("4"), Shipping: dec("9.99"), Discount: dec("0"), Total: dec("63.99")},
		},
		{
			name:  "above threshold ships free",
			lines: []domain.OrderLine{line("a", "30", 2)},
			want:  domain.OrderTotals{Subtotal: dec("60"), Tax: dec("4.8"), Shipping: dec("0"), Discount: dec("0"), Total: dec("64.8")},
		},
		{
			name:     "discount subtracted after tax",
			lines:    []domain.OrderLine{line("a", "100", 1)},
			discount: dec("10"),
			want:     domain.OrderTotals{Subtotal: dec("100"), Tax: dec("8"), Shipping: dec("0"), Discount: dec("10"), Total: dec("98")},
		},
		{
			name:     "discount clamped to subtotal",
			lines:    []domain.OrderLine{line("a", "10", 1)},
			discount: dec("25"),
			want:     domain.OrderTotals{Subtotal: dec("10"), Tax: dec("0.8"), Shipping: dec("9.99"), Discount: dec("10"), Total: dec("10.79")},
		},
		{
			name:     "negative discount ignored",
			lines:    []domain.OrderLine{line("a", "100", 1)},
			discount: dec("-5"),
			want:     domain.OrderTotals{Subtotal: dec("100"), Tax: dec("8"), Shipping: dec("0"), Discount: dec("0"), Total: dec("108")},
		},
		{
			name:  "tax rounded to cents",
			lines: []domain.OrderLine{line("a", "0.99", 3)},
			want:  domain.OrderTotals{Subtotal: dec("2.97"), Tax: dec("0.24"), Shipping: dec("9.99"), Discount: dec("0"), Total: dec("13.2")},
		},
		{
			name: "empty order",
			want: domain.OrderTotals{Subtotal: dec("0"), Tax: dec("0"), Shipping: dec("9.99"), Discount: dec("0"), Total: dec("9.99")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Totals(tt.lines, tt.discount)
			checks := []struct {
				field     string
				got, want decimal.Decimal
			}{
				{"subtotal", got.Subtotal, tt.want.Subtotal},
				{"tax", got.Tax, tt.want.Tax},
				{"shipping", got.Shipping, tt.want.Shipping},
				{"discount", got.Discount, tt.want.Discount},
				{"total", got.Total, tt.want.Total},
			}
			for _, c := range checks {
				if !c.got.Equal(c.want) {
					t.Errorf("%s = %s, want %s", c.field, c.got, c.want)
				}
			}
		})
	}
}

func TestResolveAddresses(t *testing.T) {
	ctx := context.Background()
	calc := NewOrderCalculator(DefaultPricing())
	saved := domain.Address{ID: "home", FirstName: "Ada", Street: "1 Main St", City: "Springfield", Country: "US"}
	book := memory.NewAddressBook(saved)
	fresh := &domain.Address{FirstName: "Bob", Street: "2 Side St", City: "Shelbyville", Country: "US"}

	t.Run("billing same as shipping", func(t *testing.T) {
		ship, bill, err := calc.ResolveAddresses(ctx, domain.AddressSelection{
			Shipping: domain.AddressChoice{AddressID: "home"}, BillingSameAsShipping: true,
		}, book)
		if err != nil || ship != saved || bill != saved {
			t.Fatalf("got %+v %+v %v", ship, bill, err)
		}
	})

	t.Run("new billing address", func(t *testing.T) {
		_, bill, err := calc.ResolveAddresses(ctx, domain.AddressSelection{
			Shipping: domain.AddressChoice{AddressID: "home"}, Billing: domain.AddressChoice{NewAddress: fresh},
		}, book)
		if err != nil || bill != *fresh {
			t.Fatalf("got %+v %v", bill, err)
		}
	})

	t.Run("id wins over payload", func(t *testing.T) {
		ship, _, err := calc.ResolveAddresses(ctx, domain.AddressSelection{
			Shipping: domain.AddressChoice{AddressID: "home", NewAddress: fresh}, BillingSameAsShipping: true,
		}, book)
		if err != nil || ship != saved {
			t.Fatalf("got %+v %v", ship, err)
		}
	})

	t.Run("missing choices reported together", func(t *testing.T) {
		_, _, err := calc.ResolveAddresses(ctx, domain.AddressSelection{}, book)
		if !domain.IsKind(err, domain.ErrValidation) {
			t.Fatalf("err = %v", err)
		}
		de := err.(*domain.Error)
		if len(de.Fields) != 2 {
			t.Fatalf("fields = %+v", de.Fields)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := calc.ResolveAddresses(ctx, domain.AddressSelection{
			Shipping: domain.AddressChoice{AddressID: "nowhere"}, BillingSameAsShipping: true,
		}, book)
		if !domain.IsKind(err, domain.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}
