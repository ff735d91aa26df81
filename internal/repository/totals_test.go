package repository

import "testing"

func TestSubtotal(t *testing.T) {
	cases := []struct {
		name          string
		priceCents    int64
		quantityMilli int64
		want          int64
	}{
		{"one unit", 250, 1000, 250},
		{"two units", 250, 2000, 500},
		{"three units", 100, 3000, 300},
		{"half unit", 299, 500, 150}, // 149.5 rounds up
		{"weighted 1.234 kg", 1099, 1234, 1356},
		{"zero quantity", 500, 0, 0},
		{"zero price", 0, 2000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Subtotal(tc.priceCents, tc.quantityMilli); got != tc.want {
				t.Errorf("Subtotal(%d, %d) = %d, want %d", tc.priceCents, tc.quantityMilli, got, tc.want)
			}
		})
	}
}

func TestComputeTotals(t *testing.T) {
	items := []MarkedItem{
		{ItemID: 1, Name: "Arroz", PriceCents: 250, QuantityMilli: 2000},
		{ItemID: 2, Name: "Feijao", PriceCents: 100, QuantityMilli: 3000},
	}
	totalCents, totalItems := ComputeTotals(items)
	if totalCents != 800 {
		t.Errorf("totalCents = %d, want 800", totalCents)
	}
	if totalItems != 2 {
		t.Errorf("totalItems = %d, want 2", totalItems)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	totalCents, totalItems := ComputeTotals(nil)
	if totalCents != 0 || totalItems != 0 {
		t.Errorf("ComputeTotals(nil) = (%d, %d), want (0, 0)", totalCents, totalItems)
	}
}
