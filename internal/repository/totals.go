package repository

// Subtotal computes a line subtotal in cents from a unit price in
// cents and a quantity in thousandths, rounding half up. Inputs are
// non-negative; integer math keeps many-line totals exact to the cent.
func Subtotal(priceCents, quantityMilli int64) int64 {
	return (priceCents*quantityMilli + 500) / 1000
}

// ComputeTotals sums the subtotals of the given marked items and
// counts the lines. It mirrors what the finalizer persists: one line
// per marked item, total = sum of per-line subtotals.
func ComputeTotals(items []MarkedItem) (totalCents int64, totalItems int) {
	for _, it := range items {
		totalCents += Subtotal(it.PriceCents, it.QuantityMilli)
		totalItems++
	}
	return totalCents, totalItems
}
