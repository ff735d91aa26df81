package model

import "time"

// Purchase is the immutable historical record produced when a
// session finalizes.  Totals are frozen at finalize time and the
// row is never updated afterwards.
//
// Fields:
//  ID          – primary key identifier.
//  ListID      – list the purchase belongs to.
//  TotalCents  – sum of line subtotals in cents.
//  TotalItems  – number of distinct lines.
//  FinalizedAt – when the session was converted.
type Purchase struct {
    ID          uint64    // purchases.id
    ListID      uint64    // purchases.list_id
    TotalCents  int64     // purchases.total_cents
    TotalItems  int       // purchases.total_items
    FinalizedAt time.Time // purchases.finalized_at
}

// PurchaseLine captures one item of a purchase as a snapshot by
// value: name, category label, price and quantity are copied at
// finalize time, not referenced, so later catalog edits or
// deletions cannot change history.
//
// Fields:
//  ID            – primary key identifier.
//  PurchaseID    – owning purchase.
//  Name          – item name at purchase time.
//  CategoryLabel – category name at purchase time (nullable).
//  PriceCents    – unit price at purchase time.
//  QuantityMilli – quantity at purchase time in thousandths.
//  SubtotalCents – price * quantity, rounded to the cent.
type PurchaseLine struct {
    ID            uint64  // purchase_lines.id
    PurchaseID    uint64  // purchase_lines.purchase_id
    Name          string  // purchase_lines.name
    CategoryLabel *string // purchase_lines.category_label (nullable)
    PriceCents    int64   // purchase_lines.price_cents
    QuantityMilli int64   // purchase_lines.quantity_milli
    SubtotalCents int64   // purchase_lines.subtotal_cents
}
