package model

import "time"

// Item is a mutable catalog entry on a list.  Prices are integer
// cents and quantities integer thousandths so money math never
// touches binary floats.  Items are independent of any purchase
// session; sessions reference them by id and purchases snapshot
// them by value.
//
// Fields:
//  ID            – primary key identifier.
//  ListID        – owning list.
//  Name          – item name.
//  CategoryID    – optional category reference.
//  PriceCents    – unit price in cents.
//  QuantityMilli – quantity in thousandths (1500 = 1.5).
//  Position      – display order within the list.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Item struct {
    ID            uint64    // items.id
    ListID        uint64    // items.list_id
    Name          string    // items.name
    CategoryID    *uint64   // items.category_id (nullable)
    PriceCents    int64     // items.price_cents
    QuantityMilli int64     // items.quantity_milli
    Position      int       // items.position
    CreatedAt     time.Time // items.created_at
    UpdatedAt     time.Time // items.updated_at
}

// Category labels items for grouping in the client.  Color and icon
// are presentation hints stored as plain strings.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – category name.
//  Color     – optional display color.
//  Icon      – optional display icon name.
//  CreatedAt – creation timestamp.
type Category struct {
    ID        uint64    // categories.id
    Name      string    // categories.name
    Color     *string   // categories.color (nullable)
    Icon      *string   // categories.icon (nullable)
    CreatedAt time.Time // categories.created_at
}
