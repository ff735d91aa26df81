package model

import "time"

// List is a shopping list owned by one user and optionally shared
// with others.  Deletion is soft: IsActive flips to false and the
// row stays for referential integrity with purchases.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user who created the list.
//  Name        – display name.
//  Description – optional free text.
//  IsActive    – soft-delete flag.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type List struct {
    ID          uint64    // lists.id
    OwnerID     uint64    // lists.owner_id
    Name        string    // lists.name
    Description *string   // lists.description (nullable)
    IsActive    bool      // lists.is_active
    CreatedAt   time.Time // lists.created_at
    UpdatedAt   time.Time // lists.updated_at
}

// ListShare grants one user access to another user's list.  CanEdit
// distinguishes read-only collaborators from editors; both may mark
// items during a purchase session.
//
// Fields:
//  ID        – primary key identifier.
//  ListID    – list being shared.
//  UserID    – recipient of the share.
//  CanEdit   – whether the recipient may modify the catalog.
//  CreatedAt – when the share was granted.
type ListShare struct {
    ID        uint64    // list_shares.id
    ListID    uint64    // list_shares.list_id
    UserID    uint64    // list_shares.user_id
    CanEdit   bool      // list_shares.can_edit
    CreatedAt time.Time // list_shares.created_at
}
