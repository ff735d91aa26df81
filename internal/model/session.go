package model

import "time"

// PurchaseSession is the ephemeral scratch space tracking one
// shopping trip for a list.  At most one session per list is active
// at any time; the invariant is enforced by a unique index over
// (list_id, active) where active is 1 or NULL.  A finalized session
// is never reactivated; the next access creates a fresh one.
//
// Fields:
//  ID        – primary key identifier.
//  ListID    – list the session belongs to.
//  Active    – true while the session is live.
//  CreatedAt – when the session was opened.
type PurchaseSession struct {
    ID        uint64    // purchase_sessions.id
    ListID    uint64    // purchase_sessions.list_id
    Active    bool      // purchase_sessions.active (1 or NULL)
    CreatedAt time.Time // purchase_sessions.created_at
}

// ItemMark records the checked state of one item within one
// session.  Unmarking flips the boolean rather than deleting the
// row, so "who last touched this" survives until finalize, when all
// marks of the session are deleted.  Unique per (session, item).
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – owning purchase session.
//  ItemID    – catalog item being marked.
//  Marked    – current checked state.
//  MarkedBy  – user who last toggled the mark (nullable).
//  MarkedAt  – when the mark was last toggled.
type ItemMark struct {
    ID        uint64    // item_marks.id
    SessionID uint64    // item_marks.session_id
    ItemID    uint64    // item_marks.item_id
    Marked    bool      // item_marks.marked
    MarkedBy  *uint64   // item_marks.marked_by (nullable)
    MarkedAt  time.Time // item_marks.marked_at
}
