package repository

import (
	"context"
	"database/sql"
	"time"
)

// MarkRepo provides data access to the item_marks table, the shared
// marking ledger of a purchase session.  Marks are keyed by
// (session_id, item_id); toggling re-uses the existing row so the
// "who last touched this" trail survives until finalize deletes the
// session's marks wholesale.  Concurrent toggles of the same item
// race per last-write-wins; no version check is applied.
type MarkRepo struct {
	db *sql.DB
}

// NewMarkRepo returns a new MarkRepo bound to the provided database.
func NewMarkRepo(db *sql.DB) *MarkRepo { return &MarkRepo{db: db} }

// Toggle sets the marked state of one item within a session, creating
// the mark row on first touch and updating it afterwards.  The write
// is immediately visible to collaborators polling MarkedStates.
func (r *MarkRepo) Toggle(ctx context.Context, sessionID, itemID, userID uint64, marked bool) error {
	var markID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM item_marks WHERE session_id = ? AND item_id = ?`,
		sessionID, itemID).Scan(&markID)
	switch {
	case err == nil:
		_, err = r.db.ExecContext(ctx,
			`UPDATE item_marks SET marked = ?, marked_by = ?, marked_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			marked, userID, markID)
		return err
	case err == sql.ErrNoRows:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO item_marks (session_id, item_id, marked, marked_by)
			 VALUES (?, ?, ?, ?)`,
			sessionID, itemID, marked, userID)
		if err != nil && isDuplicateKey(err) {
			// Concurrent first touch of the same item; apply as update.
			_, err = r.db.ExecContext(ctx,
				`UPDATE item_marks SET marked = ?, marked_by = ?, marked_at = CURRENT_TIMESTAMP
				 WHERE session_id = ? AND item_id = ?`,
				marked, userID, sessionID, itemID)
		}
		return err
	default:
		return err
	}
}

// MarkState is the client-facing view of one mark, keyed by item id
// in the MarkedStates result.  The marking user is joined in so
// collaborators can see who checked an item off.
type MarkState struct {
	Marked           bool    `json:"marked"`
	MarkedAt         string  `json:"marked_at"`
	MarkedByName     *string `json:"marked_by_name"`
	MarkedByUsername *string `json:"marked_by_username"`
}

// MarkedStates returns every mark of a session reshaped as a mapping
// from item id to its latest state.  An empty map is returned when
// the session has no marks.
func (r *MarkRepo) MarkedStates(ctx context.Context, sessionID uint64) (map[uint64]MarkState, error) {
	const q = `SELECT m.item_id, m.marked, m.marked_at, u.name, u.username
	           FROM item_marks m
	           LEFT JOIN users u ON u.id = m.marked_by
	           WHERE m.session_id = ?`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64]MarkState)
	for rows.Next() {
		var (
			itemID         uint64
			st             MarkState
			markedAt       time.Time
			name, username sql.NullString
		)
		if err := rows.Scan(&itemID, &st.Marked, &markedAt, &name, &username); err != nil {
			return nil, err
		}
		st.MarkedAt = markedAt.UTC().Format(time.RFC3339)
		if name.Valid {
			v := name.String
			st.MarkedByName = &v
		}
		if username.Valid {
			v := username.String
			st.MarkedByUsername = &v
		}
		out[itemID] = st
	}
	return out, rows.Err()
}

// MarkedItem is one marked catalog item joined with its live price,
// quantity and category label, as collected by the finalizer before
// snapshotting.
type MarkedItem struct {
	ItemID        uint64
	Name          string
	CategoryLabel *string
	PriceCents    int64
	QuantityMilli int64
}

// MarkedItemsTx returns the session's items with marked=true joined
// against the live catalog, within the caller's transaction so the
// snapshot and the writes that follow it are isolated together.
func (r *MarkRepo) MarkedItemsTx(ctx context.Context, tx *sql.Tx, sessionID uint64) ([]MarkedItem, error) {
	const q = `SELECT i.id, i.name, c.name, i.price_cents, i.quantity_milli
	           FROM item_marks m
	           JOIN items i ON i.id = m.item_id
	           LEFT JOIN categories c ON c.id = i.category_id
	           WHERE m.session_id = ? AND m.marked = 1
	           ORDER BY i.position, i.id`
	rows, err := tx.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarkedItem
	for rows.Next() {
		var (
			it  MarkedItem
			cat sql.NullString
		)
		if err := rows.Scan(&it.ItemID, &it.Name, &cat, &it.PriceCents, &it.QuantityMilli); err != nil {
			return nil, err
		}
		if cat.Valid {
			v := cat.String
			it.CategoryLabel = &v
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// DeleteBySessionTx clears the session's ledger within the caller's
// transaction.  Called by the finalizer after the snapshot is saved.
func (r *MarkRepo) DeleteBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM item_marks WHERE session_id = ?`, sessionID)
	return err
}
