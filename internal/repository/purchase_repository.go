package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// PurchaseRepo provides access to finalized purchases and their line
// snapshots.  Purchases are written once inside the finalize
// transaction and never mutated afterwards.  All timestamp fields
// are stored in UTC.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// PurchaseRecord mirrors the purchases table.  It is used by the
// finalizer when constructing the row; business logic should use
// model.Purchase for reads.
type PurchaseRecord struct {
	ID          uint64
	ListID      uint64
	TotalCents  int64
	TotalItems  int
	FinalizedAt time.Time
}

// PurchaseLineRecord mirrors the purchase_lines table.  Only fields
// needed for insertion are exposed; the snapshot columns are copied
// from the live catalog at finalize time.
type PurchaseLineRecord struct {
	PurchaseID    uint64
	Name          string
	CategoryLabel *string
	PriceCents    int64
	QuantityMilli int64
	SubtotalCents int64
}

// CreateTx inserts a new purchase within the scope of an existing
// transaction.  It populates the generated ID and finalized_at on
// the provided record.  The caller must commit or rollback.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *PurchaseRecord) error {
	const q = `INSERT INTO purchases (list_id, total_cents, total_items) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.ListID, p.TotalCents, p.TotalItems)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	// Query back the row to populate the database-assigned timestamp.
	const sel = `SELECT finalized_at FROM purchases WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.FinalizedAt)
}

// CreateLinesBulkTx inserts all purchase_lines rows in a single
// statement.  The caller must supply the purchase ID in each record.
// Passing an empty slice has no effect and returns nil.
func (r *PurchaseRepo) CreateLinesBulkTx(ctx context.Context, tx *sql.Tx, lines []PurchaseLineRecord) error {
	if len(lines) == 0 {
		return nil
	}
	query := `INSERT INTO purchase_lines (purchase_id, name, category_label, price_cents, quantity_milli, subtotal_cents) VALUES `
	args := make([]interface{}, 0, len(lines)*6)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, l.PurchaseID, l.Name, l.CategoryLabel, l.PriceCents, l.QuantityMilli, l.SubtotalCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// accessFilter restricts purchase queries to lists the user owns or
// has a share for.  It re-appears in both the history listing and the
// single-purchase lookup so a guessed purchase id is still denied.
const accessFilter = `(l.owner_id = ? OR EXISTS (
    SELECT 1 FROM list_shares ls WHERE ls.list_id = l.id AND ls.user_id = ?))`

// PurchaseSummary is one history entry as exposed to clients, with
// the list name joined in for display.
type PurchaseSummary struct {
	ID          uint64    `json:"id"`
	ListID      uint64    `json:"list_id"`
	ListName    string    `json:"list_name"`
	TotalCents  int64     `json:"total_cents"`
	TotalItems  int       `json:"total_items"`
	FinalizedAt time.Time `json:"finalized_at"`
}

// ListHistory returns the newest purchases visible to the user,
// optionally restricted to one list.  Most recent first; limit caps
// the page size.
func (r *PurchaseRepo) ListHistory(ctx context.Context, userID uint64, listID *uint64, limit int) ([]PurchaseSummary, error) {
	q := `SELECT p.id, p.list_id, l.name, p.total_cents, p.total_items, p.finalized_at
	      FROM purchases p
	      JOIN lists l ON l.id = p.list_id
	      WHERE ` + accessFilter
	args := []interface{}{userID, userID}
	if listID != nil {
		q += ` AND p.list_id = ?`
		args = append(args, *listID)
	}
	q += ` ORDER BY p.finalized_at DESC, p.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PurchaseSummary, 0)
	for rows.Next() {
		var p PurchaseSummary
		if err := rows.Scan(&p.ID, &p.ListID, &p.ListName, &p.TotalCents, &p.TotalItems, &p.FinalizedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LineDetail is one snapshot line as exposed to clients.
type LineDetail struct {
	Name          string  `json:"name"`
	CategoryLabel *string `json:"category_label,omitempty"`
	PriceCents    int64   `json:"price_cents"`
	QuantityMilli int64   `json:"quantity_milli"`
	SubtotalCents int64   `json:"subtotal_cents"`
}

// PurchaseDetail is a purchase together with all its lines.
type PurchaseDetail struct {
	ID          uint64       `json:"id"`
	ListID      uint64       `json:"list_id"`
	TotalCents  int64        `json:"total_cents"`
	TotalItems  int          `json:"total_items"`
	FinalizedAt time.Time    `json:"finalized_at"`
	Lines       []LineDetail `json:"lines"`
}

// GetWithLines loads a purchase with its lines, re-validating that
// the user may see it.  Access is checked per purchase because an id
// could otherwise be guessed; sql.ErrNoRows covers both a missing
// purchase and one the user may not see.
func (r *PurchaseRepo) GetWithLines(ctx context.Context, purchaseID, userID uint64) (*PurchaseDetail, error) {
	const q = `SELECT p.id, p.list_id, p.total_cents, p.total_items, p.finalized_at
	           FROM purchases p
	           JOIN lists l ON l.id = p.list_id
	           WHERE p.id = ? AND ` + accessFilter
	var det PurchaseDetail
	err := r.db.QueryRowContext(ctx, q, purchaseID, userID, userID).Scan(
		&det.ID, &det.ListID, &det.TotalCents, &det.TotalItems, &det.FinalizedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &det); err != nil {
		return nil, err
	}
	return &det, nil
}

// GetPrecedingWithLines finds the purchase immediately before the
// given instant for the same list and loads its lines.  Used by the
// price-evolution computation.  sql.ErrNoRows when the purchase was
// the list's first.
func (r *PurchaseRepo) GetPrecedingWithLines(ctx context.Context, listID uint64, before time.Time, excludeID uint64) (*PurchaseDetail, error) {
	const q = `SELECT id, list_id, total_cents, total_items, finalized_at
	           FROM purchases
	           WHERE list_id = ? AND id <> ?
	             AND (finalized_at < ? OR (finalized_at = ? AND id < ?))
	           ORDER BY finalized_at DESC, id DESC
	           LIMIT 1`
	ts := before.UTC().Format("2006-01-02 15:04:05")
	var det PurchaseDetail
	err := r.db.QueryRowContext(ctx, q, listID, excludeID, ts, ts, excludeID).Scan(
		&det.ID, &det.ListID, &det.TotalCents, &det.TotalItems, &det.FinalizedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &det); err != nil {
		return nil, err
	}
	return &det, nil
}

func (r *PurchaseRepo) loadLines(ctx context.Context, det *PurchaseDetail) error {
	const q = `SELECT name, category_label, price_cents, quantity_milli, subtotal_cents
	           FROM purchase_lines
	           WHERE purchase_id = ?
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, det.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	det.Lines = make([]LineDetail, 0)
	for rows.Next() {
		var (
			l   LineDetail
			cat sql.NullString
		)
		if err := rows.Scan(&l.Name, &cat, &l.PriceCents, &l.QuantityMilli, &l.SubtotalCents); err != nil {
			return err
		}
		if cat.Valid {
			v := strings.TrimSpace(cat.String)
			l.CategoryLabel = &v
		}
		det.Lines = append(det.Lines, l)
	}
	return rows.Err()
}
