package repository

import (
	"context"
	"database/sql"
	"time"
)

// ListRepo provides CRUD operations for shopping lists and their
// shares, plus the access-control checks consumed by every other
// component.  A user may access a list when they own it or hold a
// share; editing additionally requires ownership or a share with
// can_edit set.  Soft-deleted lists (is_active=0) are invisible to
// all checks.
type ListRepo struct {
	db *sql.DB
}

// NewListRepo returns a new ListRepo bound to the given database.
func NewListRepo(db *sql.DB) *ListRepo { return &ListRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ListRepo) DB() *sql.DB { return r.db }

// CanAccess reports whether the user owns the list or holds a share
// for it.  Inactive lists are never accessible.
func (r *ListRepo) CanAccess(ctx context.Context, listID, userID uint64) (bool, error) {
	const q = `SELECT COUNT(*)
	           FROM lists l
	           LEFT JOIN list_shares ls ON ls.list_id = l.id AND ls.user_id = ?
	           WHERE l.id = ? AND l.is_active = 1
	             AND (l.owner_id = ? OR ls.user_id = ?)`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID, listID, userID, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CanEdit reports whether the user owns the list or holds a share
// with edit permission.
func (r *ListRepo) CanEdit(ctx context.Context, listID, userID uint64) (bool, error) {
	const q = `SELECT l.owner_id, ls.can_edit
	           FROM lists l
	           LEFT JOIN list_shares ls ON ls.list_id = l.id AND ls.user_id = ?
	           WHERE l.id = ? AND l.is_active = 1`
	var ownerID uint64
	var canEdit sql.NullBool
	err := r.db.QueryRowContext(ctx, q, userID, listID).Scan(&ownerID, &canEdit)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return ownerID == userID || (canEdit.Valid && canEdit.Bool), nil
}

// ListSummary is one row of the user's list overview: the list itself
// annotated with ownership and the share's edit flag when the list
// reached the user through a share.
type ListSummary struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	OwnerID     uint64  `json:"owner_id"`
	OwnerName   string  `json:"owner_name"`
	IsOwner     bool    `json:"is_owner"`
	CanEdit     bool    `json:"can_edit"`
	UpdatedAt   string  `json:"updated_at"`
}

// ListForUser returns all active lists the user owns or has a share
// for, most recently updated first.
func (r *ListRepo) ListForUser(ctx context.Context, userID uint64) ([]ListSummary, error) {
	const q = `SELECT l.id, l.name, l.description, l.owner_id, u.name,
	                  (l.owner_id = ?), COALESCE(ls.can_edit, 0), l.updated_at
	           FROM lists l
	           JOIN users u ON u.id = l.owner_id
	           LEFT JOIN list_shares ls ON ls.list_id = l.id AND ls.user_id = ?
	           WHERE l.is_active = 1 AND (l.owner_id = ? OR ls.user_id = ?)
	           ORDER BY l.updated_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ListSummary, 0)
	for rows.Next() {
		var (
			s         ListSummary
			desc      sql.NullString
			updatedAt time.Time
		)
		if err := rows.Scan(&s.ID, &s.Name, &desc, &s.OwnerID, &s.OwnerName,
			&s.IsOwner, &s.CanEdit, &updatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			s.Description = &d
		}
		s.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a new list owned by the given user and returns its id.
func (r *ListRepo) Create(ctx context.Context, ownerID uint64, name string, description *string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO lists (owner_id, name, description) VALUES (?, ?, ?)`,
		ownerID, name, description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update renames a list and/or replaces its description.
func (r *ListRepo) Update(ctx context.Context, listID uint64, name string, description *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lists SET name = ?, description = ? WHERE id = ? AND is_active = 1`,
		name, description, listID)
	return err
}

// SoftDelete deactivates a list.  Purchases keep referencing it so
// history remains queryable for anyone retaining access elsewhere.
func (r *ListRepo) SoftDelete(ctx context.Context, listID uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE lists SET is_active = 0 WHERE id = ?`, listID)
	return err
}

// OwnerID returns the owner of a list, active or not.  sql.ErrNoRows
// when the list does not exist.
func (r *ListRepo) OwnerID(ctx context.Context, listID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM lists WHERE id = ? AND is_active = 1`, listID).Scan(&owner)
	return owner, err
}

// ListItem is one catalog item of a list joined with its category's
// presentation fields, as returned by GetWithItems.
type ListItem struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"name"`
	CategoryID    *uint64 `json:"category_id,omitempty"`
	CategoryName  *string `json:"category_name,omitempty"`
	CategoryColor *string `json:"category_color,omitempty"`
	CategoryIcon  *string `json:"category_icon,omitempty"`
	PriceCents    int64   `json:"price_cents"`
	QuantityMilli int64   `json:"quantity_milli"`
	Position      int     `json:"position"`
}

// ListDetail is a list together with its items, ordered by position.
type ListDetail struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	OwnerID     uint64     `json:"owner_id"`
	IsOwner     bool       `json:"is_owner"`
	CanEdit     bool       `json:"can_edit"`
	Items       []ListItem `json:"items"`
}

// GetWithItems loads a list plus all its items for a user who already
// passed the access check.  sql.ErrNoRows when the list is missing or
// inactive.
func (r *ListRepo) GetWithItems(ctx context.Context, listID, userID uint64) (*ListDetail, error) {
	const q = `SELECT l.id, l.name, l.description, l.owner_id,
	                  (l.owner_id = ?), COALESCE(ls.can_edit, 0)
	           FROM lists l
	           LEFT JOIN list_shares ls ON ls.list_id = l.id AND ls.user_id = ?
	           WHERE l.id = ? AND l.is_active = 1`
	var det ListDetail
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, userID, userID, listID).Scan(
		&det.ID, &det.Name, &desc, &det.OwnerID, &det.IsOwner, &det.CanEdit)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		det.Description = &d
	}
	if det.IsOwner {
		det.CanEdit = true
	}

	const itemQ = `SELECT i.id, i.name, i.category_id, c.name, c.color, c.icon,
	                      i.price_cents, i.quantity_milli, i.position
	               FROM items i
	               LEFT JOIN categories c ON c.id = i.category_id
	               WHERE i.list_id = ?
	               ORDER BY i.position, i.id`
	rows, err := r.db.QueryContext(ctx, itemQ, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	det.Items = make([]ListItem, 0)
	for rows.Next() {
		var (
			it                       ListItem
			catID                    sql.NullInt64
			catName, catColor, catIc sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Name, &catID, &catName, &catColor, &catIc,
			&it.PriceCents, &it.QuantityMilli, &it.Position); err != nil {
			return nil, err
		}
		if catID.Valid {
			cid := uint64(catID.Int64)
			it.CategoryID = &cid
		}
		if catName.Valid {
			v := catName.String
			it.CategoryName = &v
		}
		if catColor.Valid {
			v := catColor.String
			it.CategoryColor = &v
		}
		if catIc.Valid {
			v := catIc.String
			it.CategoryIcon = &v
		}
		det.Items = append(det.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &det, nil
}

// ShareInfo describes one share of a list for display to its owner.
type ShareInfo struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	CanEdit  bool   `json:"can_edit"`
}

// SharesByList returns all shares of a list with recipient details.
func (r *ListRepo) SharesByList(ctx context.Context, listID uint64) ([]ShareInfo, error) {
	const q = `SELECT ls.user_id, u.username, u.name, ls.can_edit
	           FROM list_shares ls
	           JOIN users u ON u.id = ls.user_id
	           WHERE ls.list_id = ?
	           ORDER BY u.username`
	rows, err := r.db.QueryContext(ctx, q, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ShareInfo, 0)
	for rows.Next() {
		var s ShareInfo
		if err := rows.Scan(&s.UserID, &s.Username, &s.Name, &s.CanEdit); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddShare grants a user access to a list.  ErrConflict when the
// share already exists.
func (r *ListRepo) AddShare(ctx context.Context, listID, userID uint64, canEdit bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO list_shares (list_id, user_id, can_edit) VALUES (?, ?, ?)`,
		listID, userID, canEdit)
	if err != nil && isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// RemoveShare revokes a user's access to a list.  sql.ErrNoRows when
// no such share exists.
func (r *ListRepo) RemoveShare(ctx context.Context, listID, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM list_shares WHERE list_id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
