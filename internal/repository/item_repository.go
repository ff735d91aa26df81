package repository

import (
	"context"
	"database/sql"

	"github.com/dmoreira/shoplist/internal/model"
)

// ItemRepo provides CRUD operations for catalog items.  Items are
// live, mutable rows; purchase history never references them directly
// because finalize snapshots their fields by value.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// GetByID fetches a single item.  sql.ErrNoRows when absent.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	const q = `SELECT id, list_id, name, category_id, price_cents, quantity_milli,
	                  position, created_at, updated_at
	           FROM items WHERE id = ?`
	var (
		it    model.Item
		catID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&it.ID, &it.ListID, &it.Name, &catID,
		&it.PriceCents, &it.QuantityMilli, &it.Position, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return model.Item{}, err
	}
	if catID.Valid {
		cid := uint64(catID.Int64)
		it.CategoryID = &cid
	}
	return it, nil
}

// Create inserts an item at the end of its list's display order and
// returns the new id.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) (uint64, error) {
	const posQ = `SELECT COALESCE(MAX(position), -1) + 1 FROM items WHERE list_id = ?`
	var pos int
	if err := r.db.QueryRowContext(ctx, posQ, it.ListID).Scan(&pos); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO items (list_id, name, category_id, price_cents, quantity_milli, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		it.ListID, it.Name, it.CategoryID, it.PriceCents, it.QuantityMilli, pos)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update replaces an item's catalog fields.  sql.ErrNoRows when the
// item does not exist.
func (r *ItemRepo) Update(ctx context.Context, id uint64, name string, categoryID *uint64, priceCents, quantityMilli int64, position int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET name = ?, category_id = ?, price_cents = ?, quantity_milli = ?, position = ?
		 WHERE id = ?`,
		name, categoryID, priceCents, quantityMilli, position, id)
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

// Delete removes an item.  Marks referencing it disappear with it via
// the schema's cascade; purchase lines are snapshots and stay intact.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
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
