package repository

import (
	"context"
	"database/sql"
)

// CategoryRepo provides CRUD operations for item categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo returns a new CategoryRepo bound to the given database.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// CategoryInfo is one category as exposed to clients.
type CategoryInfo struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]CategoryInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CategoryInfo, 0)
	for rows.Next() {
		var (
			c           CategoryInfo
			color, icon sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &color, &icon); err != nil {
			return nil, err
		}
		if color.Valid {
			v := color.String
			c.Color = &v
		}
		if icon.Valid {
			v := icon.String
			c.Icon = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a category and returns its id.
func (r *CategoryRepo) Create(ctx context.Context, name string, color, icon *string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, color, icon) VALUES (?, ?, ?)`, name, color, icon)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update replaces a category's fields.  sql.ErrNoRows when absent.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name string, color, icon *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ?`,
		name, color, icon, id)
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

// Delete removes a category.  Items referencing it fall back to NULL
// via the schema's ON DELETE SET NULL.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
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
