package repository

import (
	"context"
	"database/sql"

	"github.com/dmoreira/shoplist/internal/model"
)

// SessionRepo owns the lifecycle of purchase sessions.  A session is
// the scratch space of one shopping trip; the invariant is that at
// most one session per list is active at any instant.  The schema
// enforces it with UNIQUE (list_id, active) where active is 1 for
// the live session and NULL otherwise, so two concurrent creators
// collide on the index and the loser adopts the winner's row instead
// of producing a second active session.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionSelectActive = `SELECT id, list_id, created_at FROM purchase_sessions
                             WHERE list_id = ? AND active = 1 LIMIT 1`

// GetOrCreateActive returns the list's active session, creating one
// when none exists.  Repeated calls without an intervening finalize
// return the same session id; under concurrent first access exactly
// one row wins the unique index and every caller converges on it.
func (r *SessionRepo) GetOrCreateActive(ctx context.Context, listID uint64) (model.PurchaseSession, error) {
	s, err := r.selectActive(ctx, listID)
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return model.PurchaseSession{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO purchase_sessions (list_id, active) VALUES (?, 1)`, listID)
	if err != nil {
		if isDuplicateKey(err) {
			// Lost the race; a concurrent caller created the session.
			return r.selectActive(ctx, listID)
		}
		return model.PurchaseSession{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.PurchaseSession{}, err
	}
	var created model.PurchaseSession
	err = r.db.QueryRowContext(ctx,
		`SELECT id, list_id, created_at FROM purchase_sessions WHERE id = ?`, id).
		Scan(&created.ID, &created.ListID, &created.CreatedAt)
	if err != nil {
		return model.PurchaseSession{}, err
	}
	created.Active = true
	return created, nil
}

// GetOrCreateActiveTx is GetOrCreateActive inside a caller-owned
// transaction, used by the finalizer so the session it operates on
// cannot be swapped out mid-flight.  The select locks the session row
// (FOR UPDATE), so two concurrent finalizers of the same list queue on
// it and the second one observes the marks already cleared instead of
// snapshotting them a second time.  A duplicate-key collision here is
// surfaced as-is: the caller's transaction snapshot may not see the
// competing row, so retrying must happen at the caller level.
func (r *SessionRepo) GetOrCreateActiveTx(ctx context.Context, tx *sql.Tx, listID uint64) (model.PurchaseSession, error) {
	var s model.PurchaseSession
	err := tx.QueryRowContext(ctx, sessionSelectActive+` FOR UPDATE`, listID).
		Scan(&s.ID, &s.ListID, &s.CreatedAt)
	if err == nil {
		s.Active = true
		return s, nil
	}
	if err != sql.ErrNoRows {
		return model.PurchaseSession{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchase_sessions (list_id, active) VALUES (?, 1)`, listID)
	if err != nil {
		return model.PurchaseSession{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.PurchaseSession{}, err
	}
	err = tx.QueryRowContext(ctx,
		`SELECT id, list_id, created_at FROM purchase_sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.ListID, &s.CreatedAt)
	if err != nil {
		return model.PurchaseSession{}, err
	}
	s.Active = true
	return s, nil
}

// DeactivateTx closes a session within the caller's transaction.
// Setting active to NULL frees the (list_id, 1) slot for the next
// session.  A finalized session is never reactivated.
func (r *SessionRepo) DeactivateTx(ctx context.Context, tx *sql.Tx, sessionID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE purchase_sessions SET active = NULL WHERE id = ?`, sessionID)
	return err
}

func (r *SessionRepo) selectActive(ctx context.Context, listID uint64) (model.PurchaseSession, error) {
	var s model.PurchaseSession
	err := r.db.QueryRowContext(ctx, sessionSelectActive, listID).
		Scan(&s.ID, &s.ListID, &s.CreatedAt)
	if err != nil {
		return model.PurchaseSession{}, err
	}
	s.Active = true
	return s, nil
}
