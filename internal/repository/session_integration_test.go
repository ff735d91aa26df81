package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// These tests need a real MySQL instance because the single-active
// session guarantee lives in a unique index. Set TEST_DATABASE_DSN to
// run them, e.g.:
//
//	TEST_DATABASE_DSN="root:root@tcp(127.0.0.1:3306)/shoplist_test?parseTime=true&multiStatements=true"
//
// The schema must already be migrated.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedList creates a user and a list owned by it, both with unique
// names so tests do not collide.
func seedList(t *testing.T, db *sql.DB) (userID, listID uint64) {
	t.Helper()
	ctx := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	res, err := db.ExecContext(ctx,
		`INSERT INTO users (username, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		"t_"+suffix, "Test User", "t_"+suffix+"@example.com", "x")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	uid, _ := res.LastInsertId()

	res, err = db.ExecContext(ctx,
		`INSERT INTO lists (owner_id, name) VALUES (?, ?)`, uid, "list "+suffix)
	if err != nil {
		t.Fatalf("seed list: %v", err)
	}
	lid, _ := res.LastInsertId()
	return uint64(uid), uint64(lid)
}

func seedItem(t *testing.T, db *sql.DB, listID uint64, name string, priceCents, quantityMilli int64) uint64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO items (list_id, name, price_cents, quantity_milli) VALUES (?, ?, ?, ?)`,
		listID, name, priceCents, quantityMilli)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func TestGetOrCreateActiveIdempotent(t *testing.T) {
	db := openTestDB(t)
	_, listID := seedList(t, db)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	first, err := repo.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := repo.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeated calls returned different sessions: %d vs %d", first.ID, second.ID)
	}

	var n int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase_sessions WHERE list_id = ? AND active = 1`, listID).Scan(&n)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("active sessions = %d, want 1", n)
	}
}

func TestGetOrCreateActiveConcurrent(t *testing.T) {
	db := openTestDB(t)
	_, listID := seedList(t, db)
	repo := NewSessionRepo(db)

	const workers = 8
	ids := make(chan uint64, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			s, err := repo.GetOrCreateActive(context.Background(), listID)
			if err != nil {
				errs <- err
				return
			}
			ids <- s.ID
		}()
	}

	var got []uint64
	for i := 0; i < workers; i++ {
		select {
		case err := <-errs:
			t.Fatalf("worker: %v", err)
		case id := <-ids:
			got = append(got, id)
		}
	}
	for _, id := range got {
		if id != got[0] {
			t.Fatalf("workers observed different sessions: %v", got)
		}
	}
}

func TestToggleRoundTrip(t *testing.T) {
	db := openTestDB(t)
	userID, listID := seedList(t, db)
	itemID := seedItem(t, db, listID, "Arroz", 250, 2000)

	sessions := NewSessionRepo(db)
	marks := NewMarkRepo(db)
	ctx := context.Background()

	sess, err := sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	if err := marks.Toggle(ctx, sess.ID, itemID, userID, true); err != nil {
		t.Fatalf("mark: %v", err)
	}
	states, err := marks.MarkedStates(ctx, sess.ID)
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	st, ok := states[itemID]
	if !ok || !st.Marked {
		t.Fatalf("item %d not marked: %+v", itemID, states)
	}

	// Unmark flips the flag but keeps the row.
	if err := marks.Toggle(ctx, sess.ID, itemID, userID, false); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	states, err = marks.MarkedStates(ctx, sess.ID)
	if err != nil {
		t.Fatalf("states after unmark: %v", err)
	}
	if st, ok := states[itemID]; ok && st.Marked {
		t.Fatalf("item %d still marked after unmark", itemID)
	}
	var rows int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_marks WHERE session_id = ?`, sess.ID).Scan(&rows); err != nil {
		t.Fatalf("count marks: %v", err)
	}
	if rows != 1 {
		t.Fatalf("mark rows = %d, want 1 (row retained on unmark)", rows)
	}
}

// A failure after the purchase insert must undo the whole finalize:
// no purchase row, all marks intact, session still active.
func TestFinalizeRollbackLeavesNoTrace(t *testing.T) {
	db := openTestDB(t)
	userID, listID := seedList(t, db)
	a := seedItem(t, db, listID, "Arroz", 250, 2000)
	b := seedItem(t, db, listID, "Feijao", 100, 3000)

	sessions := NewSessionRepo(db)
	marks := NewMarkRepo(db)
	purchases := NewPurchaseRepo(db)
	ctx := context.Background()

	sess, err := sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	for _, id := range []uint64{a, b} {
		if err := marks.Toggle(ctx, sess.ID, id, userID, true); err != nil {
			t.Fatalf("mark %d: %v", id, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	marked, err := marks.MarkedItemsTx(ctx, tx, sess.ID)
	if err != nil {
		t.Fatalf("marked items: %v", err)
	}
	totalCents, totalItems := ComputeTotals(marked)
	p := PurchaseRecord{ListID: listID, TotalCents: totalCents, TotalItems: totalItems}
	if err := purchases.CreateTx(ctx, tx, &p); err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	// The line insert never happens; the transaction dies here.
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchases WHERE list_id = ?`, listID).Scan(&n); err != nil {
		t.Fatalf("count purchases: %v", err)
	}
	if n != 0 {
		t.Fatalf("purchases = %d, want 0 after rollback", n)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_marks WHERE session_id = ? AND marked = 1`, sess.ID).Scan(&n); err != nil {
		t.Fatalf("count marks: %v", err)
	}
	if n != 2 {
		t.Fatalf("marked rows = %d, want 2 after rollback", n)
	}

	again, err := sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("session after rollback: %v", err)
	}
	if again.ID != sess.ID {
		t.Fatalf("session changed after rollback: %d vs %d", again.ID, sess.ID)
	}
}

func TestFinalizeFlow(t *testing.T) {
	db := openTestDB(t)
	userID, listID := seedList(t, db)
	a := seedItem(t, db, listID, "Arroz", 250, 2000)
	b := seedItem(t, db, listID, "Feijao", 100, 3000)
	seedItem(t, db, listID, "Leite", 450, 1000) // stays unmarked

	sessions := NewSessionRepo(db)
	marks := NewMarkRepo(db)
	purchases := NewPurchaseRepo(db)
	ctx := context.Background()

	sess, err := sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	for _, id := range []uint64{a, b} {
		if err := marks.Toggle(ctx, sess.ID, id, userID, true); err != nil {
			t.Fatalf("mark %d: %v", id, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	marked, err := marks.MarkedItemsTx(ctx, tx, sess.ID)
	if err != nil {
		t.Fatalf("marked items: %v", err)
	}
	if len(marked) != 2 {
		t.Fatalf("marked = %d, want 2", len(marked))
	}

	totalCents, totalItems := ComputeTotals(marked)
	p := PurchaseRecord{ListID: listID, TotalCents: totalCents, TotalItems: totalItems}
	if err := purchases.CreateTx(ctx, tx, &p); err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	lines := make([]PurchaseLineRecord, 0, len(marked))
	for _, m := range marked {
		lines = append(lines, PurchaseLineRecord{
			PurchaseID:    p.ID,
			Name:          m.Name,
			CategoryLabel: m.CategoryLabel,
			PriceCents:    m.PriceCents,
			QuantityMilli: m.QuantityMilli,
			SubtotalCents: Subtotal(m.PriceCents, m.QuantityMilli),
		})
	}
	if err := purchases.CreateLinesBulkTx(ctx, tx, lines); err != nil {
		t.Fatalf("create lines: %v", err)
	}
	if err := marks.DeleteBySessionTx(ctx, tx, sess.ID); err != nil {
		t.Fatalf("clear marks: %v", err)
	}
	if err := sessions.DeactivateTx(ctx, tx, sess.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if totalCents != 800 {
		t.Errorf("totalCents = %d, want 800", totalCents)
	}

	det, err := purchases.GetWithLines(ctx, p.ID, userID)
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if len(det.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(det.Lines))
	}
	if det.TotalCents != 800 || det.TotalItems != 2 {
		t.Fatalf("totals = (%d, %d), want (800, 2)", det.TotalCents, det.TotalItems)
	}

	// The session closed; the next trip opens a fresh one.
	next, err := sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		t.Fatalf("next session: %v", err)
	}
	if next.ID == sess.ID {
		t.Fatal("finalized session still active")
	}

	// A stranger cannot see the purchase.
	otherUser, _ := seedList(t, db)
	if _, err := purchases.GetWithLines(ctx, p.ID, otherUser); err != sql.ErrNoRows {
		t.Fatalf("foreign access: err = %v, want sql.ErrNoRows", err)
	}
}
