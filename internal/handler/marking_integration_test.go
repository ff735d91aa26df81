package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dmoreira/shoplist/internal/repository"
)

// These tests drive the marking endpoints against a real MySQL
// instance because the interesting outcomes (forbidden vs not-found,
// empty-session finalize) depend on the access queries. Set
// TEST_DATABASE_DSN to run them; the schema must already be migrated.
func openHandlerTestDB(t *testing.T) *sql.DB {
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

func seedUser(t *testing.T, db *sql.DB, tag string) uint64 {
	t.Helper()
	suffix := fmt.Sprintf("%s_%d", tag, time.Now().UnixNano())
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO users (username, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		"t_"+suffix, "Test User", "t_"+suffix+"@example.com", "x")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func seedOwnedList(t *testing.T, db *sql.DB, ownerID uint64) uint64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO lists (owner_id, name) VALUES (?, ?)`,
		ownerID, fmt.Sprintf("list %d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("seed list: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func newDBMarkingHandler(db *sql.DB) *MarkingHandler {
	return NewMarkingHandler(
		repository.NewSessionRepo(db),
		repository.NewMarkRepo(db),
		repository.NewListRepo(db),
		repository.NewItemRepo(db),
		repository.NewPurchaseRepo(db),
		repository.NewUserRepo(db),
		nil,
	)
}

// A user with no share on the list gets a forbidden response, not a
// not-found one, on every marking operation.
func TestMarkingEndpointsForbidNonMembers(t *testing.T) {
	db := openHandlerTestDB(t)
	owner := seedUser(t, db, "owner")
	stranger := seedUser(t, db, "stranger")
	listID := seedOwnedList(t, db, owner)
	h := newDBMarkingHandler(db)

	lid := fmt.Sprintf("%d", listID)
	uid := float64(stranger)

	cases := []struct {
		name string
		call func() int
	}{
		{"get marks", func() int {
			c, rec := newMarkContext(t, http.MethodGet, "/v1/lists/"+lid+"/marks", "", lid, uid)
			if err := h.GetMarks(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			return rec.Code
		}},
		{"toggle", func() int {
			c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/"+lid+"/marks/toggle",
				`{"item_id":1,"marked":true}`, lid, uid)
			if err := h.ToggleMark(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			return rec.Code
		}},
		{"finalize", func() int {
			c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/"+lid+"/finalize", "", lid, uid)
			if err := h.Finalize(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			return rec.Code
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := tc.call(); code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", code)
			}
		})
	}

	// The owner is let through on the same list.
	c, rec := newMarkContext(t, http.MethodGet, "/v1/lists/"+lid+"/marks", "", lid, float64(owner))
	if err := h.GetMarks(c); err != nil {
		t.Fatalf("owner get marks: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
}

// A storage fault while loading the toggled item is reported as a
// server error, not as a missing item.
func TestToggleMarkReportsItemLoadFault(t *testing.T) {
	db := openHandlerTestDB(t)
	owner := seedUser(t, db, "owner")
	listID := seedOwnedList(t, db, owner)

	broken, err := sql.Open("mysql", os.Getenv("TEST_DATABASE_DSN"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	broken.Close()

	h := NewMarkingHandler(
		repository.NewSessionRepo(db),
		repository.NewMarkRepo(db),
		repository.NewListRepo(db),
		repository.NewItemRepo(broken),
		repository.NewPurchaseRepo(db),
		repository.NewUserRepo(db),
		nil,
	)

	lid := fmt.Sprintf("%d", listID)
	c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/"+lid+"/marks/toggle",
		`{"item_id":1,"marked":true}`, lid, float64(owner))
	if err := h.ToggleMark(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

// Finalizing a session with nothing marked is a validation failure
// and must not record a purchase.
func TestFinalizeEmptySessionRejected(t *testing.T) {
	db := openHandlerTestDB(t)
	owner := seedUser(t, db, "owner")
	listID := seedOwnedList(t, db, owner)
	h := newDBMarkingHandler(db)

	lid := fmt.Sprintf("%d", listID)
	c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/"+lid+"/finalize", "", lid, float64(owner))
	if err := h.Finalize(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != repository.ErrNothingMarked.Error() {
		t.Fatalf("error = %q, want %q", body["error"], repository.ErrNothingMarked.Error())
	}

	var purchases int
	err := db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM purchases WHERE list_id = ?`, listID).Scan(&purchases)
	if err != nil {
		t.Fatalf("count purchases: %v", err)
	}
	if purchases != 0 {
		t.Fatalf("purchases = %d, want 0", purchases)
	}
}
