package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dmoreira/shoplist/internal/repository"
)

// newTestMarkingHandler builds a handler whose repositories are never
// reached: every test here exercises the validation that runs before
// any query.
func newTestMarkingHandler() *MarkingHandler {
	return NewMarkingHandler(
		repository.NewSessionRepo(nil),
		repository.NewMarkRepo(nil),
		repository.NewListRepo(nil),
		repository.NewItemRepo(nil),
		repository.NewPurchaseRepo(nil),
		repository.NewUserRepo(nil),
		nil,
	)
}

func newMarkContext(t *testing.T, method, target, body, listID string, userID interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if listID != "" {
		c.SetParamNames("id")
		c.SetParamValues(listID)
	}
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c, rec
}

func TestGetMarksRejectsMissingUser(t *testing.T) {
	h := newTestMarkingHandler()
	c, rec := newMarkContext(t, http.MethodGet, "/v1/lists/1/marks", "", "1", nil)
	if err := h.GetMarks(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGetMarksRejectsBadListID(t *testing.T) {
	h := newTestMarkingHandler()
	for _, id := range []string{"abc", "0", "-3"} {
		c, rec := newMarkContext(t, http.MethodGet, "/v1/lists/"+id+"/marks", "", id, float64(7))
		if err := h.GetMarks(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id %q: status = %d, want 400", id, rec.Code)
		}
	}
}

func TestToggleMarkRejectsMissingItemID(t *testing.T) {
	h := newTestMarkingHandler()
	for _, body := range []string{`{}`, `{"item_id":0,"marked":true}`, `not json`} {
		c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/1/marks/toggle", body, "1", float64(7))
		if err := h.ToggleMark(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestFinalizeRejectsBadListID(t *testing.T) {
	h := newTestMarkingHandler()
	c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/abc/finalize", "", "abc", float64(7))
	if err := h.Finalize(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFinalizeRejectsMissingUser(t *testing.T) {
	h := newTestMarkingHandler()
	c, rec := newMarkContext(t, http.MethodPost, "/v1/lists/1/finalize", "", "1", nil)
	if err := h.Finalize(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
