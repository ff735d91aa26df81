package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dmoreira/shoplist/internal/utils"
)

func runJWT(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := JWTAuth(secret)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, reached
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, reached := runJWT(t, "s3cret", "")
	if reached {
		t.Fatal("handler reached without a token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthInvalidToken(t *testing.T) {
	rec, reached := runJWT(t, "s3cret", "Bearer not-a-jwt")
	if reached {
		t.Fatal("handler reached with a garbage token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, "user", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, reached := runJWT(t, "s3cret", "Bearer "+at.Token)
	if reached {
		t.Fatal("handler reached with a token signed by another secret")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthValidTokenInjectsClaims(t *testing.T) {
	const secret = "s3cret"
	at, err := utils.NewAccessToken(secret, 7, "admin", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser interface{}
	var gotRole interface{}
	h := JWTAuth(secret)(func(c echo.Context) error {
		gotUser = c.Get("user_id")
		gotRole = c.Get("role")
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sub, ok := gotUser.(float64); !ok || uint64(sub) != 7 {
		t.Errorf("user_id = %v, want 7", gotUser)
	}
	if role, ok := gotRole.(string); !ok || role != "admin" {
		t.Errorf("role = %v, want admin", gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name    string
		role    interface{}
		allowed []string
		want    int
	}{
		{"admin allowed", "admin", []string{"admin"}, http.StatusOK},
		{"user denied", "user", []string{"admin"}, http.StatusForbidden},
		{"missing role denied", nil, []string{"admin"}, http.StatusForbidden},
		{"any of several", "user", []string{"admin", "user"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tc.role != nil {
				c.Set("role", tc.role)
			}
			h := RequireRole(tc.allowed...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			if err := h(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
