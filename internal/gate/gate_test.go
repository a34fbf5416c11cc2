package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/session"
)

// setupGate wires a real Echo instance with one public and one protected
// route behind the gate, backed by a real session manager.
func setupGate(t *testing.T) (*echo.Echo, *session.Manager) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	sessions := session.NewManager(client, []byte("gate-test-secret-key-0123456789ab"), time.Hour)
	g := New(sessions)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		_ = c.String(apperror.SafeCode(err), apperror.SafeMessage(err))
	}

	g.Public(e.GET("/open", func(c echo.Context) error {
		return c.String(http.StatusOK, "open")
	}))
	g.Protect(e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}))
	e.Use(g.Middleware())

	return e, sessions
}

func doRequest(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGate_PublicRouteNeedsNoCredential(t *testing.T) {
	e, _ := setupGate(t)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for public route, got %d", rec.Code)
	}
}

func TestGate_ProtectedRouteMissingCredential(t *testing.T) {
	e, _ := setupGate(t)

	rec := doRequest(e, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credential, got %d", rec.Code)
	}
}

func TestGate_ProtectedRouteAdmitsValidToken(t *testing.T) {
	e, sessions := setupGate(t)

	token, err := sessions.Mint(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	// Raw token and conventional Bearer form are both accepted; the
	// handler sees the resolved user ID either way.
	for _, header := range []string{token, "Bearer " + token} {
		rec := doRequest(e, header)
		if rec.Code != http.StatusOK {
			t.Errorf("header %q: expected 200, got %d", header, rec.Code)
		}
		if rec.Body.String() != "u1" {
			t.Errorf("header %q: expected user ID u1 in context, got %q", header, rec.Body.String())
		}
	}
}

func TestGate_ProtectedRouteRejectsGarbageToken(t *testing.T) {
	e, _ := setupGate(t)

	rec := doRequest(e, "Bearer not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestGate_ProtectedRouteRejectsRevokedToken(t *testing.T) {
	e, sessions := setupGate(t)
	ctx := context.Background()

	token, err := sessions.Mint(ctx, "u1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := sessions.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	rec := doRequest(e, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", rec.Code)
	}
}

func TestGate_UnknownRoutePassesThrough(t *testing.T) {
	e, _ := setupGate(t)

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// The gate must not shadow the router's own 404 with a 401.
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected router 404 for unknown route, got %d", rec.Code)
	}
}

func TestUserID_EmptyWithoutAuthentication(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if got := UserID(c); got != "" {
		t.Errorf("expected empty user ID on unauthenticated context, got %q", got)
	}
}
