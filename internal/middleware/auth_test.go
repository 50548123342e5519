package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
)

type stubVerifier struct {
	user user.User
	err  error
}

func (s stubVerifier) Verify(_ context.Context, token string) (user.User, error) {
	if s.err != nil {
		return user.User{}, s.err
	}
	if token != "good-token" {
		return user.User{}, errors.InvalidToken(nil)
	}
	return s.user, nil
}

func okHandler(t *testing.T, wantActor user.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Error("actor missing from context")
		}
		if actor.ID != wantActor.ID {
			t.Errorf("actor id = %d, want %d", actor.ID, wantActor.ID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	trader := user.User{ID: 7, Username: "trader1", Role: user.RoleTrader}
	mw := NewAuthMiddleware(stubVerifier{user: trader}, logging.NewDefault("test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw.Handler(okHandler(t, trader)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(stubVerifier{}, logging.NewDefault("test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	rec := httptest.NewRecorder()

	mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without credentials")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	mw := NewAuthMiddleware(stubVerifier{}, logging.NewDefault("test"), nil)

	for _, header := range []string{"good-token", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status %d, want 401", header, rec.Code)
		}
	}
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	mw := NewAuthMiddleware(stubVerifier{}, logging.NewDefault("test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()

	mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareSkipsConfiguredPaths(t *testing.T) {
	mw := NewAuthMiddleware(stubVerifier{}, logging.NewDefault("test"), []string{"/api/auth/login"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()

	ran := false
	mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	})).ServeHTTP(rec, req)

	if !ran {
		t.Fatal("skip path must bypass authentication")
	}
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole(user.Role.CanManageUsers)

	master := user.User{ID: 1, Role: user.RoleMaster}
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = req.WithContext(WithActor(req.Context(), master))
	rec := httptest.NewRecorder()
	gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("master: status %d, want 200", rec.Code)
	}

	trader := user.User{ID: 2, Role: user.RoleTrader}
	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = req.WithContext(WithActor(req.Context(), trader))
	rec = httptest.NewRecorder()
	gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("trader must not pass a master gate")
	})).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("trader: status %d, want 403", rec.Code)
	}
}
