package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/suenolabs/sueno-api/pkg/auth"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", time.Hour)
}

func okHandler(t *testing.T, wantPrincipal *auth.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantPrincipal != nil {
			p, ok := GetPrincipal(r)
			if !ok {
				t.Error("principal missing from request context")
			} else if p != *wantPrincipal {
				t.Errorf("principal = %+v, want %+v", p, *wantPrincipal)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := newTestTokenManager()
	p := auth.Principal{ID: "42", Email: "a@b.com", Role: auth.RoleUser, Name: "A"}
	token, err := tm.Issue(p)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m := NewAuthMiddleware(tm, nil)
	handler := m.Handler(okHandler(t, &p))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tm := newTestTokenManager()
	m := NewAuthMiddleware(tm, nil)
	handler := m.Handler(okHandler(t, nil))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-token"},
		{"bare bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", -time.Minute)
	token, err := tm.Issue(auth.Principal{ID: "42"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m := NewAuthMiddleware(tm, nil)
	handler := m.Handler(okHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tm := newTestTokenManager()
	m := NewAuthMiddleware(tm, nil)

	adminOnly := m.Handler(RequireRole(auth.RoleAdmin)(okHandler(t, nil)))

	issue := func(role string) string {
		token, err := tm.Issue(auth.Principal{ID: "1", Role: role})
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		return token
	}

	t.Run("admin allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
		req.Header.Set("Authorization", "Bearer "+issue(auth.RoleAdmin))
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
		req.Header.Set("Authorization", "Bearer "+issue(auth.RoleUser))
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("unauthenticated gets 401 not 403", func(t *testing.T) {
		handler := RequireRole(auth.RoleAdmin)(okHandler(t, nil))
		req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
