package middleware

import (
	"net/http"
	"strings"

	"github.com/suenolabs/sueno-api/pkg/auth"
	"github.com/suenolabs/sueno-api/pkg/contextkeys"
	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/observability"
)

// AuthMiddleware validates bearer tokens and attaches the caller's
// principal to the request context.
type AuthMiddleware struct {
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware. metrics may
// be nil.
func NewAuthMiddleware(tokens *auth.TokenManager, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, metrics: metrics}
}

// Handler wraps an HTTP handler with authentication. Missing, malformed,
// and invalid credentials all produce the same 401 so callers can't probe
// which part failed.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.countValidation("missing")
			httputil.WriteUnauthorized(w, "invalid or missing credentials")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.countValidation("malformed")
			httputil.WriteUnauthorized(w, "invalid or missing credentials")
			return
		}

		principal, err := m.tokens.Validate(parts[1])
		if err != nil {
			m.countValidation("invalid")
			httputil.WriteUnauthorized(w, "invalid or missing credentials")
			return
		}
		m.countValidation("success")

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) countValidation(outcome string) {
	if m.metrics != nil {
		m.metrics.TokenValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

// GetPrincipal extracts the authenticated principal from the request.
// The second return is false when the request never passed AuthMiddleware.
func GetPrincipal(r *http.Request) (auth.Principal, bool) {
	v := contextkeys.Principal(r.Context())
	if v == nil {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// RequireRole creates middleware that rejects principals without the given
// role with 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r)
			if !ok {
				httputil.WriteUnauthorized(w, "invalid or missing credentials")
				return
			}
			if p.Role != role {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
