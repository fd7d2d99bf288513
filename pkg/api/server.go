// Package api wires the HTTP surface: routing, the middleware chain, and
// the request handlers for auth, habits, achievements, and the chatbot.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/suenolabs/sueno-api/pkg/achievements"
	"github.com/suenolabs/sueno-api/pkg/auth"
	"github.com/suenolabs/sueno-api/pkg/captcha"
	"github.com/suenolabs/sueno-api/pkg/chatbot"
	"github.com/suenolabs/sueno-api/pkg/googleauth"
	"github.com/suenolabs/sueno-api/pkg/habits"
	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/middleware"
	"github.com/suenolabs/sueno-api/pkg/observability"
	"github.com/suenolabs/sueno-api/pkg/users"
)

// Config carries the dependencies the server routes to.
type Config struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics

	Tokens       *auth.TokenManager
	Users        *users.Service
	Habits       *habits.Service
	Achievements *achievements.Service
	Chatbot      *chatbot.Client

	Captcha captcha.Verifier
	// Google may be nil when Google sign-in is not configured; the route
	// then answers 503.
	Google googleauth.Verifier

	// NewLimiter builds the limiter backing one route's budget. Defaults
	// to the in-memory sliding window; main swaps in Redis when available
	// so budgets hold across replicas.
	NewLimiter func(config middleware.RateLimitConfig, route string) middleware.Limiter

	AllowedOrigins []string
}

// Server is the HTTP API server.
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.NewLimiter == nil {
		cfg.NewLimiter = func(config middleware.RateLimitConfig, route string) middleware.Limiter {
			return middleware.NewSlidingWindowLimiter(config)
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		router: mux.NewRouter(),
		logger: cfg.Logger,
	}
	s.setupRoutes(cfg)

	// The global chain wraps the router itself so CORS preflights and
	// unmatched paths still pass through it.
	var h http.Handler = s.router
	if cfg.Metrics != nil {
		h = cfg.Metrics.Middleware(h)
	}
	h = httputil.CORSMiddleware(cfg.AllowedOrigins)(h)
	h = httputil.RecoveryMiddleware(cfg.Logger)(h)
	h = httputil.LoggingMiddleware(cfg.Logger)(h)
	h = httputil.RequestIDMiddleware(h)
	s.handler = h

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(cfg Config) {
	authMW := middleware.NewAuthMiddleware(cfg.Tokens, cfg.Metrics)

	limit := func(config middleware.RateLimitConfig, route string) *middleware.RateLimitMiddleware {
		return middleware.NewRateLimitMiddleware(cfg.NewLimiter(config, route), config, cfg.Metrics, route)
	}

	registrars := []RouteRegistrar{
		&authHandlers{
			users:         cfg.Users,
			captcha:       cfg.Captcha,
			google:        cfg.Google,
			logger:        cfg.Logger,
			authMW:        authMW,
			loginLimit:    limit(middleware.LoginRateLimit(), "login"),
			registerLimit: limit(middleware.RegisterRateLimit(), "register"),
			forgotLimit:   limit(middleware.PasswordResetRateLimit(), "forgot_password"),
			resetLimit:    limit(middleware.PasswordResetRateLimit(), "reset_password"),
		},
		&habitHandlers{habits: cfg.Habits, authMW: authMW},
		&achievementHandlers{achievements: cfg.Achievements, authMW: authMW},
		&chatbotHandlers{chatbot: cfg.Chatbot, authMW: authMW},
	}
	for _, registrar := range registrars {
		registrar.RegisterRoutes(s.router)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}
