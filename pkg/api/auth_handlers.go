package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/suenolabs/sueno-api/pkg/auth"
	"github.com/suenolabs/sueno-api/pkg/captcha"
	"github.com/suenolabs/sueno-api/pkg/googleauth"
	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/middleware"
	"github.com/suenolabs/sueno-api/pkg/observability"
	"github.com/suenolabs/sueno-api/pkg/users"
)

const minPasswordLength = 6

// authHandlers serves the /api/auth routes: login, registration, the
// password reset flow, the caller's own profile, and admin user CRUD.
type authHandlers struct {
	users   *users.Service
	captcha captcha.Verifier
	google  googleauth.Verifier
	logger  *observability.Logger
	authMW  *middleware.AuthMiddleware

	loginLimit    *middleware.RateLimitMiddleware
	registerLimit *middleware.RateLimitMiddleware
	forgotLimit   *middleware.RateLimitMiddleware
	resetLimit    *middleware.RateLimitMiddleware
}

// RegisterRoutes implements RouteRegistrar.
func (h *authHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/api/auth/login", h.loginLimit.Handler(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	router.Handle("/api/auth/register", h.registerLimit.Handler(http.HandlerFunc(h.register))).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/google-login", h.googleLogin).Methods(http.MethodPost)
	router.Handle("/api/auth/forgot-password", h.forgotLimit.Handler(http.HandlerFunc(h.forgotPassword))).Methods(http.MethodPost)
	router.Handle("/api/auth/reset-password", h.resetLimit.Handler(http.HandlerFunc(h.resetPassword))).Methods(http.MethodPost)

	router.Handle("/api/auth/me", h.authMW.Handler(http.HandlerFunc(h.me))).Methods(http.MethodGet)
	router.Handle("/api/auth/profile", h.authMW.Handler(http.HandlerFunc(h.getProfile))).Methods(http.MethodGet)
	router.Handle("/api/auth/profile", h.authMW.Handler(http.HandlerFunc(h.updateProfile))).Methods(http.MethodPut)

	admin := func(fn http.HandlerFunc) http.Handler {
		return h.authMW.Handler(middleware.RequireRole(auth.RoleAdmin)(fn))
	}
	router.Handle("/api/auth/users", admin(h.listUsers)).Methods(http.MethodGet)
	router.Handle("/api/auth/users/{user_id}", admin(h.getUser)).Methods(http.MethodGet)
	router.Handle("/api/auth/users/{user_id}", admin(h.updateUser)).Methods(http.MethodPut)
	router.Handle("/api/auth/users/{user_id}", admin(h.deleteUser)).Methods(http.MethodDelete)
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptcha_token"`
}

func (h *authHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireEmail(w, req.Email, "email") {
		return
	}
	if !httputil.RequireMinLength(w, req.Password, "password", minPasswordLength) {
		return
	}
	if err := h.captcha.Verify(r.Context(), req.RecaptchaToken); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, session)
}

type registerRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FullName       string  `json:"full_name"`
	Age            *int    `json:"age,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	RecaptchaToken string  `json:"recaptcha_token"`
}

func (h *authHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireEmail(w, req.Email, "email") {
		return
	}
	if !httputil.RequireMinLength(w, req.Password, "password", minPasswordLength) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.FullName, "full_name") {
		return
	}
	if err := h.captcha.Verify(r.Context(), req.RecaptchaToken); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), users.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Age:      req.Age,
		Phone:    req.Phone,
		Gender:   req.Gender,
	})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, user)
}

type googleLoginRequest struct {
	GoogleToken string `json:"google_token"`
}

func (h *authHandlers) googleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}

	var req googleLoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.GoogleToken, "google_token") {
		return
	}

	identity, err := h.google.Verify(r.Context(), req.GoogleToken)
	if err != nil {
		h.logger.WithError(err).Info("google token rejected")
		httputil.WriteUnauthorized(w, "invalid google token")
		return
	}

	session, err := h.users.GoogleLogin(r.Context(), identity)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, session)
}

type forgotPasswordRequest struct {
	Email          string `json:"email"`
	RecaptchaToken string `json:"recaptcha_token"`
}

func (h *authHandlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireEmail(w, req.Email, "email") {
		return
	}
	if err := h.captcha.Verify(r.Context(), req.RecaptchaToken); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if err := h.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "reset code sent", nil)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *authHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireEmail(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}
	if !httputil.RequireMinLength(w, req.NewPassword, "new_password", minPasswordLength) {
		return
	}

	if err := h.users.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "password updated", nil)
}

func (h *authHandlers) me(w http.ResponseWriter, r *http.Request) {
	id, ok := principalID(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *authHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)
	id, ok := principalID(w, r)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(r.Context(), id, p.Email)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, profile)
}

func (h *authHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)
	id, ok := principalID(w, r)
	if !ok {
		return
	}

	var update users.ProfileUpdate
	if !httputil.ParseJSONOrError(w, r, &update) {
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), id, p.Email, update)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, profile)
}

func (h *authHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (h *authHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *authHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	var input users.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	user, err := h.users.Update(r.Context(), id, input)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *authHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "user deleted", nil)
}

// principalID returns the caller's numeric account ID. Tokens always carry
// the ID as a decimal string; anything else fails auth.
func principalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	p, ok := middleware.GetPrincipal(r)
	if !ok {
		httputil.WriteUnauthorized(w, "invalid or missing credentials")
		return 0, false
	}
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid or missing credentials")
		return 0, false
	}
	return id, true
}
