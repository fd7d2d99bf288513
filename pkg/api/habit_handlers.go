package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/suenolabs/sueno-api/pkg/habits"
	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/middleware"
)

// habitHandlers serves the /api/habits routes. Every route requires auth;
// the user ID always comes from the token, never from the payload.
type habitHandlers struct {
	habits *habits.Service
	authMW *middleware.AuthMiddleware
}

// RegisterRoutes implements RouteRegistrar.
func (h *habitHandlers) RegisterRoutes(router *mux.Router) {
	authed := func(fn http.HandlerFunc) http.Handler {
		return h.authMW.Handler(fn)
	}
	router.Handle("/api/habits", authed(h.complete)).Methods(http.MethodPost)
	router.Handle("/api/habits/today", authed(h.today)).Methods(http.MethodGet)
	router.Handle("/api/habits/stats", authed(h.stats)).Methods(http.MethodGet)
	router.Handle("/api/habits/history", authed(h.history)).Methods(http.MethodGet)
	router.Handle("/api/habits/{habit_id}", authed(h.uncomplete)).Methods(http.MethodDelete)
}

type habitRequest struct {
	HabitID string `json:"habit_id"`
}

func (h *habitHandlers) complete(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req habitRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.HabitID, "habit_id") {
		return
	}

	completion, err := h.habits.Complete(r.Context(), p.ID, req.HabitID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, completion)
}

func (h *habitHandlers) today(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	rows, err := h.habits.Today(r.Context(), p.ID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, rows)
}

func (h *habitHandlers) uncomplete(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	habitID, ok := httputil.ParsePathStringOrError(w, r, "habit_id")
	if !ok {
		return
	}

	if err := h.habits.Uncomplete(r.Context(), p.ID, habitID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "habit unmarked for today", nil)
}

func (h *habitHandlers) stats(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	stats, err := h.habits.GetStats(r.Context(), p.ID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

func (h *habitHandlers) history(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	days, err := httputil.ParseQueryInt(r, "days", 7)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	rows, err := h.habits.History(r.Context(), p.ID, days)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, rows)
}
