package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/suenolabs/sueno-api/pkg/achievements"
	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/middleware"
)

// achievementHandlers serves the achievement routes. The catalog is
// public; unlocks belong to the authenticated caller.
type achievementHandlers struct {
	achievements *achievements.Service
	authMW       *middleware.AuthMiddleware
}

// RegisterRoutes implements RouteRegistrar.
func (h *achievementHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/api/user/achievements", h.authMW.Handler(http.HandlerFunc(h.listMine))).Methods(http.MethodGet)
	router.Handle("/api/achievements", h.authMW.Handler(http.HandlerFunc(h.unlock))).Methods(http.MethodPost)
	router.HandleFunc("/api/achievements/all", h.listAll).Methods(http.MethodGet)
}

func (h *achievementHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	unlocks, err := h.achievements.ListForUser(r.Context(), p.ID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, unlocks)
}

type unlockRequest struct {
	AchievementID string `json:"achievement_id"`
}

func (h *achievementHandlers) unlock(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req unlockRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.AchievementID, "achievement_id") {
		return
	}

	unlock, already, err := h.achievements.UnlockForUser(r.Context(), p.ID, req.AchievementID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if already {
		httputil.WriteSuccessMessage(w, "Achievement already unlocked", unlock)
		return
	}
	httputil.WriteCreated(w, httputil.SuccessResponse{
		Message: "Achievement unlocked successfully",
		Data:    unlock,
	})
}

func (h *achievementHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.achievements.ListAll(r.Context())
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, all)
}
