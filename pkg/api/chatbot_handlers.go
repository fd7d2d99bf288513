package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/suenolabs/sueno-api/pkg/chatbot"
	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/middleware"
)

// chatbotHandlers proxies questions from authenticated users to the
// generative model.
type chatbotHandlers struct {
	chatbot *chatbot.Client
	authMW  *middleware.AuthMiddleware
}

// RegisterRoutes implements RouteRegistrar.
func (h *chatbotHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/api/chatbot/ask", h.authMW.Handler(http.HandlerFunc(h.ask))).Methods(http.MethodPost)
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Response string `json:"response"`
}

func (h *chatbotHandlers) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Prompt, "prompt") {
		return
	}
	if h.chatbot == nil || !h.chatbot.Enabled() {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "chatbot is not configured")
		return
	}

	answer, err := h.chatbot.Ask(r.Context(), req.Prompt)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, askResponse{Response: answer})
}
