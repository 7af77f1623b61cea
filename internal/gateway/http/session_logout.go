package http

import (
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
)

// LogoutHandler serves POST /v1/session/logout. Best-effort cleanup, always
// reports done: the cookie and every legacy alias are cleared under both
// domain scopes, the verification cache is reset, and the response is 200
// even if something internal went sideways. A client must never get stuck
// in a "logout failed" state.
type LogoutHandler struct {
	Sessions *service.SessionService
	Cookies  *CookieStore
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Cookies.ClearAll(w)
	h.Sessions.Reset(r.Context())

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetHandler serves POST /v1/session/reset: the explicit emergency escape
// hatch. It drops the whole verification cache and reports the before/after
// sizes. Idempotent; safe to call at any time.
type ResetHandler struct {
	Sessions *service.SessionService
}

type resetResponse struct {
	Success bool `json:"success"`
	Before  int  `json:"before"`
	After   int  `json:"after"`
}

func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	before, after := h.Sessions.Reset(r.Context())
	httpx.WriteJSON(w, http.StatusOK, resetResponse{
		Success: true,
		Before:  before,
		After:   after,
	})
}
