package http

import (
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// RefreshHandler serves POST /v1/session/refresh. No body; the cookie is
// the whole input. A still-valid session answers 200, an expired wrapper
// over a valid identity token answers 200 with a replacement cookie, and
// everything else answers 401 with the cookie gone.
type RefreshHandler struct {
	Sessions *service.SessionService
	Cookies  *CookieStore
}

type refreshResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	UserID         string `json:"userId,omitempty"`
	RequiresReauth bool   `json:"requiresReauth,omitempty"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	c, err := h.Sessions.Classify(ctx, cookieValue(r, h.Cookies.Name))
	if err != nil {
		log.Error("session classification failed", "error", err)
		h.Cookies.Delete(w)
		httpx.WriteJSON(w, http.StatusInternalServerError, refreshResponse{
			Error: "internal error",
		})
		return
	}

	h.Cookies.Apply(w, c, http.SameSiteStrictMode)

	switch c.State {
	case domain.SessionFresh:
		httpx.WriteJSON(w, http.StatusOK, refreshResponse{
			Success: true,
			Message: "session valid",
			UserID:  c.UserID,
		})

	case domain.SessionWrapperRefreshed:
		httpx.WriteJSON(w, http.StatusOK, refreshResponse{
			Success: true,
			Message: "session refreshed",
			UserID:  c.UserID,
		})

	case domain.SessionNeedsReauth:
		httpx.WriteJSON(w, http.StatusUnauthorized, refreshResponse{
			Error:          "re-authentication required",
			RequiresReauth: true,
		})

	default:
		httpx.WriteJSON(w, http.StatusUnauthorized, refreshResponse{
			Error: "unauthenticated",
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
