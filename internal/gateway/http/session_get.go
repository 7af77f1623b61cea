package http

import (
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// SessionHandler serves GET /v1/session: read-only introspection of the
// presented cookie. It reports the classification but never mutates the
// cookie; only the refresh endpoint rotates or deletes it.
type SessionHandler struct {
	Sessions *service.SessionService
	Cookies  *CookieStore
}

type sessionResponse struct {
	Success        bool   `json:"success"`
	State          string `json:"state"`
	UserID         string `json:"userId,omitempty"`
	RequiresReauth bool   `json:"requiresReauth,omitempty"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.Sessions.Classify(ctx, cookieValue(r, h.Cookies.Name))
	if err != nil {
		slogx.FromContext(ctx).Error("session classification failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error: "internal error",
		})
		return
	}

	authenticated := c.State == domain.SessionFresh || c.State == domain.SessionWrapperRefreshed
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Success:        authenticated,
		State:          string(c.State),
		UserID:         c.UserID,
		RequiresReauth: c.State == domain.SessionNeedsReauth,
	})
}
