package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// LoginHandler serves POST /v1/session/login. The client presents a freshly
// minted identity token as a bearer credential; a successful exchange sets
// the session cookie and reports the resolved internal user id.
type LoginHandler struct {
	Sessions *service.SessionService
	Cookies  *CookieStore
}

type loginResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"userId,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, loginResponse{
			Error: "missing bearer token",
		})
		return
	}

	res, err := h.Sessions.Login(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			httpx.WriteJSON(w, http.StatusUnauthorized, loginResponse{
				Error: "identity token expired",
			})
		case errors.Is(err, service.ErrInvalidToken):
			httpx.WriteJSON(w, http.StatusUnauthorized, loginResponse{
				Error: "identity token invalid",
			})
		default:
			log.Error("login failed", "error", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, loginResponse{
				Error: "internal error",
			})
		}
		return
	}

	// Lax, not Strict: the login request typically lands on a redirect back
	// from the identity provider.
	h.Cookies.Set(w, res.Wrapper, http.SameSiteLaxMode)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Success:  true,
		UserID:   res.UserID,
		Fallback: res.Fallback,
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
