package http

import (
	"io"
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// ProxyHandler forwards /api/... traffic to the backend with the session's
// identity token as the bearer credential, relaying the backend's status
// and body verbatim. It sits behind SessionMiddleware, so the context
// always carries a verified token by the time it runs.
type ProxyHandler struct {
	Backend *upstream.Client
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, ok := httpx.IdentityTokenFromContext(ctx)
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error: "unauthenticated",
		})
		return
	}

	path := r.PathValue("path")
	resp, err := h.Backend.Forward(ctx, r, "api/"+path, token)
	if err != nil {
		status := http.StatusBadGateway
		msg := "backend unavailable"
		if upstream.IsTimeout(err) {
			status = http.StatusGatewayTimeout
			msg = "backend timed out"
		}
		log.Error("proxy forward failed", "path", path, "error", err)
		httpx.WriteJSON(w, status, httpx.ErrorResponse{Error: msg})
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn("proxy body relay interrupted", "path", path, "error", err)
	}
}
