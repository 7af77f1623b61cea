package http

import (
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// SessionMiddleware classifies the session cookie, applies the resulting
// cookie mutation, and either rejects the request or forwards it with the
// session's user id and identity token in the context. Handlers behind it
// can assume an authenticated caller.
func SessionMiddleware(sessions *service.SessionService, cookies *CookieStore) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			c, err := sessions.Classify(ctx, cookieValue(r, cookies.Name))
			if err != nil {
				slogx.FromContext(ctx).Error("session classification failed", "error", err)
				cookies.Delete(w)
				httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
					Error: "internal error",
				})
				return
			}

			cookies.Apply(w, c, http.SameSiteStrictMode)

			switch c.State {
			case domain.SessionFresh, domain.SessionWrapperRefreshed:
				ctx = httpx.ContextWithSession(ctx, c.UserID, c.IdentityToken)
				next.ServeHTTP(w, r.WithContext(ctx))

			case domain.SessionNeedsReauth:
				httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
					Error: "re-authentication required",
				})

			default:
				httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
					Error: "unauthenticated",
				})
			}
		})
	}
}
