package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/benxgao/certifai-gateway/internal/gateway/identity"
	"github.com/benxgao/certifai-gateway/internal/gateway/marketing"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/internal/gateway/store"
	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *identity.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store     store.Store
	Sessions  *service.SessionService
	Cookies   *CookieStore
	Backend   *upstream.Client
	Marketing *marketing.Client
}

func NewRouter(
	keys *identity.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerProxy()
	r.registerMarketing()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	// POST /login - strict rate limit (token exchange abuse)
	loginHandler := &LoginHandler{Sessions: r.Sessions, Cookies: r.Cookies}
	r.Mux.Handle("POST /v1/session/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /refresh - moderate rate limit; no body, cookie is the input
	refreshHandler := &RefreshHandler{Sessions: r.Sessions, Cookies: r.Cookies}
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /session - read-only introspection, clients may poll it
	sessionHandler := &SessionHandler{Sessions: r.Sessions, Cookies: r.Cookies}
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(sessionHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /logout - always succeeds, moderate limit
	logoutHandler := &LogoutHandler{Sessions: r.Sessions, Cookies: r.Cookies}
	r.Mux.Handle("POST /v1/session/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /reset - the emergency escape hatch
	resetHandler := &ResetHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/session/reset",
		httpx.Chain(resetHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerProxy() {
	// All methods, any /api subpath. Session auth first, then a per-user
	// limit so one noisy client can't starve the backend for everyone.
	proxyHandler := &ProxyHandler{Backend: r.Backend}
	r.Mux.Handle("/api/{path...}",
		httpx.Chain(proxyHandler,
			SessionMiddleware(r.Sessions, r.Cookies),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerMarketing() {
	marketingHandler := &MarketingHandler{Marketing: r.Marketing}
	r.Mux.Handle("POST /v1/marketing/subscribe",
		httpx.Chain(marketingHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
}
