package http

import (
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
)

// legacyAliases are cookie names earlier versions of the client stack set
// alongside (or instead of) the session cookie. Logout clears every one of
// them so no stale credential survives a name change.
var legacyAliases = []string{"authToken", "firebaseToken", "apiUserId"}

// CookieStore writes and clears the session cookie with the full fixed flag
// set on every mutation. No route may set the cookie with a subset of flags.
type CookieStore struct {
	// Name of the session cookie.
	Name string

	// RootDomain is the explicit production root domain (e.g. ".example.com").
	// When set, deletions are issued both host-scoped and domain-scoped to
	// kill cookies written under either scope historically.
	RootDomain string

	// Secure marks cookies Secure. Enabled outside local development.
	Secure bool

	// MaxAge in seconds. Matches the wrapper token lifetime.
	MaxAge int
}

// Set writes the session cookie carrying a wrapper token. SameSite varies by
// route: Lax on login (the client arrives from the identity provider's
// redirect), Strict everywhere else.
func (s *CookieStore) Set(w http.ResponseWriter, value string, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   s.MaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: sameSite,
	})
}

// Delete expires the session cookie. Idempotent: clearing an absent cookie
// is not an error, it just re-sends the expired Set-Cookie.
func (s *CookieStore) Delete(w http.ResponseWriter) {
	s.expire(w, s.Name)
}

// ClearAll expires the session cookie and every legacy alias, under both
// the default host scope and the production root domain.
func (s *CookieStore) ClearAll(w http.ResponseWriter) {
	s.expire(w, s.Name)
	for _, name := range legacyAliases {
		s.expire(w, name)
	}
}

// Apply performs the cookie mutation a classification calls for.
func (s *CookieStore) Apply(w http.ResponseWriter, c domain.Classification, sameSite http.SameSite) {
	switch c.Cookie {
	case domain.CookieOverwrite:
		s.Set(w, c.NewValue, sameSite)
	case domain.CookieDelete:
		s.Delete(w)
	}
}

func (s *CookieStore) expire(w http.ResponseWriter, name string) {
	base := http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, &base)

	if s.RootDomain != "" {
		scoped := base
		scoped.Domain = s.RootDomain
		http.SetCookie(w, &scoped)
	}
}
