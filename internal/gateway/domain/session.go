package domain

// SessionState is the per-request classification of a presented session
// cookie. Every request computes it fresh; nothing is cached across requests.
type SessionState string

const (
	// SessionFresh: wrapper valid, embedded identity token valid.
	SessionFresh SessionState = "authenticated_fresh"

	// SessionWrapperRefreshed: the wrapper expired but the embedded identity
	// token still verifies, so a replacement wrapper was minted in-request.
	SessionWrapperRefreshed SessionState = "wrapper_refreshed"

	// SessionNeedsReauth: the identity token itself is expired or invalid.
	// Only the client can obtain a new one.
	SessionNeedsReauth SessionState = "needs_client_reauth"

	// SessionUnauthenticated: no cookie, bad signature, or malformed beyond
	// recovery.
	SessionUnauthenticated SessionState = "unauthenticated"
)

// CookieAction tells the HTTP layer what to do with the session cookie.
// Every classification path ends in exactly one of these; there are no
// partial cookie states.
type CookieAction int

const (
	CookieKeep CookieAction = iota
	CookieOverwrite
	CookieDelete
)

// Classification is the request-scoped result of classifying a session
// cookie. It is never persisted.
type Classification struct {
	State SessionState

	// UserID is the internal user id from the identity claims, set for the
	// two authenticated states.
	UserID string

	// IdentityToken is the verified upstream token, set for the two
	// authenticated states. Proxy handlers forward it downstream.
	IdentityToken string

	// Cookie is the mutation the HTTP layer must apply.
	Cookie CookieAction

	// NewValue is the replacement wrapper token when Cookie == CookieOverwrite.
	NewValue string
}
