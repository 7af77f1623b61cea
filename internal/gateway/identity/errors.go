package identity

import "errors"

// Verification failure taxonomy. Every failure a client can trigger is
// normalized to one of these; the provider SDK's errors never escape.
var (
	// ErrExpired: the identity token's own validity window has passed. Not
	// recoverable server-side; the client must re-authenticate.
	ErrExpired = errors.New("identity: token expired")

	// ErrInvalidSignature: bad signature, unknown key, or malformed token.
	ErrInvalidSignature = errors.New("identity: invalid signature")

	// ErrUnknown: an unexpected failure (provider unreachable, key fetch
	// failed). Callers fail closed on this.
	ErrUnknown = errors.New("identity: verification failed")
)
