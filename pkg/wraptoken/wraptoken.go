// Package wraptoken signs and verifies the short-lived wrapper tokens that
// carry an upstream identity token inside the session cookie. The wrapper's
// expiry is a soft boundary: an expired wrapper can be re-minted server-side
// as long as the embedded identity token still verifies on its own.
package wraptoken

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/benxgao/certifai-gateway/pkg/cryptox"
)

// DefaultTTL is the wrapper token lifetime. It matches the session cookie
// max-age so a cookie past max-age always carries an expired wrapper.
const DefaultTTL = time.Hour

// keyInfo is the HKDF info label for the wrapper signing key. Bump the
// version suffix to invalidate every outstanding wrapper at once.
const keyInfo = "session-wrapper-v1"

var (
	// ErrNoSecret reports a missing signing secret. This is a configuration
	// error: no token may be minted or accepted without it.
	ErrNoSecret = errors.New("wraptoken: no signing secret configured")

	ErrMalformed  = errors.New("wraptoken: malformed token")
	ErrInvalidSig = errors.New("wraptoken: invalid signature")
	ErrExpired    = errors.New("wraptoken: token expired")
)

// Claims are the wrapper token claims. The embedded identity token rides in
// a private claim; everything else is standard JWT bookkeeping.
type Claims struct {
	jwt.RegisteredClaims

	// IdentityToken is the upstream provider token this wrapper carries.
	IdentityToken string `json:"tok"`
}

// Codec signs and verifies wrapper tokens with a derived HS256 key.
type Codec struct {
	key []byte
	ttl time.Duration
}

// New builds a Codec from the configured secret. The secret is expanded via
// HKDF so the raw value never signs directly. An empty secret returns
// ErrNoSecret.
func New(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key, err := cryptox.DeriveSigningKey(secret, keyInfo)
	if err != nil {
		return nil, ErrNoSecret
	}

	return &Codec{key: key, ttl: ttl}, nil
}

// TTL returns the configured wrapper lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode mints a wrapper for the given identity token with a fresh iat/jti
// and the configured expiry.
func (c *Codec) Encode(identityToken string) (string, error) {
	return c.EncodeAt(identityToken, time.Now().UTC())
}

// EncodeAt is Encode with an explicit issue time, for tests and refresh
// paths that want iat to match the classification instant.
func (c *Codec) EncodeAt(identityToken string, now time.Time) (string, error) {
	if len(c.key) == 0 {
		return "", ErrNoSecret
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        NewJTI(),
		},
		IdentityToken: identityToken,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the claims. Failures are
// mapped to the package sentinels so callers can branch on expiry
// specifically: only ErrExpired permits the UnsafeDecode recovery path.
func (c *Codec) Decode(token string) (Claims, error) {
	if len(c.key) == 0 {
		return Claims{}, ErrNoSecret
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// Signature checked out; only the wrapper's own lifetime ran out.
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	return claims, nil
}

// UnsafeDecode base64-decodes the payload segment WITHOUT verifying the
// signature. It exists for exactly one caller: the refresh path, after
// Decode returned ErrExpired, to recover the embedded identity token for
// independent re-verification. The returned claims must never be trusted
// for authorization directly.
func UnsafeDecode(token string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
