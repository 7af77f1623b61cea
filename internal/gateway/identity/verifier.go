package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/benxgao/certifai-gateway/pkg/cryptox"
)

// Verifier validates an identity token and returns its claims if legit.
// The session layer depends on this interface so tests can stub the provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// ProviderVerifier verifies RS256 identity tokens against the provider's
// published JWKS. It is read-only with respect to the provider; the only
// mutable state is the key set and the verification cache.
type ProviderVerifier struct {
	keys    *KeySet
	fetcher *JWKSFetcher
	cache   *Cache
	issuer  string
	aud     []string
}

// NewProviderVerifier wires a verifier from a fetcher-backed key set.
// cache may be nil to disable memoization.
func NewProviderVerifier(keys *KeySet, fetcher *JWKSFetcher, cache *Cache, issuer string, aud []string) *ProviderVerifier {
	return &ProviderVerifier{
		keys:    keys,
		fetcher: fetcher,
		cache:   cache,
		issuer:  issuer,
		aud:     aud,
	}
}

// Verify checks signature, expiry, issuer and audience of the identity
// token. All failures are mapped to the package taxonomy; it never panics
// for client-supplied input.
func (v *ProviderVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	fp := cryptox.FingerprintToken(token)
	if v.cache != nil {
		if claims, ok := v.cache.Get(fp); ok {
			return claims, nil
		}
	}

	if err := v.fetcher.Ensure(ctx, false); err != nil {
		return Claims{}, errors.Join(ErrUnknown, err)
	}

	claims, err := v.verifyOnce(token)
	if errors.Is(err, ErrNoKey) {
		// Unknown kid: the provider may have rotated keys since our last
		// fetch. Refresh once and retry before giving up.
		if ferr := v.fetcher.Ensure(ctx, true); ferr != nil {
			return Claims{}, errors.Join(ErrUnknown, ferr)
		}
		claims, err = v.verifyOnce(token)
	}
	if err != nil {
		if errors.Is(err, ErrNoKey) {
			// Still unknown after a forced refresh: not a key we ever issued for.
			return Claims{}, ErrInvalidSignature
		}
		return Claims{}, err
	}

	if v.cache != nil {
		v.cache.Put(fp, claims)
	}
	return claims, nil
}

func (v *ProviderVerifier) verifyOnce(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrNoKey
		}
		return v.keys.Get(kid)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoKey):
			return Claims{}, ErrNoKey
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSignature
		default:
			return Claims{}, errors.Join(ErrUnknown, err)
		}
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrInvalidSignature
	}
	if len(v.aud) > 0 && !audienceMatches(claims.Audience, v.aud) {
		return Claims{}, ErrInvalidSignature
	}

	return claims, nil
}

func audienceMatches(have jwt.ClaimStrings, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
