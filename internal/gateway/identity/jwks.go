package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// JWK is a public verification key in JSON Web Key format (RFC 7517).
// Identity providers publish RSA keys, so only the RSA fields are modelled.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)
}

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

var ErrNoKey = errors.New("identity: key not found")

// KeySet holds the provider's public keys in memory. Thread-safe; refreshed
// wholesale whenever the fetcher pulls a new JWKS.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]*rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]*rsa.PublicKey)}
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// ResetFromJWKS replaces all keys from a freshly fetched JWKS.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	newMap := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := parseRSAJWK(j)
		if err != nil {
			return err
		}
		newMap[j.Kid] = key
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = newMap

	return nil
}

func parseRSAJWK(j JWK) (*rsa.PublicKey, error) {
	if j.Kty != "RSA" {
		return nil, fmt.Errorf("identity: unsupported kty %q", j.Kty)
	}

	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nb)
	e := new(big.Int).SetBytes(eb).Int64()
	return &rsa.PublicKey{N: n, E: int(e)}, nil
}

// JWKSFetcher pulls the provider's JWKS over HTTP on a TTL, deduplicating
// concurrent refreshes with singleflight so a burst of unknown-kid requests
// causes one fetch, not one per request.
type JWKSFetcher struct {
	URL        string
	HTTPClient *http.Client
	TTL        time.Duration

	keys *KeySet

	mu        sync.Mutex
	fetchedAt time.Time
	group     singleflight.Group
}

// NewJWKSFetcher creates a fetcher populating the given KeySet.
func NewJWKSFetcher(url string, keys *KeySet, ttl time.Duration) *JWKSFetcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWKSFetcher{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		TTL:        ttl,
		keys:       keys,
	}
}

// Ensure makes sure the KeySet holds keys no older than the TTL, fetching
// if needed. force skips the freshness check (used after an unknown kid).
func (f *JWKSFetcher) Ensure(ctx context.Context, force bool) error {
	if !force && f.fresh() && f.keys.IsReady() {
		return nil
	}

	_, err, _ := f.group.Do("jwks", func() (any, error) {
		// Re-check under the flight: a concurrent caller may have refreshed.
		if !force && f.fresh() && f.keys.IsReady() {
			return nil, nil
		}
		return nil, f.fetch(ctx)
	})
	return err
}

func (f *JWKSFetcher) fresh() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.fetchedAt.IsZero() && time.Since(f.fetchedAt) < f.TTL
}

func (f *JWKSFetcher) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("identity: build jwks request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("identity: decode jwks: %w", err)
	}

	if err := f.keys.ResetFromJWKS(jwks); err != nil {
		return err
	}

	f.mu.Lock()
	f.fetchedAt = time.Now()
	f.mu.Unlock()

	return nil
}
