package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SigningKeySize is the derived HMAC key length in bytes.
const SigningKeySize = 32

// ErrEmptySecret reports a missing or empty input secret.
var ErrEmptySecret = errors.New("cryptox: empty secret")

// DeriveSigningKey expands a configured secret into a fixed-length HMAC
// signing key using HKDF-SHA256. The raw secret never signs anything
// directly, so rotating the info label invalidates all outstanding tokens
// without touching the secret itself.
func DeriveSigningKey(secret, info string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, SigningKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive signing key: %w", err)
	}

	return key, nil
}
