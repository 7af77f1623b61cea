package wraptoken_test

import (
	"strings"
	"testing"
	"time"

	"github.com/benxgao/certifai-gateway/pkg/wraptoken"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-wrapper-secret"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := codec.Encode("identity-token-abc")
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "identity-token-abc", claims.IdentityToken)
	require.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	require.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestDecodeExpired(t *testing.T) {
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	issued := time.Now().UTC().Add(-2 * time.Hour)
	token, err := codec.EncodeAt("identity-token-abc", issued)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, wraptoken.ErrExpired)
}

func TestDecodeWrongKey(t *testing.T) {
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)
	other, err := wraptoken.New("a-different-secret", time.Hour)
	require.NoError(t, err)

	token, err := codec.Encode("identity-token-abc")
	require.NoError(t, err)

	_, err = other.Decode(token)
	require.ErrorIs(t, err, wraptoken.ErrInvalidSig)
}

func TestDecodeMalformed(t *testing.T) {
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	for _, tc := range []string{"", "garbage", "a.b", "a.b.c.d", "!!!.###.$$$"} {
		_, err := codec.Decode(tc)
		require.Error(t, err, "input %q", tc)
		require.NotErrorIs(t, err, wraptoken.ErrExpired, "input %q must not look expired", tc)
	}
}

func TestExpiredWrapperSignedWithWrongKeyIsNotExpired(t *testing.T) {
	// Signature failure must win over expiry: the recovery path may only
	// trigger for tokens we actually minted.
	other, err := wraptoken.New("a-different-secret", time.Hour)
	require.NoError(t, err)
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := other.EncodeAt("identity-token-abc", time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, wraptoken.ErrInvalidSig)
}

func TestUnsafeDecode(t *testing.T) {
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("recovers payload from expired wrapper", func(t *testing.T) {
		token, err := codec.EncodeAt("identity-token-abc", time.Now().UTC().Add(-2*time.Hour))
		require.NoError(t, err)

		claims, err := wraptoken.UnsafeDecode(token)
		require.NoError(t, err)
		require.Equal(t, "identity-token-abc", claims.IdentityToken)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := wraptoken.UnsafeDecode("not-a-jwt")
		require.ErrorIs(t, err, wraptoken.ErrMalformed)
	})
}

func TestNoSecret(t *testing.T) {
	_, err := wraptoken.New("", time.Hour)
	require.ErrorIs(t, err, wraptoken.ErrNoSecret)

	var zero wraptoken.Codec
	_, err = zero.Encode("identity-token-abc")
	require.ErrorIs(t, err, wraptoken.ErrNoSecret)
	_, err = zero.Decode("a.b.c")
	require.ErrorIs(t, err, wraptoken.ErrNoSecret)
}

func TestFreshJTIPerMint(t *testing.T) {
	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	first, err := codec.Encode("identity-token-abc")
	require.NoError(t, err)
	second, err := codec.Encode("identity-token-abc")
	require.NoError(t, err)

	a, err := codec.Decode(first)
	require.NoError(t, err)
	b, err := codec.Decode(second)
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, a.IdentityToken, b.IdentityToken)
}
