package cryptox_test

import (
	"testing"

	"github.com/benxgao/certifai-gateway/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestDeriveSigningKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a, err := cryptox.DeriveSigningKey("secret", "session-wrapper-v1")
		require.NoError(t, err)
		b, err := cryptox.DeriveSigningKey("secret", "session-wrapper-v1")
		require.NoError(t, err)

		require.Len(t, a, cryptox.SigningKeySize)
		require.Equal(t, a, b)
	})

	t.Run("info label separates keys", func(t *testing.T) {
		a, err := cryptox.DeriveSigningKey("secret", "session-wrapper-v1")
		require.NoError(t, err)
		b, err := cryptox.DeriveSigningKey("secret", "session-wrapper-v2")
		require.NoError(t, err)

		require.NotEqual(t, a, b)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := cryptox.DeriveSigningKey("", "anything")
		require.ErrorIs(t, err, cryptox.ErrEmptySecret)
	})
}

func TestGenerateToken(t *testing.T) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	other, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	a := cryptox.FingerprintToken("token-a")
	b := cryptox.FingerprintToken("token-a")
	c := cryptox.FingerprintToken("token-b")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 43)
}
