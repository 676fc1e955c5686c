package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/pkg/cryptox"
)

func TestGenerateTokenLengths(t *testing.T) {
	for _, size := range []int{cryptox.TokenSize128, cryptox.TokenSize256} {
		token, err := cryptox.GenerateToken(size)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, size)
	}
}

func TestGenerateTokenRejectsBadSize(t *testing.T) {
	_, err := cryptox.GenerateToken(0)
	assert.Error(t, err)

	_, err = cryptox.GenerateToken(-1)
	assert.Error(t, err)
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		token, err := cryptox.GenerateToken(cryptox.TokenSize128)
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token generated")
		seen[token] = true
	}
}

func TestFingerprintTokenDeterministic(t *testing.T) {
	token := cryptox.MustGenerateToken(cryptox.TokenSize256)

	a := cryptox.FingerprintToken(token)
	b := cryptox.FingerprintToken(token)
	assert.Equal(t, a, b)
	assert.NotEqual(t, token, a)

	// SHA-256 output is 32 bytes -> 43 base64url chars.
	assert.Len(t, a, 43)
}

func TestFingerprintTokenDiffers(t *testing.T) {
	a := cryptox.FingerprintToken("token-a")
	b := cryptox.FingerprintToken("token-b")
	assert.NotEqual(t, a, b)
}
