package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(DefaultTokenLength)
	require.NoError(t, err)
	assert.Len(t, token, DefaultTokenLength)
	for _, r := range token {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestGenerateToken_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken(16)
		require.NoError(t, err)
		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestGenerateToken_InvalidLength(t *testing.T) {
	_, err := GenerateToken(0)
	assert.Error(t, err)
}

func TestDeriveCredential(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		DeriveCredential("abc"))
	assert.Equal(t, DeriveCredential("esp32-01"), DeriveCredential("esp32-01"))
	assert.NotEqual(t, DeriveCredential("esp32-01"), DeriveCredential("esp32-02"))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("esp32-01", DeriveCredential("esp32-01")))
	assert.False(t, Matches("esp32-01", DeriveCredential("esp32-02")))
	assert.False(t, Matches("esp32-01", ""))
}
