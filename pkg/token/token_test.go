package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint_UniqueAndOpaque(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := Mint()
		require.NoError(t, err)
		assert.Len(t, tok, 32)
		assert.False(t, seen[tok], "minted duplicate token")
		seen[tok] = true
	}
}

func TestEqual(t *testing.T) {
	tok := MustMint()

	assert.True(t, Equal(tok, tok))
	assert.False(t, Equal(tok, MustMint()))
	assert.False(t, Equal(tok, tok[:16]))
	assert.False(t, Equal("", tok))
}

func TestInternalCredential(t *testing.T) {
	cred := NewInternalCredential()

	assert.NoError(t, cred.Verify(cred.Secret()))
	assert.ErrorIs(t, cred.Verify("not-the-secret"), ErrTokenMismatch)
	assert.ErrorIs(t, cred.Verify(""), ErrTokenMismatch)

	// 두 자격 증명은 서로의 비밀값을 인정하지 않음
	other := NewInternalCredential()
	assert.Error(t, cred.Verify(other.Secret()))
}
