package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)

	assert.True(t, h.Check("admin123", hash))
	assert.False(t, h.Check("admin124", hash))
	assert.False(t, h.Check("admin123", "not-a-hash"))
}

func TestBcryptHasher_TruncatesAt72Bytes(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	base := strings.Repeat("a", MaxPasswordBytes)

	hash, err := h.Hash(base + "first-suffix")
	require.NoError(t, err)

	assert.True(t, h.Check(base+"other-suffix", hash))
	assert.True(t, h.Check(base, hash))
	assert.False(t, h.Check(base[:MaxPasswordBytes-1], hash))
}
