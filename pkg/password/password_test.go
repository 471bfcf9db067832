package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, h.Verify("correct horse", hash))
	assert.False(t, h.Verify("correct hors", hash))
	assert.False(t, h.Verify("", hash))
}

func TestHasher_RejectsEmptyAndOversized(t *testing.T) {
	h := NewHasher(MinCost)

	_, err := h.Hash("")
	assert.Error(t, err)

	_, err = h.Hash(strings.Repeat("a", MaxLength+1))
	assert.Error(t, err)
}

func TestHasher_VerifyWithoutHash(t *testing.T) {
	h := NewHasher(MinCost)
	assert.False(t, h.Verify("anything", ""))
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, MinCost, NewHasher(MinCost).cost)
}
