package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, ComparePassword(hash, "password123"))
	assert.False(t, ComparePassword(hash, "password124"))
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
