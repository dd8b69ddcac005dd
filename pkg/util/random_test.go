package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomNumber_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		n, err := GenerateRandomNumber(100000, 999999)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateRandomNumber_InvalidRange(t *testing.T) {
	_, err := GenerateRandomNumber(10, 1)
	assert.Error(t, err)
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
