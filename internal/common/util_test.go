package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	for _, n := range []int{0, 1, 16, 32} {
		s, err := MakeRandHexString(n)
		require.NoError(t, err)
		assert.Len(t, s, n*2)

		_, err = hex.DecodeString(s)
		assert.NoError(t, err)
	}
}

func TestMakeRandHexString_Distinct(t *testing.T) {
	a, err := MakeRandHexString(32)
	require.NoError(t, err)
	b, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte("secret123")
	WipeByteArray(buf)
	assert.Equal(t, make([]byte, 9), buf)

	// nil is a no-op
	WipeByteArray(nil)
}
