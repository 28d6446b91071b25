package keymanager

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func seed() []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = byte(i + 1)
	}
	return s
}

func TestDeriveSignersIsDeterministic(t *testing.T) {
	m1, err := NewFromSeed(seed())
	require.NoError(t, err)
	m2, err := NewFromSeed(seed())
	require.NoError(t, err)

	keys1, err := m1.DeriveSigners(3)
	require.NoError(t, err)
	keys2, err := m2.DeriveSigners(3)
	require.NoError(t, err)

	for i := range keys1 {
		require.Equal(t, keys1[i].Bytes(), keys2[i].Bytes())
	}
}

func TestDeriveSignersProducesDistinctKeys(t *testing.T) {
	m, err := NewFromSeed(seed())
	require.NoError(t, err)

	keys, err := m.DeriveSigners(4)
	require.NoError(t, err)

	seen := make(map[[32]byte]bool)
	for _, k := range keys {
		b := k.Bytes()
		require.False(t, seen[b], "duplicate derived key")
		seen[b] = true
	}
}

func TestDeriveSignersRejectsNonPositiveCount(t *testing.T) {
	m, err := NewFromSeed(seed())
	require.NoError(t, err)

	_, err = m.DeriveSigners(0)
	require.Error(t, err)
}
