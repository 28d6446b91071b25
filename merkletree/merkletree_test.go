package merkletree

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func sha256Pair(l, r [32]byte) [32]byte {
	h := sha256.New()
	h.Write(l[:])
	h.Write(r[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func TestRootZeroLeaves(t *testing.T) {
	root, height := Root(nil, sha256Pair)
	require.Equal(t, ZeroHash, root)
	require.Equal(t, uint8(0), height)
}

func TestRootOneLeaf(t *testing.T) {
	var leaf [32]byte
	leaf[0] = 1
	root, height := Root([][32]byte{leaf}, sha256Pair)
	require.Equal(t, leaf, root)
	require.Equal(t, uint8(1), height)
}

func TestRootOddCountPads(t *testing.T) {
	var a, b, c [32]byte
	a[0], b[0], c[0] = 1, 2, 3
	root, height := Root([][32]byte{a, b, c}, sha256Pair)
	require.Equal(t, uint8(3), height)
	require.NotEqual(t, ZeroHash, root)
}

func TestRootDeterministic(t *testing.T) {
	var a, b [32]byte
	a[0], b[0] = 1, 2
	r1, h1 := Root([][32]byte{a, b}, sha256Pair)
	r2, h2 := Root([][32]byte{a, b}, sha256Pair)
	require.Equal(t, r1, r2)
	require.Equal(t, h1, h2)
}
