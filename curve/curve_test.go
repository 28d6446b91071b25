package curve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	require.NoError(t, err)
	require.False(t, s.IsZero())

	b := s.Bytes()
	s2 := ScalarFromBytes(b)
	require.True(t, s.Equals(s2))
}

func TestPointCompressedRoundTrip(t *testing.T) {
	priv, err := RandomScalar()
	require.NoError(t, err)
	pub := ScalarBaseMult(priv)

	compressed := pub.Compressed()
	require.True(t, compressed[0] == 0x02 || compressed[0] == 0x03)

	parsed, err := ParsePoint(compressed[:])
	require.NoError(t, err)
	require.True(t, pub.Equals(parsed))
}

func TestParsePointRejectsBadPrefix(t *testing.T) {
	var bad [33]byte
	bad[0] = 0x04
	_, err := ParsePoint(bad[:])
	require.Error(t, err)
}

func TestParsePointRejectsWrongLength(t *testing.T) {
	_, err := ParsePoint(make([]byte, 32))
	require.Error(t, err)
}

func TestFromXParityRoundTrip(t *testing.T) {
	priv, err := RandomScalar()
	require.NoError(t, err)
	pub := ScalarBaseMult(priv)

	rebuilt, err := FromXParity(pub.X(), !pub.IsEvenY())
	require.NoError(t, err)
	require.True(t, pub.Equals(rebuilt))
}

func TestTaggedHashDomainSeparation(t *testing.T) {
	data := []byte("hello")
	a := TaggedHash("TapLeaf", data)
	b := TaggedHash("TapBranch", data)
	require.NotEqual(t, a, b)
}

func TestAddCommutative(t *testing.T) {
	a, _ := RandomScalar()
	b, _ := RandomScalar()
	pa := ScalarBaseMult(a)
	pb := ScalarBaseMult(b)
	require.True(t, Add(pa, pb).Equals(Add(pb, pa)))
}
