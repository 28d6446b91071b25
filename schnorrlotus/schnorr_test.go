package schnorrlotus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
)

func randomKey(t *testing.T) curve.PrivateKey {
	s, err := curve.RandomScalar()
	require.NoError(t, err)
	k, err := curve.NewPrivateKey(s)
	require.NoError(t, err)
	return k
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv := randomKey(t)
	var msg [32]byte
	for i := range msg {
		msg[i] = 0x42
	}

	sig, err := Sign(priv, msg)
	require.NoError(t, err)

	err = Verify(sig, priv.Public(), msg)
	require.NoError(t, err)
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	priv := randomKey(t)
	var msg, other [32]byte
	msg[0] = 1
	other[0] = 2

	sig, err := Sign(priv, msg)
	require.NoError(t, err)

	require.Error(t, Verify(sig, priv.Public(), other))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv := randomKey(t)
	other := randomKey(t)
	var msg [32]byte
	msg[0] = 9

	sig, err := Sign(priv, msg)
	require.NoError(t, err)

	require.Error(t, Verify(sig, other.Public(), msg))
}

func TestSignatureByteRoundTrip(t *testing.T) {
	priv := randomKey(t)
	var msg [32]byte
	msg[5] = 7

	sig, err := Sign(priv, msg)
	require.NoError(t, err)

	b := sig.Bytes()
	parsed, err := ParseSignature(b[:])
	require.NoError(t, err)
	require.Equal(t, sig.Rx, parsed.Rx)
	require.True(t, sig.S.Equals(parsed.S))
}

func TestParseSignatureRejectsBadLength(t *testing.T) {
	_, err := ParseSignature(make([]byte, 63))
	require.Error(t, err)
}
