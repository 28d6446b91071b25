package musig2

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/schnorrlotus"
	"github.com/LotusiaStewardship/lotus-musig2-core/taproot"
)

func randomKeyPair(t *testing.T) curve.PrivateKey {
	t.Helper()
	s, err := curve.RandomScalar()
	require.NoError(t, err)
	priv, err := curve.NewPrivateKey(s)
	require.NoError(t, err)
	return priv
}

// TestTwoOfTwoMuSig2SignAndVerify implements spec §8 scenario 1: two
// random key pairs, both keys aggregated, message 0x42 repeated 32 times.
// After nonce exchange and partial signing, the aggregated signature
// verifies against the aggregated public key under Lotus Schnorr, and each
// partial signature individually verifies.
func TestTwoOfTwoMuSig2SignAndVerify(t *testing.T) {
	priv1 := randomKeyPair(t)
	priv2 := randomKeyPair(t)
	pub1 := priv1.Public()
	pub2 := priv2.Public()

	ctx, err := KeyAgg([]curve.PublicKey{pub1, pub2})
	require.NoError(t, err)

	var message [32]byte
	for i := range message {
		message[i] = 0x42
	}

	secret1, public1, err := NonceGen()
	require.NoError(t, err)
	secret2, public2, err := NonceGen()
	require.NoError(t, err)

	aggNonce, err := NonceAgg([]PublicNonce{public1, public2})
	require.NoError(t, err)

	partial1, err := PartialSign(secret1, priv1, ctx, 0, aggNonce, message)
	require.NoError(t, err)
	partial2, err := PartialSign(secret2, priv2, ctx, 1, aggNonce, message)
	require.NoError(t, err)

	ok, err := PartialSigVerify(partial1, public1, pub1, ctx, 0, aggNonce, message)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = PartialSigVerify(partial2, public2, pub2, ctx, 1, aggNonce, message)
	require.NoError(t, err)
	require.True(t, ok)

	sig, err := SigAgg([]PartialSignature{partial1, partial2}, aggNonce, message, ctx.Q)
	require.NoError(t, err)

	err = schnorrlotus.Verify(sig, ctx.AggregatedPublicKey(), message)
	require.NoError(t, err)
}

func TestPartialSigVerifyRejectsWrongSigner(t *testing.T) {
	priv1 := randomKeyPair(t)
	priv2 := randomKeyPair(t)
	pub1 := priv1.Public()
	pub2 := priv2.Public()

	ctx, err := KeyAgg([]curve.PublicKey{pub1, pub2})
	require.NoError(t, err)

	var message [32]byte
	message[0] = 0x01

	secret1, public1, err := NonceGen()
	require.NoError(t, err)
	secret2, public2, err := NonceGen()
	require.NoError(t, err)

	aggNonce, err := NonceAgg([]PublicNonce{public1, public2})
	require.NoError(t, err)

	partial1, err := PartialSign(secret1, priv1, ctx, 0, aggNonce, message)
	require.NoError(t, err)

	// Verifying signer 0's partial signature against signer 1's claimed
	// index/key must fail.
	ok, err := PartialSigVerify(partial1, public1, pub2, ctx, 1, aggNonce, message)
	require.NoError(t, err)
	require.False(t, ok)
	_ = secret2
}

func TestKeyAggRejectsEmptyList(t *testing.T) {
	_, err := KeyAgg(nil)
	require.Error(t, err)
}

func TestNonceAggRejectsEmptyList(t *testing.T) {
	_, err := NonceAgg(nil)
	require.Error(t, err)
}

func TestSigAggRejectsEmptyPartials(t *testing.T) {
	_, err := SigAgg(nil, AggregatedNonce{}, [32]byte{}, curve.Point{})
	require.Error(t, err)
}

// TestMuSig2WithTaprootTweak verifies the aggregated signature still
// checks out under schnorrlotus against the tweaked key when the key
// aggregation context carries a Taproot tweak (spec §4.5.7).
func TestMuSig2WithTaprootTweak(t *testing.T) {
	priv1 := randomKeyPair(t)
	priv2 := randomKeyPair(t)
	pub1 := priv1.Public()
	pub2 := priv2.Public()

	ctx, err := KeyAgg([]curve.PublicKey{pub1, pub2})
	require.NoError(t, err)

	internalKey := ctx.AggregatedPublicKey()
	var merkleRoot [32]byte
	merkleRoot[0] = 0x99

	tweakScalar := taproot.TweakScalar(internalKey, merkleRoot)
	tweakedCtx := ctx.ApplyTweak(tweakScalar)

	var message [32]byte
	message[0] = 0x07

	secret1, public1, err := NonceGen()
	require.NoError(t, err)
	secret2, public2, err := NonceGen()
	require.NoError(t, err)

	aggNonce, err := NonceAgg([]PublicNonce{public1, public2})
	require.NoError(t, err)

	partial1, err := PartialSign(secret1, priv1, tweakedCtx, 0, aggNonce, message)
	require.NoError(t, err)
	partial2, err := PartialSign(secret2, priv2, tweakedCtx, 1, aggNonce, message)
	require.NoError(t, err)

	sig, err := SigAgg([]PartialSignature{partial1, partial2}, aggNonce, message, tweakedCtx.Q)
	require.NoError(t, err)

	err = schnorrlotus.Verify(sig, tweakedCtx.AggregatedPublicKey(), message)
	require.NoError(t, err)
}
