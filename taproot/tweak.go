package taproot

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
)

// ZeroMerkleRoot is the all-zero 32-byte root meaning "key-path-only"
// (spec §3 "an all-zero 32-byte root means key-path-only").
var ZeroMerkleRoot [32]byte

// TweakScalar computes t = taggedHash("TapTweak", compressed(P_internal) ||
// merkle_root_or_zero32) as a scalar (spec §4.3 Tweak).
func TweakScalar(internal curve.PublicKey, merkleRoot [32]byte) curve.Scalar {
	c := internal.Compressed()
	h := chainhash.TaggedHash(chainhash.TagTapTweak, c[:], merkleRoot[:])
	return curve.ScalarFromHash([32]byte(*h))
}

// TweakPubKey computes P_out = P_internal + t*G (spec §4.3 Tweak).
func TweakPubKey(internal curve.PublicKey, merkleRoot [32]byte) (curve.PublicKey, curve.Scalar) {
	t := TweakScalar(internal, merkleRoot)
	out := curve.Add(internal.Point, curve.ScalarBaseMult(t))
	return curve.PublicKey{Point: out}, t
}

// TweakPrivKey computes x_out = (x_internal + t) mod n (spec §4.3 "A
// private-key holder computes x_out = (x_internal + t) mod n"). Unlike
// BIP341's x-only tweak (teacher's TweakTaprootPrivKey), Lotus operates on
// the full 33-byte compressed key, so no even-Y negation is applied before
// tweaking: the internal key's own parity is exactly what's committed to in
// TweakScalar's tagged hash.
func TweakPrivKey(internal curve.PrivateKey, merkleRoot [32]byte) (curve.PrivateKey, error) {
	pub := internal.Public()
	t := TweakScalar(pub, merkleRoot)
	outScalar := internal.Scalar.Add(t)
	return curve.NewPrivateKey(outScalar)
}

// KeyPathOnlyOutputKey computes the output key for a key-path-only
// commitment (zero merkle root).
func KeyPathOnlyOutputKey(internal curve.PublicKey) (curve.PublicKey, curve.Scalar) {
	return TweakPubKey(internal, ZeroMerkleRoot)
}
