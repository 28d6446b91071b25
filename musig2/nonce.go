package musig2

import (
	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// SecretNonce is a single-use scalar pair (spec §3 "SecretNonce: pair
// (k1, k2) of non-zero scalars"). It must be bound to exactly one
// PartialSign call and discarded afterward (enforced by the caller/session,
// not this package, since only the session layer knows a nonce's
// lifecycle).
type SecretNonce struct {
	K1, K2 curve.Scalar
}

// PublicNonce is the public commitment to a SecretNonce (spec §3).
type PublicNonce struct {
	R1, R2 curve.Point
}

// AggregatedNonce is the sum of every participant's PublicNonce (spec §3
// "Aggregated nonce: (ΣR1i, ΣR2i)").
type AggregatedNonce struct {
	R1, R2 curve.Point
}

// NonceGen samples (k1,k2) as two independent uniform scalars from
// crypto/rand, fresh on every call. It takes no inputs: the secret key,
// aggregate key and message are not mixed into the nonces, and there is no
// deterministic variant.
func NonceGen() (SecretNonce, PublicNonce, error) {
	const op = "musig2.NonceGen"

	k1, err := curve.RandomScalar()
	if err != nil {
		return SecretNonce{}, PublicNonce{}, errs.Wrap(errs.KindInvalidCrypto, op, "sampling k1", err)
	}
	k2, err := curve.RandomScalar()
	if err != nil {
		return SecretNonce{}, PublicNonce{}, errs.Wrap(errs.KindInvalidCrypto, op, "sampling k2", err)
	}

	secret := SecretNonce{K1: k1, K2: k2}
	public := PublicNonce{R1: curve.ScalarBaseMult(k1), R2: curve.ScalarBaseMult(k2)}
	return secret, public, nil
}

// NonceAgg implements musigNonceAgg(publicNonces[]) (spec §4.5.3): reject
// empty, return (ΣR1i, ΣR2i).
func NonceAgg(publicNonces []PublicNonce) (AggregatedNonce, error) {
	const op = "musig2.NonceAgg"
	if len(publicNonces) == 0 {
		return AggregatedNonce{}, errs.New(errs.KindValidationError, op, "publicNonces must be non-empty")
	}

	r1 := publicNonces[0].R1
	r2 := publicNonces[0].R2
	for _, pn := range publicNonces[1:] {
		r1 = curve.Add(r1, pn.R1)
		r2 = curve.Add(r2, pn.R2)
	}
	return AggregatedNonce{R1: r1, R2: r2}, nil
}
