package curve

import "github.com/LotusiaStewardship/lotus-musig2-core/errs"

// PrivateKey is a non-zero scalar, owned exclusively by its holder and never
// transmitted (spec §3 PrivateKey).
type PrivateKey struct {
	Scalar
}

// PublicKey is a curve Point derived as scalar*G (spec §3 PublicKey).
type PublicKey struct {
	Point
}

// NewPrivateKey validates and wraps a raw scalar as a private key, rejecting
// the zero scalar (spec §3 "Zero scalars are invalid for private keys").
func NewPrivateKey(s Scalar) (PrivateKey, error) {
	if s.IsZero() {
		return PrivateKey{}, errs.New(errs.KindInvalidCrypto, "NewPrivateKey", "zero scalar is not a valid private key")
	}
	return PrivateKey{Scalar: s}, nil
}

// Public derives the corresponding public key.
func (k PrivateKey) Public() PublicKey {
	return PublicKey{Point: ScalarBaseMult(k.Scalar)}
}
