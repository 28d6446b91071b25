package curve

import (
	"crypto/rand"
	"math/big"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// groupOrder is the secp256k1 group order n.
var groupOrder = new(big.Int).SetBytes([]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe,
	0xba, 0xae, 0xdc, 0xe6, 0xaf, 0x48, 0xa0, 0x3b,
	0xbf, 0xd2, 0x5e, 0x8c, 0xd0, 0x36, 0x41, 0x41,
})

// Scalar is an element of Z_n, n the secp256k1 group order. It wraps
// secp256k1.ModNScalar the way the teacher's taproot tweak code does
// (txscript/taproot.go ComputeTaprootOutputKey/TweakTaprootPrivKey), kept
// behind this facade so the rest of the module never imports the decred
// package directly.
type Scalar struct {
	s secp.ModNScalar
}

// ScalarFromModN wraps an existing decred ModNScalar.
func ScalarFromModN(s secp.ModNScalar) Scalar { return Scalar{s: s} }

// ModN exposes the underlying decred scalar for interop with other
// decred/dcrec secp256k1 consumers (e.g. schnorrlotus's RFC6979 call).
func (a Scalar) ModN() secp.ModNScalar { return a.s }

// ScalarFromBytes reduces a 32-byte big-endian value modulo n.
func ScalarFromBytes(b [32]byte) Scalar {
	var s secp.ModNScalar
	s.SetBytes(&b)
	return Scalar{s: s}
}

// ScalarFromHash reduces a tagged-hash/sighash output modulo n, as used for
// MuSig2 coefficients and Schnorr challenges.
func ScalarFromHash(h [32]byte) Scalar { return ScalarFromBytes(h) }

// RandomScalar samples a uniformly random non-zero scalar in [1, n) using
// crypto/rand, rejection-sampling out of the tiny bias region and the zero
// scalar. Required for nonces (spec §4.5.2: "rerandomize each call").
func RandomScalar() (Scalar, error) {
	for {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return Scalar{}, errs.Wrap(errs.KindInvalidCrypto, "RandomScalar", "rand.Read failed", err)
		}
		var s secp.ModNScalar
		overflow := s.SetBytes(&buf)
		if overflow != 0 || s.IsZero() {
			continue
		}
		return Scalar{s: s}, nil
	}
}

// IsZero reports whether the scalar is zero mod n.
func (a Scalar) IsZero() bool { return a.s.IsZero() }

// Bytes returns the 32-byte big-endian encoding of the scalar.
func (a Scalar) Bytes() [32]byte { return a.s.Bytes() }

// Add returns a + b mod n.
func (a Scalar) Add(b Scalar) Scalar {
	sum := a.s
	sum.Add(&b.s)
	return Scalar{s: sum}
}

// Negate returns -a mod n.
func (a Scalar) Negate() Scalar {
	n := a.s
	n.Negate()
	return Scalar{s: n}
}

// Sub returns a - b mod n.
func (a Scalar) Sub(b Scalar) Scalar {
	neg := b.s
	neg.Negate()
	diff := a.s
	diff.Add(&neg)
	return Scalar{s: diff}
}

// Mul returns a * b mod n.
func (a Scalar) Mul(b Scalar) Scalar {
	prod := a.s
	prod.Mul(&b.s)
	return Scalar{s: prod}
}

// Inverse returns a^-1 mod n, the multiplicative inverse, computed via
// Fermat's little theorem (n is prime, so a^-1 = a^(n-2) mod n) the same
// way IsQuadraticResidueY falls back to math/big for modular exponentiation
// (point.go). Provides the scalar "inverse" operation of spec §4.1; no code
// in this module calls it. Panics if a is zero, which has no inverse.
func (a Scalar) Inverse() Scalar {
	if a.IsZero() {
		panic("curve: Inverse of zero scalar")
	}
	ab := a.Bytes()
	av := new(big.Int).SetBytes(ab[:])
	exp := new(big.Int).Sub(groupOrder, big.NewInt(2))
	res := new(big.Int).Exp(av, exp, groupOrder)

	var out [32]byte
	res.FillBytes(out[:])
	return ScalarFromBytes(out)
}

// Equals reports structural equality mod n.
func (a Scalar) Equals(b Scalar) bool { return a.s.Equals(&b.s) }
