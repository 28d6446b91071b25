package curve

import (
	"math/big"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// fieldPrime is the secp256k1 field prime p = 2^256 - 2^32 - 977.
var fieldPrime = new(big.Int).SetBytes([]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xfe, 0xff, 0xff, 0xfc, 0x2f,
})

// Point is an element of the secp256k1 group, carried internally as an
// affine (x, y) pair the way the teacher's taproot tweak arithmetic
// operates on btcec.JacobianPoint before calling ToAffine() (see
// txscript/taproot.go ComputeTaprootOutputKey).
type Point struct {
	x, y secp.FieldVal
}

// G is the secp256k1 base point.
func G() Point {
	var jp secp.JacobianPoint
	var one secp.ModNScalar
	one.SetInt(1)
	secp.ScalarBaseMultNonConst(&one, &jp)
	jp.ToAffine()
	return Point{x: jp.X, y: jp.Y}
}

// ScalarBaseMult returns k*G.
func ScalarBaseMult(k Scalar) Point {
	var jp secp.JacobianPoint
	kn := k.ModN()
	secp.ScalarBaseMultNonConst(&kn, &jp)
	jp.ToAffine()
	return Point{x: jp.X, y: jp.Y}
}

// ScalarMult returns k*P.
func ScalarMult(k Scalar, p Point) Point {
	var in, out secp.JacobianPoint
	in.X, in.Y = p.x, p.y
	in.Z.SetInt(1)
	kn := k.ModN()
	secp.ScalarMultNonConst(&kn, &in, &out)
	out.ToAffine()
	return Point{x: out.X, y: out.Y}
}

// Add returns p + q.
func Add(p, q Point) Point {
	var jp, jq, jr secp.JacobianPoint
	jp.X, jp.Y, jp.Z = p.x, p.y, *new(secp.FieldVal).SetInt(1)
	jq.X, jq.Y, jq.Z = q.x, q.y, *new(secp.FieldVal).SetInt(1)
	secp.AddNonConst(&jp, &jq, &jr)
	jr.ToAffine()
	return Point{x: jr.X, y: jr.Y}
}

// Negate returns -p.
func (p Point) Negate() Point {
	y := p.y
	y.Negate(1).Normalize()
	return Point{x: p.x, y: y}
}

// Equals reports whether p and q are the same affine point.
func (p Point) Equals(q Point) bool {
	return p.x.Equals(&q.x) && p.y.Equals(&q.y)
}

// IsEvenY reports whether the affine Y coordinate is even. Lotus Schnorr does
// not use this for nonce-sign selection (it uses quadratic-residue, see
// IsQuadraticResidueY below) but it is still needed for the compressed
// 0x02/0x03 prefix (spec §3 Point).
func (p Point) IsEvenY() bool {
	y := p.y
	y.Normalize()
	return !y.IsOdd()
}

// IsQuadraticResidueY reports whether the Y coordinate is a quadratic
// residue modulo the field prime: y^((p-1)/2) == 1 mod p. This is the
// Lotus-specific nonce/verification rule of spec §4.2, distinct from (and
// historically prior to) BIP340's even-Y convention.
func (p Point) IsQuadraticResidueY() bool {
	yb := p.y
	yb.Normalize()
	ybytes := yb.Bytes()
	y := new(big.Int).SetBytes(ybytes[:])
	exp := new(big.Int).Rsh(new(big.Int).Sub(fieldPrime, big.NewInt(1)), 1)
	res := new(big.Int).Exp(y, exp, fieldPrime)
	return res.Cmp(big.NewInt(1)) == 0
}

// X returns the 32-byte big-endian X coordinate.
func (p Point) X() [32]byte {
	x := p.x
	x.Normalize()
	return x.Bytes()
}

// Compressed serializes the point as 33 bytes: prefix (0x02 even-Y, 0x03
// odd-Y) followed by the big-endian X coordinate (spec §3 Point).
func (p Point) Compressed() [33]byte {
	var out [33]byte
	if p.IsEvenY() {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	x := p.X()
	copy(out[1:], x[:])
	return out
}

// ParsePoint deserializes a 33-byte compressed point, validating the prefix
// and that the point is on the curve and non-identity (spec §4.1 errors).
func ParsePoint(b []byte) (Point, error) {
	if len(b) != 33 {
		return Point{}, errs.New(errs.KindInvalidEncoding, "ParsePoint", "compressed point must be 33 bytes")
	}
	if b[0] != 0x02 && b[0] != 0x03 {
		return Point{}, errs.New(errs.KindInvalidEncoding, "ParsePoint", "invalid prefix byte")
	}
	pk, err := secp.ParsePubKey(b)
	if err != nil {
		return Point{}, errs.Wrap(errs.KindInvalidCrypto, "ParsePoint", "not on curve", err)
	}
	return Point{x: *pk.X(), y: *pk.Y()}, nil
}

// FromXParity reconstructs a Point from its X coordinate and a desired Y
// parity (spec §4.1 "reconstruction of a Point from (parity, X)").
// parity == 1 means odd-Y (matching the 0x03 prefix / control-block
// parity convention of spec §3).
func FromXParity(x [32]byte, oddY bool) (Point, error) {
	prefix := byte(0x02)
	if oddY {
		prefix = 0x03
	}
	buf := make([]byte, 33)
	buf[0] = prefix
	copy(buf[1:], x[:])
	return ParsePoint(buf)
}
