// Package schnorrlotus implements Lotus's Schnorr signature variant: unlike
// BIP340 it challenges over the full 33-byte compressed public key rather
// than an x-only 32-byte key, and it selects the nonce sign via an actual
// quadratic-residue test on R.y rather than BIP340's even-Y convention
// (spec §4.2). Deterministic nonce derivation reuses decred's secp256k1
// RFC6979 implementation (the same curve engine curve.Scalar/curve.Point
// are built on), called with Lotus's algo16 personalization string instead
// of ECDSA's default.
package schnorrlotus

import (
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// personalization is the RFC6979 "algo16" tag fixed by spec §4.2 step 1,
// including its two trailing spaces.
const personalization = "Schnorr+SHA256  "

// SignatureSize is the length in bytes of an encoded Lotus Schnorr
// signature (spec §6): R.x (32) || s (32).
const SignatureSize = 64

// Signature is a Lotus Schnorr signature (spec §3 "Signature = (R.x, s)").
type Signature struct {
	Rx [32]byte
	S  curve.Scalar
}

// Bytes encodes the signature as 64 bytes, R.x then s, both big-endian.
func (sig Signature) Bytes() [SignatureSize]byte {
	var out [SignatureSize]byte
	copy(out[:32], sig.Rx[:])
	sBytes := sig.S.Bytes()
	copy(out[32:], sBytes[:])
	return out
}

// ParseSignature decodes a 64-byte Lotus Schnorr signature.
func ParseSignature(b []byte) (Signature, error) {
	if len(b) != SignatureSize {
		return Signature{}, errs.New(errs.KindInvalidEncoding, "ParseSignature", "signature must be 64 bytes")
	}
	var rx [32]byte
	copy(rx[:], b[:32])
	var sb [32]byte
	copy(sb[:], b[32:])
	s := curve.ScalarFromBytes(sb)
	if s.IsZero() {
		return Signature{}, errs.New(errs.KindInvalidCrypto, "ParseSignature", "s must be non-zero")
	}
	return Signature{Rx: rx, S: s}, nil
}

// deterministicNonce derives k via RFC6979 per spec §4.2 step 1.
func deterministicNonce(priv curve.PrivateKey, message [32]byte) curve.Scalar {
	privBytes := priv.Bytes()
	k := secp.NonceRFC6979(privBytes[:], message[:], nil, []byte(personalization), 0)
	return curve.ScalarFromModN(*k)
}

// challenge computes e = SHA256(R.x || compressed(P) || m) mod n, the
// essential Lotus divergence from BIP340's x-only challenge (spec §4.2
// step 3).
func challenge(rx [32]byte, pubCompressed [33]byte, message [32]byte) curve.Scalar {
	h := curve.SHA256(rx[:], pubCompressed[:], message[:])
	return curve.ScalarFromHash(h)
}

// Sign produces a Lotus Schnorr signature over a 32-byte message digest
// (spec §4.2).
func Sign(priv curve.PrivateKey, message [32]byte) (Signature, error) {
	if priv.IsZero() {
		return Signature{}, errs.New(errs.KindInvalidCrypto, "Sign", "zero private key")
	}

	k := deterministicNonce(priv, message)
	if k.IsZero() {
		return Signature{}, errs.New(errs.KindInvalidCrypto, "Sign", "deterministic nonce was zero")
	}

	R := curve.ScalarBaseMult(k)
	if !R.IsQuadraticResidueY() {
		k = k.Negate()
		R = curve.ScalarBaseMult(k)
	}

	pub := priv.Public()
	e := challenge(R.X(), pub.Compressed(), message)

	s := k.Add(e.Mul(priv.Scalar))

	return Signature{Rx: R.X(), S: s}, nil
}

// Verify checks sig against pub for message (spec §4.2).
func Verify(sig Signature, pub curve.PublicKey, message [32]byte) error {
	if sig.S.IsZero() {
		return errs.New(errs.KindInvalidCrypto, "Verify", "s must be non-zero")
	}

	e := challenge(sig.Rx, pub.Compressed(), message)

	// R' = s*G - e*P
	sG := curve.ScalarBaseMult(sig.S)
	eP := curve.ScalarMult(e, pub.Point)
	rPrime := curve.Add(sG, eP.Negate())

	if rPrime.X() != sig.Rx {
		return errs.New(errs.KindInvalidCrypto, "Verify", "R.x mismatch")
	}
	if !rPrime.IsQuadraticResidueY() {
		return errs.New(errs.KindInvalidCrypto, "Verify", "R.y is not a quadratic residue")
	}
	return nil
}
