package musig2

import (
	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// PartialSignature is one signer's scalar contribution (spec §3 "Partial
// signature: one signer's scalar contribution to the final aggregated
// Schnorr signature").
type PartialSignature struct {
	S curve.Scalar
}

// nonceCoefficient computes b = taggedHash("MuSig/noncecoef",
// compressed(aggNonce.R1) || compressed(aggNonce.R2) || compressed(Q) ||
// message) mod n (spec §4.5.4 step 1).
func nonceCoefficient(aggNonce AggregatedNonce, q curve.Point, message [32]byte) curve.Scalar {
	r1 := curve.PublicKey{Point: aggNonce.R1}.Compressed()
	r2 := curve.PublicKey{Point: aggNonce.R2}.Compressed()
	qc := curve.PublicKey{Point: q}.Compressed()
	h := curve.TaggedHash("MuSig/noncecoef", r1[:], r2[:], qc[:], message[:])
	return curve.ScalarFromHash(h)
}

// effectiveNonce computes R = aggNonce.R1 + b*aggNonce.R2 and reports
// whether the signers must negate their secret nonces before use (spec
// §4.5.4 step 2: "If R.y is not a quadratic residue, negate both k1 and k2
// ... and treat R as its negation when computing R.x").
func effectiveNonce(aggNonce AggregatedNonce, b curve.Scalar) (r curve.Point, negate bool) {
	r = curve.Add(aggNonce.R1, curve.ScalarMult(b, aggNonce.R2))
	if !r.IsQuadraticResidueY() {
		return r.Negate(), true
	}
	return r, false
}

// challengeScalar computes e = SHA256(R.x || compressed(Q) || message) mod
// n (spec §4.5.4 step 3), the same formula schnorrlotus.Sign/Verify use
// for the final aggregated signature.
func challengeScalar(rx [32]byte, q curve.Point, message [32]byte) curve.Scalar {
	qc := curve.PublicKey{Point: q}.Compressed()
	h := curve.SHA256(rx[:], qc[:], message[:])
	return curve.ScalarFromHash(h)
}

// tweakTerm returns the tweak scalar folded into signerIndex's share, or
// the zero scalar if this context carries no tweak or signerIndex is not
// the designated carrier (spec §4.5.7).
func (ctx KeyAggContext) tweakTerm(signerIndex int) curve.Scalar {
	if ctx.hasTweak && signerIndex == ctx.tweakCarrier {
		return ctx.tweak
	}
	return curve.Scalar{}
}

// PartialSign implements musigPartialSign(secretNonce, sk, keyAgg,
// signerIndex, aggNonce, message) (spec §4.5.4). The caller is responsible
// for discarding secretNonce after this call returns (spec §4.5.2 "must be
// bound to exactly one call ... and erased afterwards").
func PartialSign(secretNonce SecretNonce, sk curve.PrivateKey, ctx KeyAggContext, signerIndex int, aggNonce AggregatedNonce, message [32]byte) (PartialSignature, error) {
	const op = "musig2.PartialSign"
	if signerIndex < 0 || signerIndex >= len(ctx.Coefficients) {
		return PartialSignature{}, errs.New(errs.KindValidationError, op, "signerIndex out of range")
	}

	b := nonceCoefficient(aggNonce, ctx.Q, message)
	r, negate := effectiveNonce(aggNonce, b)

	k1, k2 := secretNonce.K1, secretNonce.K2
	if negate {
		k1, k2 = k1.Negate(), k2.Negate()
	}

	e := challengeScalar(r.X(), ctx.Q, message)
	a := ctx.Coefficients[signerIndex]

	// sI = (k1 + b*k2 + e*(aI*x + tweakTerm)) mod n.
	aix := a.Mul(sk.Scalar).Add(ctx.tweakTerm(signerIndex))
	s := k1.Add(b.Mul(k2)).Add(e.Mul(aix))

	return PartialSignature{S: s}, nil
}

// PartialSigVerify implements musigPartialSigVerify(si, Ri, Pi, keyAgg,
// signerIndex, aggNonce, message) (spec §4.5.5): recompute b, R, e as in
// PartialSign and check sI*G == (Ri.R1 + b*Ri.R2) + e*(aI*Pi + tweakTerm*G).
func PartialSigVerify(sig PartialSignature, publicNonce PublicNonce, pubkey curve.PublicKey, ctx KeyAggContext, signerIndex int, aggNonce AggregatedNonce, message [32]byte) (bool, error) {
	const op = "musig2.PartialSigVerify"
	if signerIndex < 0 || signerIndex >= len(ctx.Coefficients) {
		return false, errs.New(errs.KindValidationError, op, "signerIndex out of range")
	}

	b := nonceCoefficient(aggNonce, ctx.Q, message)
	r, negate := effectiveNonce(aggNonce, b)
	e := challengeScalar(r.X(), ctx.Q, message)
	a := ctx.Coefficients[signerIndex]

	r1, r2 := publicNonce.R1, publicNonce.R2
	if negate {
		r1, r2 = r1.Negate(), r2.Negate()
	}

	lhs := curve.ScalarBaseMult(sig.S)

	rhs := curve.Add(r1, curve.ScalarMult(b, r2))
	aiP := curve.ScalarMult(a, pubkey.Point)
	tweakTerm := ctx.tweakTerm(signerIndex)
	if !tweakTerm.IsZero() {
		aiP = curve.Add(aiP, curve.ScalarBaseMult(tweakTerm))
	}
	rhs = curve.Add(rhs, curve.ScalarMult(e, aiP))

	return lhs.Equals(rhs), nil
}
