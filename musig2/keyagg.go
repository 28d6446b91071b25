// Package musig2 implements BIP327-style MuSig2 key aggregation, nonce
// generation/aggregation, partial signing/verification and signature
// aggregation, adapted to Lotus Schnorr (spec §4.5). Grounded in
// other_examples/839f9978_toole-brendan-shell__crypto-musig2-musig2.go.go
// for struct shape and in this module's own curve/schnorrlotus packages for
// arithmetic and the challenge/quadratic-residue rules; the session
// orchestration wrapper lives in package session, not here, per spec.md's
// C5/C6 split.
package musig2

import (
	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// KeyAggContext is the result of key aggregation (spec §4.5.1): the
// ordered pubkey list, per-signer coefficients, and the aggregated key Q.
// Key order is significant and part of the context.
type KeyAggContext struct {
	Pubkeys      []curve.PublicKey
	Coefficients []curve.Scalar
	Q            curve.Point

	// tweak is the accumulated Taproot tweak scalar, if any, carried as a
	// known public offset (SPEC_FULL.md Open Question decision: tweak Q
	// first, then fold t into the designated tweak-carrier signer's share
	// during partial signing rather than renegotiating coefficients).
	tweak        curve.Scalar
	hasTweak     bool
	tweakCarrier int
}

// tweakCarrierIndex is the signer index that folds the Taproot tweak into
// its partial signature share (spec §4.5.7 "tweak Q first, then add t·G·1
// as a known offset during aggregation"): signer 0 by convention, fixed so
// every participant computes the same partial-sign/verify equation.
const tweakCarrierIndex = 0

// KeyAgg implements musigKeyAgg(pubkeys) (spec §4.5.1).
func KeyAgg(pubkeys []curve.PublicKey) (KeyAggContext, error) {
	const op = "musig2.KeyAgg"
	if len(pubkeys) == 0 {
		return KeyAggContext{}, errs.New(errs.KindValidationError, op, "pubkeys must be non-empty")
	}

	listData := make([][]byte, 0, len(pubkeys))
	for _, p := range pubkeys {
		c := p.Compressed()
		listData = append(listData, c[:])
	}
	l := curve.TaggedHash("KeyAgg list", listData...)

	coefficients := make([]curve.Scalar, len(pubkeys))
	var q curve.Point
	qSet := false
	for i, p := range pubkeys {
		c := p.Compressed()
		a := curve.ScalarFromHash(curve.TaggedHash("KeyAgg coefficient", l[:], c[:]))
		coefficients[i] = a

		term := curve.ScalarMult(a, p.Point)
		if !qSet {
			q = term
			qSet = true
		} else {
			q = curve.Add(q, term)
		}
	}

	return KeyAggContext{Pubkeys: pubkeys, Coefficients: coefficients, Q: q, tweakCarrier: tweakCarrierIndex}, nil
}

// AggregatedPublicKey returns the aggregated key as a curve.PublicKey.
func (ctx KeyAggContext) AggregatedPublicKey() curve.PublicKey {
	return curve.PublicKey{Point: ctx.Q}
}

// ApplyTweak folds a Taproot tweak scalar into the aggregation context
// (spec §4.5.7): Q becomes Q + t·G, and t is recorded so
// PartialSign/PartialSigVerify can fold it into the designated tweak
// carrier's share.
func (ctx KeyAggContext) ApplyTweak(t curve.Scalar) KeyAggContext {
	out := ctx
	out.Q = curve.Add(ctx.Q, curve.ScalarBaseMult(t))
	if ctx.hasTweak {
		out.tweak = ctx.tweak.Add(t)
	} else {
		out.tweak = t
	}
	out.hasTweak = true
	return out
}
