package musig2

import (
	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
	"github.com/LotusiaStewardship/lotus-musig2-core/schnorrlotus"
)

// SigAgg implements musigSigAgg(partials[], aggNonce, message, Q) (spec
// §4.5.6): sum the partial signatures and derive R.x using the same
// nonce-coefficient/negation rule as PartialSign, producing a Lotus
// Schnorr signature that must verify under schnorrlotus against Q.
func SigAgg(partials []PartialSignature, aggNonce AggregatedNonce, message [32]byte, q curve.Point) (schnorrlotus.Signature, error) {
	const op = "musig2.SigAgg"
	if len(partials) == 0 {
		return schnorrlotus.Signature{}, errs.New(errs.KindValidationError, op, "partials must be non-empty")
	}

	s := partials[0].S
	for _, p := range partials[1:] {
		s = s.Add(p.S)
	}

	b := nonceCoefficient(aggNonce, q, message)
	r, _ := effectiveNonce(aggNonce, b)

	if s.IsZero() {
		return schnorrlotus.Signature{}, errs.New(errs.KindInvalidCrypto, op, "aggregated s is zero")
	}
	return schnorrlotus.Signature{Rx: r.X(), S: s}, nil
}
